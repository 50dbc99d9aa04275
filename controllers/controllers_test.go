package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math/rand"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/storage"
)

// newTestRouter mirrors the route layout from main over a fresh database and
// storage root.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, database.Connect(filepath.Join(dir, "test.db")))
	require.NoError(t, storage.Init(filepath.Join(dir, "storage")))

	gin.SetMode(gin.TestMode)
	router := gin.New()

	images := router.Group("/images")
	{
		images.POST("/upload", UploadImages)
		images.GET("", ListImages)
		images.GET("/:id/thumbnail", GetThumbnail)
		images.GET("/:id/full", GetFullImage)
		images.DELETE("/batch", BatchDeleteImages)
		images.DELETE("/:id", DeleteImage)
		images.POST("/:id/convert-gif", ConvertImageToGIF)
	}

	tags := router.Group("/tags")
	{
		tags.GET("", ListTags)
		tags.POST("", CreateTag)
		tags.PUT("/:id", RenameTag)
		tags.DELETE("/:id", DeleteTag)
		tags.POST("/batch/add", BatchAddTags)
		tags.POST("/batch/remove", BatchRemoveTags)
		tags.GET("/image/:imageId", GetImageTags)
	}

	router.GET("/health", Health)

	return router
}

func pngUpload(t *testing.T, w, h int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// gifUpload builds a GIF with the given frame count from solid-color frames.
func gifUpload(t *testing.T, w, h, frames int) []byte {
	t.Helper()
	g := &gif.GIF{LoopCount: 0}
	palette := color.Palette{
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 255, 0, 255},
	}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), palette)
		for p := range frame.Pix {
			frame.Pix[p] = uint8(i % len(palette))
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

// multipartBody builds a single-file upload body. The part carries a
// Content-Type derived from the filename extension, the way browsers send it;
// CreateFormFile would hardcode application/octet-stream.
func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	return doRequest(router, method, path, bytes.NewBufferString(body), "application/json")
}

func uploadPNG(t *testing.T, router *gin.Engine, filename string, data []byte) map[string]any {
	t.Helper()
	body, contentType := multipartBody(t, filename, data)
	rec := doRequest(router, http.MethodPost, "/images/upload", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON(t, rec)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
