package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MiaowFISH/emohub/models"
	"github.com/MiaowFISH/emohub/services"
)

// MaxUploadBytes caps a single uploaded file. Overridden from config at
// startup.
var MaxUploadBytes int64 = 10 << 20

// UploadedImage mirrors the stored record but adds the duplicate flag for
// this upload.
type UploadedImage struct {
	models.Image
	Duplicate bool `json:"duplicate"`
}

// UploadImages handles multipart upload of one or more files under the
// repeatable "file" field. Files are ingested sequentially; the first
// failure aborts the request.
func UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Failed to parse multipart form"})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No files uploaded (field 'file' missing or empty)"})
		return
	}

	results := make([]UploadedImage, 0, len(files))
	for _, fileHeader := range files {
		if fileHeader.Size > MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "File too large"})
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not open uploaded file"})
			return
		}

		result, err := services.IngestImage(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
		src.Close()
		if err != nil {
			slog.Warn("upload failed", "filename", fileHeader.Filename, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		results = append(results, UploadedImage{Image: *result.Image, Duplicate: result.Duplicate})
	}

	if len(results) == 1 {
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": results[0]})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": results})
}

// ListImages returns a paginated image listing.
// Query params: page, limit, tagIds (comma-separated), search.
func ListImages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var tagIDs []string
	if raw := c.Query("tagIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				tagIDs = append(tagIDs, id)
			}
		}
	}

	result, err := services.ListImages(page, limit, tagIDs, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Images,
		"meta": gin.H{
			"total": result.Total,
			"page":  result.Page,
			"limit": result.Limit,
		},
	})
}

// GetThumbnail serves the thumbnail bytes for an image. The type comes from
// the derivative on disk, not the source mime: a single-frame GIF upload gets
// a JPEG thumbnail.
func GetThumbnail(c *gin.Context) {
	img, err := services.GetImage(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Image not found"})
		return
	}

	path := img.ThumbnailPath
	if path == "" {
		path = img.StoragePath
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Thumbnail file missing"})
		return
	}

	c.Header("Content-Type", thumbnailContentType(path))
	c.File(path)
}

// thumbnailContentType sniffs the derivative's header. Thumbnails are only
// ever GIF (animated sources) or JPEG, so three bytes decide.
func thumbnailContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "image/jpeg"
	}
	defer f.Close()

	header := make([]byte, 3)
	if _, err := io.ReadFull(f, header); err == nil && string(header) == "GIF" {
		return "image/gif"
	}
	return "image/jpeg"
}

// GetFullImage serves the compressed master with the record's declared MIME
// type.
func GetFullImage(c *gin.Context) {
	img, err := services.GetImage(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Image not found"})
		return
	}

	if _, err := os.Stat(img.StoragePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Image file missing"})
		return
	}

	c.Header("Content-Type", img.MimeType)
	c.File(img.StoragePath)
}

// DeleteImage removes one image, its files and its tag associations.
func DeleteImage(c *gin.Context) {
	img, err := services.DeleteImage(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": img})
}

// BatchDeleteImages deletes many images, best effort per id.
func BatchDeleteImages(c *gin.Context) {
	var input struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(input.IDs))
	for _, id := range input.IDs {
		_, err := services.DeleteImage(id)
		if err != nil && !errors.Is(err, services.ErrImageNotFound) {
			slog.Warn("batch delete failed", "id", id, "error", err)
		}
		results = append(results, gin.H{"id": id, "deleted": err == nil})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": results})
}

// ConvertImageToGIF renders the master as a bounded GIF, streams it as an
// attachment and removes the temp file once the response is written.
func ConvertImageToGIF(c *gin.Context) {
	tempPath, err := services.ConvertImageToGIF(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Image not found"})
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			slog.Warn("failed to clean up temp GIF", "path", tempPath, "error", err)
		}
	}()

	c.Header("Content-Type", "image/gif")
	c.Header("Content-Disposition", `attachment; filename="image.gif"`)
	c.File(tempPath)
}
