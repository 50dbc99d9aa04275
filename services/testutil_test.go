package services

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/storage"
)

// setupTest points the global DB at a fresh file-backed SQLite database and
// the storage layer at a fresh temp root.
func setupTest(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, database.Connect(filepath.Join(dir, "test.db")))
	require.NoError(t, storage.Init(filepath.Join(dir, "storage")))
}

func testImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int, seed int64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h, seed)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int, seed int64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h, seed), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// animatedGIFBytes builds a multi-frame GIF with solid-color frames.
func animatedGIFBytes(t *testing.T, w, h, frames int) []byte {
	t.Helper()
	g := &gif.GIF{LoopCount: 0}
	palette := color.Palette{
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 255, 0, 255},
		color.RGBA{0, 0, 255, 255},
	}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), palette)
		for p := range frame.Pix {
			frame.Pix[p] = uint8(1 + i%3)
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}
