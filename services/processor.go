package services

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// WebP sources are decoded through x/image; encoding goes through chai2010.
	_ "golang.org/x/image/webp"
)

const (
	maxMasterSize    = 2048 // longest side of the compressed master
	thumbnailSize    = 300
	jpegQuality      = 85
	webpQuality      = 85
	thumbJPEGQuality = 80
)

// transformSem bounds concurrent CPU-bound decode/encode work so a burst of
// uploads cannot monopolize the process.
var transformSem = make(chan struct{}, 4)

// SetTransformSlots resizes the transform semaphore. Called once at startup.
func SetTransformSlots(n int) {
	if n < 1 {
		n = 1
	}
	transformSem = make(chan struct{}, n)
}

type ImageMetadata struct {
	Width  int
	Height int
	Format string // as reported by the registered decoder: jpeg, png, gif, webp, ...
	Size   int64
}

// ProbeImage reads dimensions and format from the file header without
// decoding the full image.
func ProbeImage(path string) (*ImageMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	return &ImageMetadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Size:   info.Size(),
	}, nil
}

// CompressImage produces the master copy at dst: resized to fit within
// maxMasterSize (never upscaled) and re-encoded with a format-appropriate
// quality policy. GIFs are copied byte-for-byte so multi-frame animation
// survives. Returns metadata measured from the written master.
func CompressImage(src, dst string) (*ImageMetadata, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("create master directory: %w", err)
	}

	meta, err := ProbeImage(src)
	if err != nil {
		return nil, err
	}

	// Re-encoding a GIF would flatten animation to a single frame.
	if meta.Format == "gif" {
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("copy gif master: %w", err)
		}
		return ProbeImage(dst)
	}

	transformSem <- struct{}{}
	defer func() { <-transformSem }()

	img, err := imaging.Open(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if meta.Width > maxMasterSize || meta.Height > maxMasterSize {
		img = imaging.Fit(img, maxMasterSize, maxMasterSize, imaging.Lanczos)
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create master file: %w", err)
	}
	defer out.Close()

	switch meta.Format {
	case "jpeg":
		err = imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case "png":
		err = imaging.Encode(out, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "webp":
		err = webp.Encode(out, img, &webp.Options{Quality: webpQuality})
	case "bmp":
		err = imaging.Encode(out, img, imaging.BMP)
	case "tiff":
		err = imaging.Encode(out, img, imaging.TIFF)
	default:
		// Decodable but with no matching encoder: keep the original bytes.
		out.Close()
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("copy master: %w", err)
		}
		return ProbeImage(dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode master: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("write master: %w", err)
	}

	return ProbeImage(dst)
}

// GenerateThumbnail writes a thumbnailSize square derivative at dst,
// center-cropped to fill. Animated GIF sources produce an animated GIF
// thumbnail looping forever; everything else becomes a static JPEG.
func GenerateThumbnail(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}

	meta, err := ProbeImage(src)
	if err != nil {
		return err
	}

	transformSem <- struct{}{}
	defer func() { <-transformSem }()

	if meta.Format == "gif" {
		if animated, err := writeAnimatedThumbnail(src, dst); err != nil {
			return err
		} else if animated {
			return nil
		}
		// Single-frame GIF falls through to the static path.
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fill(img, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := imaging.Encode(out, thumb, imaging.JPEG, imaging.JPEGQuality(thumbJPEGQuality)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Close()
}

// writeAnimatedThumbnail handles the multi-frame GIF case. Reports false for
// single-frame GIFs so the caller can use the static path instead.
func writeAnimatedThumbnail(src, dst string) (bool, error) {
	f, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("open gif: %w", err)
	}
	g, err := gif.DecodeAll(f)
	f.Close()
	if err != nil {
		return false, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) < 2 {
		return false, nil
	}

	resized := resizeGIF(g, thumbnailSize, thumbnailSize, true)

	out, err := os.Create(dst)
	if err != nil {
		return false, fmt.Errorf("create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := gif.EncodeAll(out, resized); err != nil {
		return false, fmt.Errorf("encode gif thumbnail: %w", err)
	}
	return true, out.Close()
}

// ConvertToGIF writes a GIF rendition of src at dst, bounded to
// thumbnailSize on the longest side without upscaling. Animated sources stay
// animated; static sources become a single-frame GIF.
func ConvertToGIF(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	meta, err := ProbeImage(src)
	if err != nil {
		return err
	}

	transformSem <- struct{}{}
	defer func() { <-transformSem }()

	if meta.Format == "gif" {
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("open gif: %w", err)
		}
		g, err := gif.DecodeAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("decode gif: %w", err)
		}

		resized := resizeGIF(g, thumbnailSize, thumbnailSize, false)

		out, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("create gif file: %w", err)
		}
		defer out.Close()
		if err := gif.EncodeAll(out, resized); err != nil {
			return fmt.Errorf("encode gif: %w", err)
		}
		return out.Close()
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() > thumbnailSize || b.Dy() > thumbnailSize {
		img = imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create gif file: %w", err)
	}
	defer out.Close()
	if err := gif.Encode(out, img, &gif.Options{NumColors: 256}); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return out.Close()
}

// resizeGIF rescales every frame of g. Frames are coalesced onto a shared
// canvas first so partial-frame GIFs don't fall apart, then re-quantized with
// each frame's own palette. fill selects center-crop (thumbnails) versus
// fit-inside without upscaling (GIF conversion). The result loops forever.
func resizeGIF(g *gif.GIF, width, height int, fill bool) *gif.GIF {
	srcW, srcH := g.Config.Width, g.Config.Height
	if srcW == 0 || srcH == 0 {
		b := g.Image[0].Bounds()
		srcW, srcH = b.Dx(), b.Dy()
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, srcW, srcH))
	out := &gif.GIF{LoopCount: 0}

	for i, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		var resized *image.NRGBA
		if fill {
			resized = imaging.Fill(canvas, width, height, imaging.Center, imaging.Lanczos)
		} else if srcW > width || srcH > height {
			resized = imaging.Fit(canvas, width, height, imaging.Lanczos)
		} else {
			resized = imaging.Clone(canvas)
		}

		pal := image.NewPaletted(resized.Bounds(), frame.Palette)
		draw.FloydSteinberg.Draw(pal, resized.Bounds(), resized, image.Point{})

		out.Image = append(out.Image, pal)
		if i < len(g.Delay) {
			out.Delay = append(out.Delay, g.Delay[i])
		} else {
			out.Delay = append(out.Delay, 0)
		}
		out.Disposal = append(out.Disposal, gif.DisposalNone)
	}

	b := out.Image[0].Bounds()
	out.Config = image.Config{
		ColorModel: out.Image[0].Palette,
		Width:      b.Dx(),
		Height:     b.Dy(),
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
