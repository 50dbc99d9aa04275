package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/models"
	"github.com/MiaowFISH/emohub/storage"
)

type UploadResult struct {
	Image     *models.Image
	Duplicate bool
}

// HashFile streams the file through SHA-256 and returns the hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IngestImage turns an uploaded byte stream into a deduplicated, compressed,
// thumbnailed, catalogued image. Identical content is stored exactly once:
// a hash hit short-circuits before any filesystem write, and a concurrent
// duplicate upload that loses the insert race converges to the same record
// via the unique index on hash. The scratch file is removed on every exit
// path.
func IngestImage(filename, mimeType string, r io.Reader) (*UploadResult, error) {
	scratch := filepath.Join(os.TempDir(), fmt.Sprintf("upload-%d-%s", time.Now().UnixNano(), filepath.Base(filename)))
	defer func() {
		if err := os.Remove(scratch); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove scratch file", "path", scratch, "error", err)
		}
	}()

	if err := writeStream(scratch, r); err != nil {
		return nil, err
	}

	hash, err := HashFile(scratch)
	if err != nil {
		return nil, err
	}

	var existing models.Image
	err = database.DB.Where("hash = ?", hash).First(&existing).Error
	if err == nil {
		return &UploadResult{Image: &existing, Duplicate: true}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up hash: %w", err)
	}

	masterPath := storage.ImagePath(hash)
	thumbnailPath := storage.ThumbnailPath(hash)

	// Record dimensions and size come from the compressed master, not the
	// original upload.
	meta, err := CompressImage(scratch, masterPath)
	if err != nil {
		return nil, err
	}
	if err := GenerateThumbnail(scratch, thumbnailPath); err != nil {
		return nil, err
	}

	img := models.Image{
		Hash:          hash,
		OriginalName:  filename,
		MimeType:      mimeType,
		Size:          meta.Size,
		Width:         meta.Width,
		Height:        meta.Height,
		StoragePath:   masterPath,
		ThumbnailPath: thumbnailPath,
	}
	if err := database.DB.Create(&img).Error; err != nil {
		// A concurrent upload of the same content won the insert race. The
		// unique index is the dedupe authority; fetch the winning record.
		// Our derivative writes land on the same hash-derived paths with
		// identical content, so nothing needs undoing.
		if isUniqueViolation(err) {
			var winner models.Image
			if ferr := database.DB.Where("hash = ?", hash).First(&winner).Error; ferr == nil {
				return &UploadResult{Image: &winner, Duplicate: true}, nil
			}
			return nil, fmt.Errorf("fetch record after duplicate insert: %w", err)
		}
		return nil, fmt.Errorf("create image record: %w", err)
	}

	return &UploadResult{Image: &img, Duplicate: false}, nil
}

// writeStream copies r to a new file at path without buffering the whole
// stream in memory.
func writeStream(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close scratch file: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
