package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

var basePath = filepath.Join(".", "storage")

// Init sets the storage root and creates the images/ and thumbnails/
// subdirectories. Called once at startup before any ingest runs.
func Init(path string) error {
	if path == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	for _, dir := range []string{filepath.Join(path, "images"), filepath.Join(path, "thumbnails")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	basePath = path
	return nil
}

func Base() string {
	return basePath
}

// ImagePath maps a content hash to the master file location. The first two
// hex characters shard the directory so no single directory grows unbounded.
// Paths depend only on the hash, so concurrent writers for the same content
// always agree.
func ImagePath(hash string) string {
	return filepath.Join(basePath, "images", hash[:2], hash)
}

// ThumbnailPath maps a content hash to the thumbnail location, sharded the
// same way as ImagePath.
func ThumbnailPath(hash string) string {
	return filepath.Join(basePath, "thumbnails", hash[:2], hash)
}
