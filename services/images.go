package services

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/models"
)

var ErrImageNotFound = errors.New("image not found")

type ImageListResult struct {
	Images []models.Image
	Total  int64
	Page   int
	Limit  int
}

// ListImages returns a page of images, newest first. tagIDs filters to images
// carrying at least one of the given tags (OR semantics); search matches the
// original filename or any associated tag name, case-insensitively.
func ListImages(page, limit int, tagIDs []string, search string) (*ImageListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	query := database.DB.Model(&models.Image{})

	if len(tagIDs) > 0 {
		query = query.Where("id IN (?)",
			database.DB.Model(&models.ImageTag{}).Select("image_id").Where("tag_id IN ?", tagIDs))
	}

	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		query = query.Where(
			"lower(original_name) LIKE ? OR id IN (?)",
			pattern,
			database.DB.Model(&models.ImageTag{}).
				Select("image_tags.image_id").
				Joins("JOIN tags ON tags.id = image_tags.tag_id").
				Where("lower(tags.name) LIKE ?", pattern),
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	var images []models.Image
	err := query.Preload("Tags").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	if images == nil {
		images = []models.Image{}
	}

	return &ImageListResult{Images: images, Total: total, Page: page, Limit: limit}, nil
}

// GetImage fetches a single record by id.
func GetImage(id string) (*models.Image, error) {
	var img models.Image
	if err := database.DB.Where("id = ?", id).First(&img).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &img, nil
}

// DeleteImage removes the master and thumbnail files, the tag associations
// and the database record. File removal is best effort: a failed unlink is
// logged and never blocks deletion of the record, so listings stay
// consistent even if the filesystem lags behind.
func DeleteImage(id string) (*models.Image, error) {
	img, err := GetImage(id)
	if err != nil {
		return nil, err
	}

	for _, path := range []string{img.StoragePath, img.ThumbnailPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to delete image file", "path", path, "error", err)
		}
	}

	if err := database.DB.Where("image_id = ?", id).Delete(&models.ImageTag{}).Error; err != nil {
		return nil, fmt.Errorf("delete tag associations: %w", err)
	}
	if err := database.DB.Delete(&models.Image{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("delete image record: %w", err)
	}

	return img, nil
}

// ConvertImageToGIF renders the stored master as a bounded GIF into a fresh
// temp file and returns its path. The caller owns the file and must remove
// it after streaming it out.
func ConvertImageToGIF(id string) (string, error) {
	img, err := GetImage(id)
	if err != nil {
		return "", err
	}

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("gif-%d-%s.gif", time.Now().UnixNano(), img.Hash))
	if err := ConvertToGIF(img.StoragePath, tempPath); err != nil {
		return "", err
	}
	return tempPath, nil
}
