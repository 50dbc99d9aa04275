package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/models"
)

var (
	ErrEmptyTagName = errors.New("tag name cannot be empty")
	ErrTagNotFound  = errors.New("tag not found")
	ErrTagNameTaken = errors.New("tag name already exists")
)

// NormalizeTagName trims whitespace and lowercases, so "  Cat " and "cat"
// name the same tag.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateTag is an idempotent create-or-fetch keyed by the normalized name.
// Creating a name that normalizes to an existing tag returns the existing
// tag; a lost insert race against a concurrent create converges the same way
// through the unique index.
func CreateTag(name, category string) (*models.Tag, error) {
	normalized := NormalizeTagName(name)
	if normalized == "" {
		return nil, ErrEmptyTagName
	}
	if category == "" {
		category = models.TagCategoryKeyword
	}

	var existing models.Tag
	err := database.DB.Where("name = ?", normalized).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up tag: %w", err)
	}

	tag := models.Tag{Name: normalized, Category: category}
	if err := database.DB.Create(&tag).Error; err != nil {
		if isUniqueViolation(err) {
			if ferr := database.DB.Where("name = ?", normalized).First(&existing).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return &tag, nil
}

// ListTags returns up to 100 tags alphabetically, optionally filtered by a
// case-insensitive name substring, each with its read-time image count.
func ListTags(search string) ([]models.Tag, error) {
	query := database.DB.Model(&models.Tag{}).
		Select("tags.*, (SELECT COUNT(*) FROM image_tags WHERE image_tags.tag_id = tags.id) AS image_count")

	if s := strings.TrimSpace(search); s != "" {
		query = query.Where("lower(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var tags []models.Tag
	if err := query.Order("name ASC").Limit(100).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// RenameTag renames a tag, enforcing name uniqueness against every other
// tag. Renaming a tag to its own current name is allowed.
func RenameTag(id, newName string) (*models.Tag, error) {
	normalized := NormalizeTagName(newName)
	if normalized == "" {
		return nil, ErrEmptyTagName
	}

	var tag models.Tag
	if err := database.DB.Where("id = ?", id).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	var conflict models.Tag
	err := database.DB.Where("name = ? AND id <> ?", normalized, id).First(&conflict).Error
	if err == nil {
		return nil, ErrTagNameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check name conflict: %w", err)
	}

	if err := database.DB.Model(&tag).Update("name", normalized).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTagNameTaken
		}
		return nil, fmt.Errorf("rename tag: %w", err)
	}
	tag.Name = normalized
	return &tag, nil
}

// DeleteTag removes a tag and its image associations. Images themselves are
// never deleted.
func DeleteTag(id string) (*models.Tag, error) {
	var tag models.Tag
	if err := database.DB.Where("id = ?", id).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	if err := database.DB.Where("tag_id = ?", id).Delete(&models.ImageTag{}).Error; err != nil {
		return nil, fmt.Errorf("delete tag associations: %w", err)
	}
	if err := database.DB.Delete(&models.Tag{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("delete tag: %w", err)
	}
	return &tag, nil
}

// GetImageTags returns the tags associated with one image.
func GetImageTags(imageID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := database.DB.Model(&models.Tag{}).
		Select("tags.*").
		Joins("JOIN image_tags ON image_tags.tag_id = tags.id").
		Where("image_tags.image_id = ?", imageID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("get image tags: %w", err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// BatchAddTags associates every (image, tag) pair. Existing pairs are
// silently skipped through ON CONFLICT DO NOTHING, never duplicated and
// never an error.
func BatchAddTags(imageIDs, tagIDs []string) error {
	pairs := make([]models.ImageTag, 0, len(imageIDs)*len(tagIDs))
	for _, imageID := range imageIDs {
		for _, tagID := range tagIDs {
			pairs = append(pairs, models.ImageTag{ImageID: imageID, TagID: tagID})
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&pairs).Error
	if err != nil {
		return fmt.Errorf("add tag associations: %w", err)
	}
	return nil
}

// BatchRemoveTags deletes exactly the named (image, tag) pairs. Absent pairs
// are a no-op.
func BatchRemoveTags(imageIDs, tagIDs []string) error {
	err := database.DB.
		Where("image_id IN ? AND tag_id IN ?", imageIDs, tagIDs).
		Delete(&models.ImageTag{}).Error
	if err != nil {
		return fmt.Errorf("remove tag associations: %w", err)
	}
	return nil
}
