package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Known tag categories. Category is free-form text, these are just the values
// the UI offers.
const (
	TagCategoryCharacter = "character"
	TagCategorySeries    = "series"
	TagCategoryKeyword   = "keyword"
	TagCategoryOther     = "other"
)

type Tag struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"` // trimmed + lowercased
	Category  string    `gorm:"default:keyword" json:"category"`
	CreatedAt time.Time `json:"createdAt"`

	// Number of associated images, filled at read time by a count subquery.
	ImageCount int64 `gorm:"->;-:migration" json:"imageCount"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
