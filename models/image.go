package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Image struct {
	ID            string    `gorm:"primaryKey;type:text" json:"id"` // SQLite uses text for UUID
	Hash          string    `gorm:"uniqueIndex;not null" json:"hash"`
	OriginalName  string    `json:"originalName"`
	MimeType      string    `json:"mimeType"`
	Size          int64     `json:"size"`   // bytes of the compressed master, not the upload
	Width         int       `json:"width"`  // measured from the compressed master
	Height        int       `json:"height"` // measured from the compressed master
	StoragePath   string    `json:"storagePath"`
	ThumbnailPath string    `json:"thumbnailPath"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Tags []Tag `gorm:"many2many:image_tags" json:"tags"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ImageTag is the join row between an image and a tag. The composite primary
// key makes the pair unique; batch association relies on it for
// ON CONFLICT DO NOTHING idempotence.
type ImageTag struct {
	ImageID   string    `gorm:"primaryKey;type:text" json:"imageId"`
	TagID     string    `gorm:"primaryKey;type:text" json:"tagId"`
	CreatedAt time.Time `json:"createdAt"`
}
