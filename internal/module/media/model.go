// Package media manages the video catalogue and the object store holding
// the uploaded files.
package media

import (
	"time"

	"github.com/google/uuid"
)

// Video is a catalogue entry pointing at uploaded media files.
type Video struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title        string    `json:"title" gorm:"not null"`
	Description  string    `json:"description" gorm:"type:text;not null"`
	Category     string    `json:"category" gorm:"not null;index"`
	Status       string    `json:"status" gorm:"not null;index"`
	FileURL      string    `json:"fileUrl" gorm:"column:file_url;not null"`
	ThumbnailURL string    `json:"thumbnailUrl" gorm:"column:thumbnail_url;not null"`
	TrailerURL   *string   `json:"trailerUrl" gorm:"column:trailer_url"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the database table name.
func (Video) TableName() string {
	return "videos"
}
