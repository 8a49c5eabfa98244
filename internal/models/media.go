package models

import (
	"time"

	"gorm.io/datatypes"
)

// Upload destination buckets.
const (
	UploadToImages    = "images"
	UploadToVideos    = "videos"
	UploadToAudios    = "audios"
	UploadToDocuments = "documents"
	UploadToGeneral   = "general"
)

// Media is a catalog entry describing a kind of uploadable file (profile
// photo, document) along with its validation rules.
type Media struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Name             string         `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Label            string         `gorm:"size:255;uniqueIndex;not null" json:"label"`
	Description      string         `json:"description"`
	AllowedFileTypes datatypes.JSON `json:"allowed_file_types"`
	MaxFileSizeInKB  int            `gorm:"default:1000" json:"max_file_size_in_kb"`
	UploadTo         string         `gorm:"size:50;default:'general'" json:"upload_to"`
	CreatedAt        time.Time      `json:"-"`
	UpdatedAt        time.Time      `json:"-"`
}

// UploadedMedia records a stored file and its owner.
type UploadedMedia struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	UserID    *uint  `gorm:"index" json:"-"`
	URL       string `json:"url"`
	Name      string `gorm:"size:255" json:"name"`
	Size      int    `json:"size"`
	FileType  string `gorm:"size:255" json:"file_type"`
	MediaID   *uint  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
