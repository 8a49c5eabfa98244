package models

import (
	"time"

	"gorm.io/datatypes"
)

// APIRequestLog is the audit trail row written asynchronously around each
// logged request. RefID correlates the pre-dispatch insert with the
// post-dispatch update.
type APIRequestLog struct {
	ID           uint   `gorm:"primarykey"`
	UserID       *uint  `gorm:"index"`
	Path         string `gorm:"size:255"`
	RefID        string `gorm:"size:255;index;not null"`
	Headers      datatypes.JSON
	RequestData  datatypes.JSON
	ResponseBody datatypes.JSON
	Status       string `gorm:"size:100"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Activity is a free-form operational event reported by services.
type Activity struct {
	ID          uint   `gorm:"primarykey"`
	UserID      *uint  `gorm:"index"`
	Title       string `gorm:"size:255"`
	Description string
	CreatedAt   time.Time
}
