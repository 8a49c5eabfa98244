// Package models defines the gorm entities for the platform.
package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel carries the bookkeeping columns shared by administrable entities:
// activation state, soft deletion and actor attribution. Soft-deleted rows are
// excluded by the explicit query scopes below, never by implicit managers.
type BaseModel struct {
	ID          uint `gorm:"primarykey"`
	IsActive    bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	CreatedByID *uint
	UpdatedAt   time.Time
	UpdatedByID *uint
	IsDeleted   bool `gorm:"not null;default:false;index"`
	DeletedAt   *time.Time
	DeletedByID *uint
}

// Available filters out soft-deleted rows.
func Available(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// ActiveAvailable filters to rows that are active and not soft-deleted.
func ActiveAvailable(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ? AND is_deleted = ?", true, false)
}
