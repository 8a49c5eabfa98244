package models

import "gorm.io/datatypes"

// Built-in role names.
const (
	RoleSysadmin = "sysadmin"
	RoleAdmin    = "admin"
	RoleSupport  = "support"
	RoleUser     = "user"
)

// Permission is a single named right, grouped for display.
type Permission struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Label     string `gorm:"size:255" json:"label"`
	GroupName string `gorm:"size:255" json:"group_name"`
}

// Role bundles permissions. UserCanBeCreatedBy widens the hierarchy: it lists
// role ids whose holders may create or manage users carrying this role, on
// top of the static hierarchy.
type Role struct {
	BaseModel
	Name               string         `gorm:"size:255" json:"name"`
	Label              string         `gorm:"size:255;uniqueIndex;not null" json:"label"`
	Description        string         `json:"description"`
	Permissions        []Permission   `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	UserCanBeCreatedBy datatypes.JSON `json:"user_can_be_created_by,omitempty"`
	IsDefault          bool           `gorm:"default:true" json:"is_default"`
}
