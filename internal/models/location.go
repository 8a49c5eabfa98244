package models

import "time"

// Country, State and City are reference data seeded once and served from
// cache.
type Country struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `gorm:"size:300;not null" json:"name"`
	Code      string `gorm:"size:300" json:"code"`
	IsActive  bool   `gorm:"default:true" json:"-"`
	CreatedAt time.Time `json:"-"`
}

type State struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `gorm:"size:300;not null" json:"name"`
	Code      string `gorm:"size:300" json:"code"`
	CountryID uint   `gorm:"index;not null" json:"country_id"`
	IsActive  bool   `gorm:"default:true" json:"-"`
	CreatedAt time.Time `json:"-"`
}

type City struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `gorm:"size:300;not null" json:"name"`
	StateID   uint   `gorm:"index;not null" json:"state_id"`
	IsActive  bool   `gorm:"default:true" json:"-"`
	CreatedAt time.Time `json:"-"`
}
