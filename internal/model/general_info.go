package model

import (
	"time"

	"gorm.io/gorm"
)

// SingletonGuard is the only value the general_infos.singleton_guard column may hold
const SingletonGuard = 0

// GeneralInfo is the site wide contact information. The unique index on SingletonGuard
// lets the table hold a single row.
type GeneralInfo struct {
	ID             uint      `json:"-" gorm:"primarykey"`
	Phone          string    `json:"phone" gorm:"type:varchar(64);not null;default:''"`
	Whatsapp       string    `json:"whatsapp" gorm:"type:varchar(64);not null;default:''"`
	EmailTo        string    `json:"email_to" gorm:"type:varchar(255);not null;default:''"`
	SingletonGuard int       `json:"-" gorm:"not null;default:0;uniqueIndex"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// TableName keeps the table name stable
func (GeneralInfo) TableName() string { return "general_infos" }

// BeforeSave pins the guard so a second row always collides with the first
func (g *GeneralInfo) BeforeSave(tx *gorm.DB) error {
	g.SingletonGuard = SingletonGuard
	return nil
}
