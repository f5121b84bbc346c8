package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultRole is assigned to users registered without one
const DefaultRole = "admin"

// User is a dashboard account. JTI is rotated on sign out, revoking every token that
// carries the previous value.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:encrypted_password;type:varchar(255);not null"`
	Name         string    `json:"name" gorm:"type:varchar(255)"`
	Role         string    `json:"role" gorm:"type:varchar(64);not null;default:'admin'"`
	JTI          string    `json:"-" gorm:"column:jti;type:varchar(64);not null;uniqueIndex"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns the id and the first jti
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.JTI == "" {
		u.JTI = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	return nil
}
