package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttachmentKind names the collection of a Property an attachment belongs to
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
)

// Accepts reports whether contentType belongs to the kind's media class
func (k AttachmentKind) Accepts(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), string(k)+"/")
}

// Collection is the plural name used by the API for the kind ("images")
func (k AttachmentKind) Collection() string {
	return string(k) + "s"
}

// Attachment is the metadata of a blob owned by one Property
type Attachment struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	PropertyID  uuid.UUID      `json:"property_id" gorm:"type:uuid;not null;index:idx_attachments_owner,priority:1"`
	Kind        AttachmentKind `json:"kind" gorm:"type:varchar(16);not null;index:idx_attachments_owner,priority:2"`
	Key         string         `json:"-" gorm:"type:varchar(255);not null;uniqueIndex"`
	Filename    string         `json:"filename" gorm:"type:varchar(255);not null"`
	ContentType string         `json:"content_type" gorm:"type:varchar(255);not null"`
	ByteSize    int64          `json:"byte_size" gorm:"not null;default:0"`
	Position    int            `json:"-" gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
