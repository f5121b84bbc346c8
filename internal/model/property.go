package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Property is a listing published on the site
type Property struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title         string    `gorm:"type:varchar(255);not null"`
	Description   *string   `gorm:"type:text"`
	LandArea      *float64  `gorm:"type:decimal(12,2)"`
	BuiltArea     *float64  `gorm:"type:decimal(12,2)"`
	Rooms         int       `gorm:"not null;default:0"`
	Bathrooms     int       `gorm:"not null;default:0"`
	HalfBathrooms int       `gorm:"not null;default:0"`
	ParkingSpaces int       `gorm:"not null;default:0"`
	Price         float64   `gorm:"type:decimal(14,2);not null"`
	Featured      bool      `gorm:"not null;default:false;index"`
	Address       string    `gorm:"type:varchar(255);not null"`
	City          *string   `gorm:"type:varchar(255)"`
	State         *string   `gorm:"type:varchar(255)"`
	ZipCode       *string   `gorm:"type:varchar(32)"`
	Neighborhood  *string   `gorm:"type:varchar(255);index"`
	Coordinates   *string   `gorm:"type:varchar(64)"`

	PropertyTypeID uuid.UUID     `gorm:"type:uuid;not null;index"`
	PropertyType   *PropertyType `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	StatusID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status         *Status       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	ListingTypeID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	ListingType    *ListingType  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`

	Attachments []Attachment

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// BeforeCreate assigns a UUID when the caller did not
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Images returns the image attachments in display order
func (p *Property) Images() []Attachment {
	return p.attachmentsOf(AttachmentImage)
}

// Videos returns the video attachments in display order
func (p *Property) Videos() []Attachment {
	return p.attachmentsOf(AttachmentVideo)
}

func (p *Property) attachmentsOf(kind AttachmentKind) []Attachment {
	out := make([]Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
