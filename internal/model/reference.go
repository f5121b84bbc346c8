package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reference is the shape shared by the lookup tables a Property points at
type Reference struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	EsName    string    `json:"es_name" gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not
func (r *Reference) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PropertyType classifies a Property (house, land, warehouse...)
type PropertyType struct {
	Reference
}

func (PropertyType) TableName() string { return "property_types" }

// Status is the commercial status of a Property (rent, sell)
type Status struct {
	Reference
}

func (Status) TableName() string { return "statuses" }

// ListingType is how a Property is being offered
type ListingType struct {
	Reference
}

func (ListingType) TableName() string { return "listing_types" }

// ReferenceKind describes one lookup table and how properties point at it
type ReferenceKind struct {
	// Table is the SQL table name
	Table string
	// ForeignKey is the properties column referencing the table
	ForeignKey string
	// Singular is the human name used in messages ("property type")
	Singular string
	// RootKey is the JSON key wrapping request bodies ("property_type")
	RootKey string
	// Normalize lowercases and trims name and es_name before persistence and makes the
	// name comparison case-insensitive
	Normalize bool
}

var (
	PropertyTypeKind = ReferenceKind{
		Table:      "property_types",
		ForeignKey: "property_type_id",
		Singular:   "property type",
		RootKey:    "property_type",
		Normalize:  true,
	}
	StatusKind = ReferenceKind{
		Table:      "statuses",
		ForeignKey: "status_id",
		Singular:   "status",
		RootKey:    "status",
	}
	ListingTypeKind = ReferenceKind{
		Table:      "listing_types",
		ForeignKey: "listing_type_id",
		Singular:   "listing type",
		RootKey:    "listing_type",
	}
)
