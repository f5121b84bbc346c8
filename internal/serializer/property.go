// Package serializer projects models to the JSON shapes served by the API.
package serializer

import (
	"strconv"
	"strings"

	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/pagination"
	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

// geohashPrecision is about 150m on a side, enough to group nearby listings
const geohashPrecision = 7

// URLSigner builds the public URL of a stored blob
type URLSigner interface {
	URL(key, filename, contentType string) (string, error)
}

// ReferenceView is the embedded form of a property type, status or listing type
type ReferenceView struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	EsName string    `json:"es_name"`
}

// AttachmentView is one image or video of a property
type AttachmentView struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
}

// PropertyView is the public representation of a property
type PropertyView struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Description    *string          `json:"description"`
	LandArea       *float64         `json:"land_area"`
	BuiltArea      *float64         `json:"built_area"`
	Rooms          int              `json:"rooms"`
	Bathrooms      int              `json:"bathrooms"`
	HalfBathrooms  int              `json:"half_bathrooms"`
	ParkingSpaces  int              `json:"parking_spaces"`
	Price          float64          `json:"price"`
	Featured       bool             `json:"featured"`
	Address        string           `json:"address"`
	City           *string          `json:"city"`
	State          *string          `json:"state"`
	ZipCode        *string          `json:"zip_code"`
	Neighborhood   *string          `json:"neighborhood"`
	Coordinates    *string          `json:"coordinates"`
	Geohash        string           `json:"geohash,omitempty"`
	PropertyTypeID uuid.UUID        `json:"property_type_id"`
	StatusID       uuid.UUID        `json:"status_id"`
	ListingTypeID  uuid.UUID        `json:"listing_type_id"`
	PropertyType   *ReferenceView   `json:"property_type"`
	Status         *ReferenceView   `json:"status"`
	ListingType    *ReferenceView   `json:"listing_type"`
	Images         []AttachmentView `json:"images"`
	Videos         []AttachmentView `json:"videos"`
}

// PropertyList is a page of properties
type PropertyList struct {
	Data     []PropertyView  `json:"data"`
	Metadata pagination.Meta `json:"metadata"`
}

// PropertySerializer renders properties with signed attachment URLs
type PropertySerializer struct {
	signer URLSigner
}

// NewPropertySerializer creates a PropertySerializer
func NewPropertySerializer(signer URLSigner) *PropertySerializer {
	return &PropertySerializer{signer: signer}
}

// Property projects one property
func (s *PropertySerializer) Property(p *model.Property) (PropertyView, error) {
	images, err := s.attachments(p.Images())
	if err != nil {
		return PropertyView{}, err
	}
	videos, err := s.attachments(p.Videos())
	if err != nil {
		return PropertyView{}, err
	}

	v := PropertyView{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		LandArea:       p.LandArea,
		BuiltArea:      p.BuiltArea,
		Rooms:          p.Rooms,
		Bathrooms:      p.Bathrooms,
		HalfBathrooms:  p.HalfBathrooms,
		ParkingSpaces:  p.ParkingSpaces,
		Price:          p.Price,
		Featured:       p.Featured,
		Address:        p.Address,
		City:           p.City,
		State:          p.State,
		ZipCode:        p.ZipCode,
		Neighborhood:   p.Neighborhood,
		Coordinates:    p.Coordinates,
		PropertyTypeID: p.PropertyTypeID,
		StatusID:       p.StatusID,
		ListingTypeID:  p.ListingTypeID,
		Images:         images,
		Videos:         videos,
	}
	if p.PropertyType != nil {
		v.PropertyType = reference(p.PropertyType.Reference)
	}
	if p.Status != nil {
		v.Status = reference(p.Status.Reference)
	}
	if p.ListingType != nil {
		v.ListingType = reference(p.ListingType.Reference)
	}
	if p.Coordinates != nil {
		if lat, lng, ok := ParseCoordinates(*p.Coordinates); ok {
			v.Geohash = geohash.EncodeWithPrecision(lat, lng, geohashPrecision)
		}
	}
	return v, nil
}

// List projects a page of properties
func (s *PropertySerializer) List(properties []model.Property, meta pagination.Meta) (PropertyList, error) {
	list := PropertyList{Data: make([]PropertyView, 0, len(properties)), Metadata: meta}
	for i := range properties {
		v, err := s.Property(&properties[i])
		if err != nil {
			return PropertyList{}, err
		}
		list.Data = append(list.Data, v)
	}
	return list, nil
}

func (s *PropertySerializer) attachments(list []model.Attachment) ([]AttachmentView, error) {
	views := make([]AttachmentView, 0, len(list))
	for _, a := range list {
		url, err := s.signer.URL(a.Key, a.Filename, a.ContentType)
		if err != nil {
			return nil, err
		}
		views = append(views, AttachmentView{
			ID:          a.ID,
			URL:         url,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return views, nil
}

func reference(r model.Reference) *ReferenceView {
	return &ReferenceView{ID: r.ID, Name: r.Name, EsName: r.EsName}
}

// ParseCoordinates reads a "lat,lng" pair
func ParseCoordinates(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}
