package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/pagination"
	"github.com/edxco/properlia/pkg/database"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/metrics"
	"github.com/edxco/properlia/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyInput carries the fields a client supplied. A nil pointer means "not supplied";
// Cleared lists optional columns explicitly set to null or blank. Invalid holds type
// conversion failures found while reading the request.
type PropertyInput struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	LandArea       *float64 `json:"land_area" validate:"omitempty,gte=0"`
	BuiltArea      *float64 `json:"built_area" validate:"omitempty,gte=0"`
	Rooms          *int     `json:"rooms" validate:"omitempty,gte=0"`
	Bathrooms      *int     `json:"bathrooms" validate:"omitempty,gte=0"`
	HalfBathrooms  *int     `json:"half_bathrooms" validate:"omitempty,gte=0"`
	ParkingSpaces  *int     `json:"parking_spaces" validate:"omitempty,gte=0"`
	Price          *float64 `json:"price" validate:"omitempty,gte=0"`
	Featured       *bool    `json:"featured"`
	Address        *string  `json:"address"`
	City           *string  `json:"city"`
	State          *string  `json:"state"`
	ZipCode        *string  `json:"zip_code"`
	Neighborhood   *string  `json:"neighborhood"`
	Coordinates    *string  `json:"coordinates"`
	PropertyTypeID *string  `json:"property_type_id"`
	StatusID       *string  `json:"status_id"`
	ListingTypeID  *string  `json:"listing_type_id"`

	Cleared []string `json:"-"`
	Invalid []string `json:"-"`
}

// requiredColumns may not be cleared
var requiredColumns = map[string]string{
	"title":            "Title can't be blank",
	"address":          "Address can't be blank",
	"price":            "Price can't be blank",
	"property_type_id": "Property type must exist",
	"status_id":        "Status must exist",
	"listing_type_id":  "Listing type must exist",
}

// Media groups the uploads of one request by collection
type Media struct {
	Images []Upload
	Videos []Upload
}

// Empty reports whether no file was uploaded
func (m Media) Empty() bool {
	return len(m.Images) == 0 && len(m.Videos) == 0
}

// PropertyRepository persists properties and answers list queries
type PropertyRepository struct {
	db          *gorm.DB
	attachments *AttachmentStore
	limits      pagination.Limits
}

// NewPropertyRepository creates a PropertyRepository
func NewPropertyRepository(db *gorm.DB, attachments *AttachmentStore, limits pagination.Limits) *PropertyRepository {
	return &PropertyRepository{db: db, attachments: attachments, limits: limits}
}

// Limits returns the page size limits of list queries
func (r *PropertyRepository) Limits() pagination.Limits {
	return r.limits
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("PropertyType").
		Preload("Status").
		Preload("ListingType").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("kind ASC, position ASC, created_at ASC, id ASC")
		})
}

// List returns one page of properties matching filter, newest first
func (r *PropertyRepository) List(ctx context.Context, filter PropertyFilter, page pagination.Page) ([]model.Property, pagination.Meta, error) {
	defer metrics.TrackDBOperation("list_properties")(time.Now())

	properties := []model.Property{}
	if filter.matchesNothing() {
		return properties, pagination.NewMeta(0, page), nil
	}

	db := r.db.WithContext(ctx)
	var count int64
	if err := filter.apply(db, db.Model(&model.Property{})).Count(&count).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("count properties: %w", err)
	}

	meta := pagination.NewMeta(count, page)
	if int64(page.Offset()) >= count {
		return properties, meta, nil
	}

	err := withAssociations(filter.apply(db, db.Model(&model.Property{}))).
		Order("properties.created_at DESC").
		Order("properties.id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&properties).Error
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list properties: %w", err)
	}
	return properties, meta, nil
}

// Get loads a property with its associations
func (r *PropertyRepository) Get(ctx context.Context, id string) (*model.Property, error) {
	defer metrics.TrackDBOperation("get_property")(time.Now())

	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NotFound("Property")
	}
	return r.load(r.db.WithContext(ctx), pid)
}

func (r *PropertyRepository) load(db *gorm.DB, id uuid.UUID) (*model.Property, error) {
	var p model.Property
	err := withAssociations(db).Where("id = ?", id).First(&p).Error
	if database.IsNotFound(err) {
		return nil, apperror.NotFound("Property")
	}
	if err != nil {
		return nil, fmt.Errorf("load property %s: %w", id, err)
	}
	return &p, nil
}

// Create validates and saves a new property with its initial media. Nothing is persisted
// when any field or file is rejected.
func (r *PropertyRepository) Create(ctx context.Context, in PropertyInput, media Media) (*model.Property, error) {
	log := logger.FromContext(ctx)

	p := model.Property{}
	verr := apperror.NewValidation(in.Invalid...)
	r.checkRequiredOnCreate(in, verr)
	r.checkRules(in, verr)
	refs := r.resolveReferences(ctx, in, verr, true)
	r.classifyMedia(media, verr)
	if err := verr.OrNil(); err != nil {
		metrics.RecordPropertyOperation("create", "invalid")
		return nil, err
	}

	applyInput(&p, in, refs)

	images, videos, err := r.stageMedia(ctx, media)
	if err != nil {
		return nil, err
	}
	staged := append(images, videos...)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		defer metrics.TrackDBOperation("create_property")(time.Now())
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return fmt.Errorf("insert property: %w", err)
		}
		return r.attachments.insert(tx, p.ID, staged)
	})
	if err != nil {
		r.attachments.discard(ctx, staged)
		metrics.RecordPropertyOperation("create", "error")
		return nil, err
	}

	metrics.RecordPropertyOperation("create", "ok")
	log.Info("Property created",
		zap.String("property_id", p.ID.String()),
		zap.Int("images", len(images)),
		zap.Int("videos", len(videos)))

	return r.load(r.db.WithContext(ctx), p.ID)
}

// Update applies the supplied fields and appends the supplied media. Fields that were
// not supplied and existing attachments are left untouched.
func (r *PropertyRepository) Update(ctx context.Context, id string, in PropertyInput, media Media) (*model.Property, error) {
	log := logger.FromContext(ctx)

	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := apperror.NewValidation(in.Invalid...)
	r.checkSuppliedNotBlank(in, verr)
	r.checkRules(in, verr)
	refs := r.resolveReferences(ctx, in, verr, false)
	r.classifyMedia(media, verr)
	if err := verr.OrNil(); err != nil {
		metrics.RecordPropertyOperation("update", "invalid")
		return nil, err
	}

	changes := changedColumns(in, refs)

	images, videos, err := r.stageMedia(ctx, media)
	if err != nil {
		return nil, err
	}
	staged := append(images, videos...)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		defer metrics.TrackDBOperation("update_property")(time.Now())
		if len(changes) > 0 {
			res := tx.Model(&model.Property{}).Where("id = ?", existing.ID).Updates(changes)
			if res.Error != nil {
				return fmt.Errorf("update property: %w", res.Error)
			}
		}
		return r.attachments.insert(tx, existing.ID, staged)
	})
	if err != nil {
		r.attachments.discard(ctx, staged)
		metrics.RecordPropertyOperation("update", "error")
		return nil, err
	}

	metrics.RecordPropertyOperation("update", "ok")
	log.Info("Property updated",
		zap.String("property_id", existing.ID.String()),
		zap.Int("changed_columns", len(changes)),
		zap.Int("images_added", len(images)),
		zap.Int("videos_added", len(videos)))

	return r.load(r.db.WithContext(ctx), existing.ID)
}

// DeleteAttachment removes one image or video of a property
func (r *PropertyRepository) DeleteAttachment(ctx context.Context, propertyID, attachmentID string) error {
	return r.attachments.Delete(ctx, propertyID, attachmentID)
}

func (r *PropertyRepository) checkRequiredOnCreate(in PropertyInput, verr *apperror.ValidationError) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		verr.Add("Title can't be blank")
	}
	if in.Address == nil || strings.TrimSpace(*in.Address) == "" {
		verr.Add("Address can't be blank")
	}
	if in.Price == nil && !contains(in.Invalid, "Price is not a number") {
		verr.Add("Price can't be blank")
	}
}

func (r *PropertyRepository) checkSuppliedNotBlank(in PropertyInput, verr *apperror.ValidationError) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		verr.Add("Title can't be blank")
	}
	if in.Address != nil && strings.TrimSpace(*in.Address) == "" {
		verr.Add("Address can't be blank")
	}
	for _, col := range in.Cleared {
		if msg, ok := requiredColumns[col]; ok {
			verr.Add(msg)
		}
	}
}

func (r *PropertyRepository) checkRules(in PropertyInput, verr *apperror.ValidationError) {
	verr.Add(validation.Struct(in)...)
}

func (r *PropertyRepository) classifyMedia(media Media, verr *apperror.ValidationError) {
	verr.Add(r.attachments.Classify(model.AttachmentImage, media.Images)...)
	verr.Add(r.attachments.Classify(model.AttachmentVideo, media.Videos)...)
}

func (r *PropertyRepository) stageMedia(ctx context.Context, media Media) ([]model.Attachment, []model.Attachment, error) {
	images, err := r.attachments.stage(ctx, model.AttachmentImage, media.Images)
	if err != nil {
		return nil, nil, err
	}
	videos, err := r.attachments.stage(ctx, model.AttachmentVideo, media.Videos)
	if err != nil {
		r.attachments.discard(ctx, images)
		return nil, nil, err
	}
	return images, videos, nil
}

type resolvedRefs struct {
	propertyType *uuid.UUID
	status       *uuid.UUID
	listingType  *uuid.UUID
}

// resolveReferences checks that every supplied foreign key names an existing row. With
// required set, a missing key is a violation too.
func (r *PropertyRepository) resolveReferences(ctx context.Context, in PropertyInput, verr *apperror.ValidationError, required bool) resolvedRefs {
	var refs resolvedRefs
	check := func(raw *string, kind model.ReferenceKind) *uuid.UUID {
		msg := validation.Humanize(kind.ForeignKey) + " must exist"
		if raw == nil {
			if required {
				verr.Add(msg)
			}
			return nil
		}
		id, err := uuid.Parse(strings.TrimSpace(*raw))
		if err != nil {
			verr.Add(msg)
			return nil
		}
		var count int64
		if err := r.db.WithContext(ctx).Table(kind.Table).Where("id = ?", id).Count(&count).Error; err != nil || count == 0 {
			verr.Add(msg)
			return nil
		}
		return &id
	}
	refs.propertyType = check(in.PropertyTypeID, model.PropertyTypeKind)
	refs.status = check(in.StatusID, model.StatusKind)
	refs.listingType = check(in.ListingTypeID, model.ListingTypeKind)
	return refs
}

func applyInput(p *model.Property, in PropertyInput, refs resolvedRefs) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	p.Description = optionalString(in.Description)
	p.LandArea = in.LandArea
	p.BuiltArea = in.BuiltArea
	if in.Rooms != nil {
		p.Rooms = *in.Rooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	if in.HalfBathrooms != nil {
		p.HalfBathrooms = *in.HalfBathrooms
	}
	if in.ParkingSpaces != nil {
		p.ParkingSpaces = *in.ParkingSpaces
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Address != nil {
		p.Address = strings.TrimSpace(*in.Address)
	}
	p.City = optionalString(in.City)
	p.State = optionalString(in.State)
	p.ZipCode = optionalString(in.ZipCode)
	p.Neighborhood = optionalString(in.Neighborhood)
	p.Coordinates = optionalString(in.Coordinates)
	if refs.propertyType != nil {
		p.PropertyTypeID = *refs.propertyType
	}
	if refs.status != nil {
		p.StatusID = *refs.status
	}
	if refs.listingType != nil {
		p.ListingTypeID = *refs.listingType
	}
}

// changedColumns maps the supplied fields to column updates
func changedColumns(in PropertyInput, refs resolvedRefs) map[string]interface{} {
	changes := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			changes[col] = strings.TrimSpace(*v)
		}
	}
	setOptional := func(col string, v *string) {
		if s := optionalString(v); s != nil {
			changes[col] = *s
		}
	}

	setString("title", in.Title)
	setString("address", in.Address)
	setOptional("description", in.Description)
	setOptional("city", in.City)
	setOptional("state", in.State)
	setOptional("zip_code", in.ZipCode)
	setOptional("neighborhood", in.Neighborhood)
	setOptional("coordinates", in.Coordinates)
	if in.LandArea != nil {
		changes["land_area"] = *in.LandArea
	}
	if in.BuiltArea != nil {
		changes["built_area"] = *in.BuiltArea
	}
	if in.Rooms != nil {
		changes["rooms"] = *in.Rooms
	}
	if in.Bathrooms != nil {
		changes["bathrooms"] = *in.Bathrooms
	}
	if in.HalfBathrooms != nil {
		changes["half_bathrooms"] = *in.HalfBathrooms
	}
	if in.ParkingSpaces != nil {
		changes["parking_spaces"] = *in.ParkingSpaces
	}
	if in.Price != nil {
		changes["price"] = *in.Price
	}
	if in.Featured != nil {
		changes["featured"] = *in.Featured
	}
	if refs.propertyType != nil {
		changes["property_type_id"] = *refs.propertyType
	}
	if refs.status != nil {
		changes["status_id"] = *refs.status
	}
	if refs.listingType != nil {
		changes["listing_type_id"] = *refs.listingType
	}
	for _, col := range in.Cleared {
		if _, required := requiredColumns[col]; !required {
			changes[col] = nil
		}
	}
	return changes
}

// optionalString trims v and maps blank to nil
func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
