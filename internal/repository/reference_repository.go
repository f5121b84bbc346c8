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
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// ReferenceInput carries the supplied fields of a property type, status or listing type
type ReferenceInput struct {
	Name   *string `json:"name"`
	EsName *string `json:"es_name"`
}

// ReferenceRepository manages one lookup table described by a model.ReferenceKind
type ReferenceRepository struct {
	db     *gorm.DB
	kind   model.ReferenceKind
	limits pagination.Limits
}

// NewReferenceRepository creates a ReferenceRepository for kind
func NewReferenceRepository(db *gorm.DB, kind model.ReferenceKind, limits pagination.Limits) *ReferenceRepository {
	return &ReferenceRepository{db: db, kind: kind, limits: limits}
}

// Kind returns the lookup table served by the repository
func (r *ReferenceRepository) Kind() model.ReferenceKind {
	return r.kind
}

// Limits returns the page size limits of list queries
func (r *ReferenceRepository) Limits() pagination.Limits {
	return r.limits
}

func (r *ReferenceRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.kind.Table)
}

func (r *ReferenceRepository) resource() string {
	return cases.Title(language.English).String(r.kind.Singular)
}

// List returns one page of records, oldest first
func (r *ReferenceRepository) List(ctx context.Context, page pagination.Page) ([]model.Reference, pagination.Meta, error) {
	defer metrics.TrackDBOperation("list_" + r.kind.Table)(time.Now())

	var count int64
	if err := r.table(ctx).Count(&count).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("count %s: %w", r.kind.Table, err)
	}

	records := []model.Reference{}
	meta := pagination.NewMeta(count, page)
	if int64(page.Offset()) >= count {
		return records, meta, nil
	}
	err := r.table(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&records).Error
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list %s: %w", r.kind.Table, err)
	}
	return records, meta, nil
}

// Get returns one record
func (r *ReferenceRepository) Get(ctx context.Context, id string) (*model.Reference, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NotFound(r.resource())
	}
	var ref model.Reference
	err = r.table(ctx).Where("id = ?", rid).First(&ref).Error
	if database.IsNotFound(err) {
		return nil, apperror.NotFound(r.resource())
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", r.kind.Singular, rid, err)
	}
	return &ref, nil
}

// Create validates and inserts a record
func (r *ReferenceRepository) Create(ctx context.Context, in ReferenceInput) (*model.Reference, error) {
	log := logger.FromContext(ctx)

	ref := model.Reference{}
	r.assign(&ref, in)
	if err := r.validate(ctx, &ref); err != nil {
		metrics.RecordReferenceOperation(r.kind.Table, "create", "invalid")
		return nil, err
	}

	if err := r.table(ctx).Create(&ref).Error; err != nil {
		if database.IsUniqueViolation(err) {
			metrics.RecordReferenceOperation(r.kind.Table, "create", "invalid")
			return nil, r.duplicate(ctx, &ref)
		}
		metrics.RecordReferenceOperation(r.kind.Table, "create", "error")
		return nil, fmt.Errorf("create %s: %w", r.kind.Singular, err)
	}

	metrics.RecordReferenceOperation(r.kind.Table, "create", "ok")
	log.Info("Reference record created",
		zap.String("table", r.kind.Table),
		zap.String("id", ref.ID.String()),
		zap.String("name", ref.Name))
	return &ref, nil
}

// Update applies the supplied fields
func (r *ReferenceRepository) Update(ctx context.Context, id string, in ReferenceInput) (*model.Reference, error) {
	ref, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.assign(ref, in)
	if err := r.validate(ctx, ref); err != nil {
		metrics.RecordReferenceOperation(r.kind.Table, "update", "invalid")
		return nil, err
	}

	err = r.table(ctx).Where("id = ?", ref.ID).Updates(map[string]interface{}{
		"name":       ref.Name,
		"es_name":    ref.EsName,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			metrics.RecordReferenceOperation(r.kind.Table, "update", "invalid")
			return nil, r.duplicate(ctx, ref)
		}
		metrics.RecordReferenceOperation(r.kind.Table, "update", "error")
		return nil, fmt.Errorf("update %s: %w", r.kind.Singular, err)
	}

	metrics.RecordReferenceOperation(r.kind.Table, "update", "ok")
	return r.Get(ctx, id)
}

// CountDependents returns how many properties reference the record
func (r *ReferenceRepository) CountDependents(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Property{}).
		Where(r.kind.ForeignKey+" = ?", id).
		Count(&count).Error
	return count, err
}

// Delete removes a record that no property references. When dependents exist the
// record is kept and a ConflictError reports how many.
func (r *ReferenceRepository) Delete(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	ref, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	conflict := func(count int64) error {
		metrics.RecordReferenceOperation(r.kind.Table, "delete", "conflict")
		log.Warn("Refusing to delete referenced record",
			zap.String("table", r.kind.Table),
			zap.String("id", ref.ID.String()),
			zap.Int64("properties_count", count))
		return &apperror.ConflictError{
			Message: fmt.Sprintf("Cannot delete %s because it is assigned to one or more properties",
				r.kind.Singular),
			DependentCount: count,
		}
	}

	var blocked int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Property{}).Where(r.kind.ForeignKey+" = ?", ref.ID).Count(&blocked).Error; err != nil {
			return err
		}
		if blocked > 0 {
			return nil
		}
		res := tx.Table(r.kind.Table).Where("id = ?", ref.ID).Delete(&model.Reference{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound(r.resource())
		}
		return nil
	})
	if database.IsForeignKeyViolation(err) {
		// A property started referencing the record between the count and the delete
		count, cerr := r.CountDependents(ctx, ref.ID)
		if cerr != nil {
			return cerr
		}
		return conflict(count)
	}
	if err != nil {
		metrics.RecordReferenceOperation(r.kind.Table, "delete", "error")
		return err
	}
	if blocked > 0 {
		return conflict(blocked)
	}

	metrics.RecordReferenceOperation(r.kind.Table, "delete", "ok")
	log.Info("Reference record deleted",
		zap.String("table", r.kind.Table),
		zap.String("id", ref.ID.String()))
	return nil
}

func (r *ReferenceRepository) assign(ref *model.Reference, in ReferenceInput) {
	if in.Name != nil {
		ref.Name = r.normalize(*in.Name)
	}
	if in.EsName != nil {
		ref.EsName = r.normalize(*in.EsName)
	}
}

func (r *ReferenceRepository) normalize(s string) string {
	s = strings.TrimSpace(s)
	if r.kind.Normalize {
		s = cases.Lower(language.Spanish).String(s)
	}
	return s
}

func (r *ReferenceRepository) validate(ctx context.Context, ref *model.Reference) error {
	verr := apperror.NewValidation()
	if ref.Name == "" {
		verr.Add("Name can't be blank")
	} else if taken, err := r.taken(ctx, "name", ref.Name, ref.ID); err != nil {
		return err
	} else if taken {
		verr.Add("Name has already been taken")
	}
	if ref.EsName == "" {
		verr.Add("Es name can't be blank")
	} else if taken, err := r.taken(ctx, "es_name", ref.EsName, ref.ID); err != nil {
		return err
	} else if taken {
		verr.Add("Es name has already been taken")
	}
	return verr.OrNil()
}

// duplicate reports which column a concurrent write took after validate passed
func (r *ReferenceRepository) duplicate(ctx context.Context, ref *model.Reference) error {
	if err := r.validate(ctx, ref); err != nil {
		return err
	}
	return apperror.NewValidation("Name has already been taken")
}

func (r *ReferenceRepository) taken(ctx context.Context, column, value string, self uuid.UUID) (bool, error) {
	q := r.table(ctx)
	if r.kind.Normalize {
		q = q.Where("LOWER("+column+") = ?", strings.ToLower(value))
	} else {
		q = q.Where(column+" = ?", value)
	}
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check %s uniqueness: %w", column, err)
	}
	return count > 0, nil
}
