package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/pkg/database"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/metrics"
	"github.com/edxco/properlia/pkg/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GeneralInfoInput carries the supplied contact fields
type GeneralInfoInput struct {
	Phone    *string `json:"phone"`
	Whatsapp *string `json:"whatsapp"`
	EmailTo  *string `json:"email_to"`
}

// generalInfoRules is checked against the merged record before an update is saved
type generalInfoRules struct {
	Phone    string `json:"phone" validate:"required"`
	Whatsapp string `json:"whatsapp" validate:"required"`
	EmailTo  string `json:"email_to" validate:"required,email_format"`
}

// GeneralInfoRepository owns the single general_infos row
type GeneralInfoRepository struct {
	db *gorm.DB
}

// NewGeneralInfoRepository creates a GeneralInfoRepository
func NewGeneralInfoRepository(db *gorm.DB) *GeneralInfoRepository {
	return &GeneralInfoRepository{db: db}
}

// GetOrCreate returns the row, inserting an empty one the first time. Concurrent first
// calls all end up with the same row.
func (r *GeneralInfoRepository) GetOrCreate(ctx context.Context) (*model.GeneralInfo, error) {
	defer metrics.TrackDBOperation("get_general_info")(time.Now())

	db := r.db.WithContext(ctx)
	info, err := r.find(db)
	if err == nil {
		return info, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}

	info = &model.GeneralInfo{}
	err = db.Create(info).Error
	if database.IsUniqueViolation(err) {
		return r.find(db)
	}
	if err != nil {
		return nil, fmt.Errorf("create general info: %w", err)
	}
	logger.FromContext(ctx).Info("General info row created")
	return info, nil
}

func (r *GeneralInfoRepository) find(db *gorm.DB) (*model.GeneralInfo, error) {
	var info model.GeneralInfo
	if err := db.Where("singleton_guard = ?", model.SingletonGuard).First(&info).Error; err != nil {
		return nil, err
	}
	return &info, nil
}

// Update merges the supplied fields into the row and saves it when the result is valid
func (r *GeneralInfoRepository) Update(ctx context.Context, in GeneralInfoInput) (*model.GeneralInfo, error) {
	info, err := r.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	if in.Phone != nil {
		info.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Whatsapp != nil {
		info.Whatsapp = strings.TrimSpace(*in.Whatsapp)
	}
	if in.EmailTo != nil {
		info.EmailTo = strings.TrimSpace(*in.EmailTo)
	}

	msgs := validation.Struct(generalInfoRules{
		Phone:    info.Phone,
		Whatsapp: info.Whatsapp,
		EmailTo:  info.EmailTo,
	})
	if len(msgs) > 0 {
		return nil, apperror.NewValidation(msgs...)
	}

	if err := r.db.WithContext(ctx).Save(info).Error; err != nil {
		return nil, fmt.Errorf("save general info: %w", err)
	}
	logger.FromContext(ctx).Info("General info updated", zap.String("email_to", info.EmailTo))
	return info, nil
}
