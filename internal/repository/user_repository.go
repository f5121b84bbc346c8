package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/pkg/database"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/metrics"
	"github.com/edxco/properlia/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Registration is the payload of a sign up request
type Registration struct {
	Email                string `json:"email" validate:"required,email_format"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
	Name                 string `json:"name"`
}

// UserRepository stores dashboard accounts
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate returns the user owning email when password matches
func (r *UserRepository) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	if database.IsNotFound(err) {
		metrics.RecordAuthAttempt("unknown_user")
		return nil, apperror.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		metrics.RecordAuthAttempt("bad_password")
		return nil, apperror.ErrUnauthorized
	}
	metrics.RecordAuthAttempt("ok")
	return &u, nil
}

// GetByID loads a user
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NotFound("User")
	}
	var u model.User
	err = r.db.WithContext(ctx).Where("id = ?", uid).First(&u).Error
	if database.IsNotFound(err) {
		return nil, apperror.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Register creates an account from a sign up request
func (r *UserRepository) Register(ctx context.Context, reg Registration) (*model.User, error) {
	reg.Email = normalizeEmail(reg.Email)
	if msgs := validation.Struct(reg); len(msgs) > 0 {
		return nil, apperror.NewValidation(msgs...)
	}

	u, err := r.create(ctx, reg.Email, reg.Password, strings.TrimSpace(reg.Name))
	if database.IsUniqueViolation(err) {
		return nil, apperror.NewValidation("Email has already been taken")
	}
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("User registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

func (r *UserRepository) create(ctx context.Context, email, password, name string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// RotateJTI replaces the user's jti, revoking every token issued so far
func (r *UserRepository) RotateJTI(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("jti", uuid.NewString())
	if res.Error != nil {
		return fmt.Errorf("rotate jti: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("User")
	}
	return nil
}

// EnsureUser creates the account when no user owns email. It reports whether a user
// was created.
func (r *UserRepository) EnsureUser(ctx context.Context, email, password, name string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, errors.New("email and password are required")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := r.create(ctx, email, password, name); err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create user %s: %w", email, err)
	}
	return true, nil
}
