// Package seed inserts the reference data and the first admin account.
package seed

import (
	"context"
	"fmt"

	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Pair is a lookup record in both languages
type Pair struct {
	Name   string
	EsName string
}

var (
	PropertyTypes = []Pair{
		{"departament", "departamento"},
		{"house", "casa"},
		{"land", "terreno"},
		{"retail space", "local comercial"},
		{"warehouse", "bodega o nave"},
	}
	Statuses = []Pair{
		{"rent", "renta"},
		{"sell", "venta"},
	}
	ListingTypes = []Pair{
		{"exclusive", "exclusiva"},
		{"shared", "compartida"},
	}
)

// ReferenceData inserts the lookup records that do not exist yet
func ReferenceData(ctx context.Context, db *gorm.DB) error {
	log := logger.FromContext(ctx)
	sets := []struct {
		kind  model.ReferenceKind
		pairs []Pair
	}{
		{model.PropertyTypeKind, PropertyTypes},
		{model.StatusKind, Statuses},
		{model.ListingTypeKind, ListingTypes},
	}
	for _, set := range sets {
		for _, pair := range set.pairs {
			ref := model.Reference{Name: pair.Name, EsName: pair.EsName}
			res := db.WithContext(ctx).Table(set.kind.Table).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&ref)
			if res.Error != nil {
				return fmt.Errorf("seed %s %q: %w", set.kind.Singular, pair.Name, res.Error)
			}
			if res.RowsAffected > 0 {
				log.Info("Seeded reference record",
					zap.String("table", set.kind.Table),
					zap.String("name", pair.Name))
			}
		}
	}
	return nil
}

// Admin ensures an account exists for email
func Admin(ctx context.Context, users *repository.UserRepository, email, password, name string) error {
	created, err := users.EnsureUser(ctx, email, password, name)
	if err != nil {
		return err
	}
	if created {
		logger.FromContext(ctx).Info("Seeded admin user", zap.String("email", email))
	}
	return nil
}
