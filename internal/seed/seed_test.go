package seed

import (
	"context"
	"testing"

	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceDataIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, ReferenceData(ctx, db))
	require.NoError(t, ReferenceData(ctx, db))

	var types, statuses, listings int64
	require.NoError(t, db.Model(&model.PropertyType{}).Count(&types).Error)
	require.NoError(t, db.Model(&model.Status{}).Count(&statuses).Error)
	require.NoError(t, db.Model(&model.ListingType{}).Count(&listings).Error)
	assert.EqualValues(t, len(PropertyTypes), types)
	assert.EqualValues(t, len(Statuses), statuses)
	assert.EqualValues(t, len(ListingTypes), listings)
}

func TestAdminCreatesOnce(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, Admin(ctx, users, "Admin@Example.com", "secret123", "Admin"))
	require.NoError(t, Admin(ctx, users, "admin@example.com", "other-password", "Admin"))

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	u, err := users.Authenticate(ctx, "admin@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRole, u.Role)
}
