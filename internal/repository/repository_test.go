package repository_test

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/pagination"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/internal/seed"
	"github.com/edxco/properlia/internal/testutil"
	"github.com/edxco/properlia/pkg/blob"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func fileUpload(name, contentType, body string) repository.Upload {
	return repository.Upload{
		Filename:    name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

type fixture struct {
	db         *gorm.DB
	properties *repository.PropertyRepository
	types      *repository.ReferenceRepository

	houseID uuid.UUID
	sellID  uuid.UUID
	rentID  uuid.UUID
	listing uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, seed.ReferenceData(context.Background(), db))

	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		db:         db,
		properties: repository.NewPropertyRepository(db, repository.NewAttachmentStore(db, blobs), pagination.DefaultLimits),
		types:      repository.NewReferenceRepository(db, model.PropertyTypeKind, pagination.DefaultLimits),
	}
	f.houseID = f.refID(t, model.PropertyTypeKind, "house")
	f.sellID = f.refID(t, model.StatusKind, "sell")
	f.rentID = f.refID(t, model.StatusKind, "rent")
	f.listing = f.refID(t, model.ListingTypeKind, "shared")
	return f
}

func (f *fixture) refID(t *testing.T, kind model.ReferenceKind, name string) uuid.UUID {
	t.Helper()
	var ref model.Reference
	require.NoError(t, f.db.Table(kind.Table).Where("name = ?", name).First(&ref).Error)
	return ref.ID
}

func (f *fixture) input(title string, status uuid.UUID) repository.PropertyInput {
	price := 1200000.0
	return repository.PropertyInput{
		Title:          strPtr(title),
		Address:        strPtr("Calle 5 de Mayo 12"),
		Price:          &price,
		PropertyTypeID: strPtr(f.houseID.String()),
		StatusID:       strPtr(status.String()),
		ListingTypeID:  strPtr(f.listing.String()),
	}
}

func TestPropertyCreateClassifiesMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.properties.Create(ctx, f.input("Casa", f.sellID), repository.Media{
		Images: []repository.Upload{fileUpload("a.jpg", "image/jpeg", "a"), fileUpload("b.png", "", "b")},
		Videos: []repository.Upload{fileUpload("tour.mp4", "video/mp4", "v")},
	})
	require.NoError(t, err)

	require.Len(t, p.Images(), 2)
	assert.Equal(t, "a.jpg", p.Images()[0].Filename)
	assert.Equal(t, "image/png", p.Images()[1].ContentType)
	require.Len(t, p.Videos(), 1)
	assert.EqualValues(t, 1, p.Videos()[0].ByteSize)
	require.NotNil(t, p.PropertyType)
	assert.Equal(t, "casa", p.PropertyType.EsName)
}

func TestPropertyCreateWrongMediaPersistsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.properties.Create(context.Background(), f.input("Casa", f.sellID), repository.Media{
		Images: []repository.Upload{fileUpload("ok.jpg", "image/jpeg", "a")},
		Videos: []repository.Upload{fileUpload("clip.jpg", "image/jpeg", "b")},
	})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Videos clip.jpg must be a video")

	var count int64
	require.NoError(t, f.db.Model(&model.Property{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPropertyCreateReportsEveryWrongFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.properties.Create(context.Background(), f.input("Casa", f.sellID), repository.Media{
		Images: []repository.Upload{
			fileUpload("a.txt", "text/plain", "a"),
			fileUpload("ok.jpg", "image/jpeg", "ok"),
			fileUpload("b.txt", "text/plain", "b"),
		},
		Videos: []repository.Upload{fileUpload("c.png", "image/png", "c")},
	})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{
		"Images a.txt must be an image",
		"Images b.txt must be an image",
		"Videos c.png must be a video",
	}, verr.Messages)

	var count int64
	require.NoError(t, f.db.Model(&model.Property{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&model.Attachment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPropertyDeleteAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.properties.Create(ctx, f.input("Casa", f.sellID), repository.Media{
		Images: []repository.Upload{fileUpload("a.jpg", "image/jpeg", "a")},
	})
	require.NoError(t, err)
	attachmentID := p.Images()[0].ID.String()

	require.NoError(t, f.properties.DeleteAttachment(ctx, p.ID.String(), attachmentID))

	err = f.properties.DeleteAttachment(ctx, p.ID.String(), attachmentID)
	var nf *apperror.NotFoundError
	assert.ErrorAs(t, err, &nf)

	err = f.properties.DeleteAttachment(ctx, uuid.NewString(), attachmentID)
	assert.ErrorAs(t, err, &nf)
}

func TestPropertyAttachmentBelongsToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner, err := f.properties.Create(ctx, f.input("Owner", f.sellID), repository.Media{
		Images: []repository.Upload{fileUpload("a.jpg", "image/jpeg", "a")},
	})
	require.NoError(t, err)
	other, err := f.properties.Create(ctx, f.input("Other", f.sellID), repository.Media{})
	require.NoError(t, err)

	err = f.properties.DeleteAttachment(ctx, other.ID.String(), owner.Images()[0].ID.String())
	var nf *apperror.NotFoundError
	require.ErrorAs(t, err, &nf)

	reloaded, err := f.properties.Get(ctx, owner.ID.String())
	require.NoError(t, err)
	assert.Len(t, reloaded.Images(), 1)
}

func TestPropertyListPagesSumToCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := f.properties.Create(ctx, f.input("Casa", f.sellID), repository.Media{})
		require.NoError(t, err)
	}

	total := 0
	for n := 1; n <= 3; n++ {
		props, meta, err := f.properties.List(ctx, repository.PropertyFilter{}, pagination.Page{Number: n, Size: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 7, meta.Count)
		assert.Equal(t, 3, meta.Pages)
		total += len(props)
	}
	assert.Equal(t, 7, total)
}

func TestPropertyListFilterByStatusName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.properties.Create(ctx, f.input("Renta", f.rentID), repository.Media{})
	require.NoError(t, err)
	_, err = f.properties.Create(ctx, f.input("Venta", f.sellID), repository.Media{})
	require.NoError(t, err)

	filter := repository.ParsePropertyFilter(url.Values{"status": {"Rent"}})
	props, meta, err := f.properties.List(ctx, filter, pagination.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Renta", props[0].Title)
	assert.EqualValues(t, 1, meta.Count)

	filter = repository.ParsePropertyFilter(url.Values{"status_id": {"garbage"}})
	props, meta, err = f.properties.List(ctx, filter, pagination.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, props)
	assert.Zero(t, meta.Count)
}

func TestPropertyUpdateClearsOptionalColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.input("Casa", f.sellID)
	in.City = strPtr("Querétaro")
	p, err := f.properties.Create(ctx, in, repository.Media{})
	require.NoError(t, err)

	updated, err := f.properties.Update(ctx, p.ID.String(), repository.PropertyInput{Cleared: []string{"city"}}, repository.Media{})
	require.NoError(t, err)
	assert.Nil(t, updated.City)
	assert.Equal(t, "Casa", updated.Title)

	_, err = f.properties.Update(ctx, p.ID.String(), repository.PropertyInput{Cleared: []string{"address"}}, repository.Media{})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Address can't be blank")
}

func TestReferenceNormalization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ref, err := f.types.Create(ctx, repository.ReferenceInput{Name: strPtr("  Loft  "), EsName: strPtr("LOFT Ñ")})
	require.NoError(t, err)
	assert.Equal(t, "loft", ref.Name)
	assert.Equal(t, "loft ñ", ref.EsName)

	_, err = f.types.Create(ctx, repository.ReferenceInput{Name: strPtr("LOFT"), EsName: strPtr("otro")})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Name has already been taken")

	_, err = f.types.Create(ctx, repository.ReferenceInput{Name: strPtr(" ")})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Name can't be blank")
	assert.Contains(t, verr.Messages, "Es name can't be blank")
}

func TestReferenceCreateConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Another writer takes the es_name between validation and insert
	fired := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:begin_transaction").
		Register("test:concurrent_insert", func(tx *gorm.DB) {
			if fired || tx.Statement.Table != model.PropertyTypeKind.Table {
				return
			}
			fired = true
			now := time.Now()
			_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
				"INSERT INTO property_types (id, name, es_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				uuid.New(), "other studio", "estudio", now, now)
			require.NoError(t, err)
		}))

	_, err := f.types.Create(ctx, repository.ReferenceInput{Name: strPtr("Studio"), EsName: strPtr("Estudio")})
	require.True(t, fired)
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Es name has already been taken"}, verr.Messages)
}

func TestReferenceDeleteWithDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.properties.Create(ctx, f.input("Casa", f.sellID), repository.Media{})
		require.NoError(t, err)
	}

	count, err := f.types.CountDependents(ctx, f.houseID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	err = f.types.Delete(ctx, f.houseID.String())
	var conflict *apperror.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.EqualValues(t, 3, conflict.DependentCount)

	_, err = f.types.Get(ctx, f.houseID.String())
	assert.NoError(t, err)

	land := f.refID(t, model.PropertyTypeKind, "land")
	require.NoError(t, f.types.Delete(ctx, land.String()))
	_, err = f.types.Get(ctx, land.String())
	var nf *apperror.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGeneralInfoSingleRow(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGeneralInfoRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.GetOrCreate(ctx)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var rows int64
	require.NoError(t, db.Model(&model.GeneralInfo{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	info, err := repo.Update(ctx, repository.GeneralInfoInput{
		Phone:    strPtr(" 555 0100 "),
		Whatsapp: strPtr("555 0101"),
		EmailTo:  strPtr("office@properlia.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, "555 0100", info.Phone)

	_, err = repo.Update(ctx, repository.GeneralInfoInput{EmailTo: strPtr("bad")})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Email to is invalid")
}

func TestUserLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	u, err := users.Register(ctx, repository.Registration{
		Email:    "Agent@Properlia.test",
		Password: "hunter22",
		Name:     "Agent",
	})
	require.NoError(t, err)
	assert.Equal(t, "agent@properlia.test", u.Email)
	assert.NotEqual(t, "hunter22", u.PasswordHash)
	firstJTI := u.JTI

	_, err = users.Register(ctx, repository.Registration{Email: "agent@properlia.test", Password: "hunter22"})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Email has already been taken")

	_, err = users.Register(ctx, repository.Registration{Email: "x@properlia.test", Password: "123"})
	require.ErrorAs(t, err, &verr)

	_, err = users.Register(ctx, repository.Registration{
		Email: "y@properlia.test", Password: "hunter22", PasswordConfirmation: "hunter23",
	})
	require.ErrorAs(t, err, &verr)

	authed, err := users.Authenticate(ctx, " AGENT@properlia.test ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	_, err = users.Authenticate(ctx, "agent@properlia.test", "wrong")
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
	_, err = users.Authenticate(ctx, "nobody@properlia.test", "hunter22")
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	require.NoError(t, users.RotateJTI(ctx, u.ID))
	reloaded, err := users.GetByID(ctx, u.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, firstJTI, reloaded.JTI)
}
