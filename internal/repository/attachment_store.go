package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/pkg/blob"
	"github.com/edxco/properlia/pkg/database"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const sniffLen = 512

// Upload is a file received from a client, not yet stored
type Upload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// AttachmentStore keeps the image and video collections of properties. Bytes go to the
// blob store, metadata to the attachments table.
type AttachmentStore struct {
	db    *gorm.DB
	blobs blob.Store
}

// NewAttachmentStore creates an AttachmentStore
func NewAttachmentStore(db *gorm.DB, blobs blob.Store) *AttachmentStore {
	return &AttachmentStore{db: db, blobs: blobs}
}

// Classify resolves the content type of every upload and returns one message per file
// that does not belong to kind. Uploads are updated in place with the resolved type.
func (s *AttachmentStore) Classify(kind model.AttachmentKind, uploads []Upload) []string {
	var msgs []string
	for i := range uploads {
		u := &uploads[i]
		u.Filename = cleanFilename(u.Filename)
		u.ContentType = resolveContentType(u)
		if !kind.Accepts(u.ContentType) {
			msgs = append(msgs, fmt.Sprintf("%s %s must be %s %s",
				cases.Title(language.English).String(kind.Collection()), u.Filename, article(kind), kind))
		}
	}
	return msgs
}

// stage writes the bytes of every upload and returns unsaved attachment rows. On failure
// the blobs already written are removed.
func (s *AttachmentStore) stage(ctx context.Context, kind model.AttachmentKind, uploads []Upload) ([]model.Attachment, error) {
	staged := make([]model.Attachment, 0, len(uploads))
	for _, u := range uploads {
		a, err := s.put(ctx, kind, u)
		if err != nil {
			s.discard(ctx, staged)
			return nil, err
		}
		staged = append(staged, a)
	}
	return staged, nil
}

func (s *AttachmentStore) put(ctx context.Context, kind model.AttachmentKind, u Upload) (model.Attachment, error) {
	if u.Open == nil {
		return model.Attachment{}, fmt.Errorf("upload %s has no content", u.Filename)
	}
	r, err := u.Open()
	if err != nil {
		return model.Attachment{}, fmt.Errorf("open upload %s: %w", u.Filename, err)
	}
	defer r.Close()

	key := blob.NewKey()
	n, err := s.blobs.Put(ctx, key, r)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("store upload %s: %w", u.Filename, err)
	}
	return model.Attachment{
		ID:          uuid.New(),
		Kind:        kind,
		Key:         key,
		Filename:    u.Filename,
		ContentType: u.ContentType,
		ByteSize:    n,
	}, nil
}

// insert saves staged rows for propertyID after the ones already attached
func (s *AttachmentStore) insert(tx *gorm.DB, propertyID uuid.UUID, staged []model.Attachment) error {
	if len(staged) == 0 {
		return nil
	}
	defer metrics.TrackDBOperation("insert_attachments")(time.Now())

	next := map[model.AttachmentKind]int{}
	for _, kind := range []model.AttachmentKind{model.AttachmentImage, model.AttachmentVideo} {
		var last int
		err := tx.Model(&model.Attachment{}).
			Select("COALESCE(MAX(position), -1)").
			Where("property_id = ? AND kind = ?", propertyID, kind).
			Row().Scan(&last)
		if err != nil {
			return fmt.Errorf("read attachment positions: %w", err)
		}
		next[kind] = last + 1
	}

	now := time.Now()
	for i := range staged {
		staged[i].PropertyID = propertyID
		staged[i].Position = next[staged[i].Kind]
		staged[i].CreatedAt = now
		next[staged[i].Kind]++
	}
	if err := tx.Create(&staged).Error; err != nil {
		return fmt.Errorf("save attachments: %w", err)
	}
	for _, a := range staged {
		metrics.RecordAttachmentOperation(string(a.Kind), "attach", 1)
	}
	return nil
}

// discard removes the blobs of rows that never made it into the database
func (s *AttachmentStore) discard(ctx context.Context, staged []model.Attachment) {
	log := logger.FromContext(ctx)
	cleanupCtx := context.WithoutCancel(ctx)
	for _, a := range staged {
		if err := s.blobs.Delete(cleanupCtx, a.Key); err != nil {
			log.Warn("Failed to remove orphaned blob", zap.String("key", a.Key), zap.Error(err))
		}
	}
}

// Delete removes one attachment of a property, looking among images first and videos
// second. A missing attachment is reported as NotFound every time.
func (s *AttachmentStore) Delete(ctx context.Context, propertyID, attachmentID string) error {
	log := logger.FromContext(ctx)

	pid, err := uuid.Parse(propertyID)
	if err != nil {
		return apperror.NotFound("Property")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Property{}).Where("id = ?", pid).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.NotFound("Property")
	}

	aid, err := uuid.Parse(attachmentID)
	if err != nil {
		return apperror.NotFound("Attachment")
	}

	for _, kind := range []model.AttachmentKind{model.AttachmentImage, model.AttachmentVideo} {
		var a model.Attachment
		err := s.db.WithContext(ctx).
			Where("id = ? AND property_id = ? AND kind = ?", aid, pid, kind).
			First(&a).Error
		if database.IsNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("find attachment: %w", err)
		}

		res := s.db.WithContext(ctx).Delete(&model.Attachment{}, "id = ?", a.ID)
		if res.Error != nil {
			return fmt.Errorf("delete attachment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost a race with a concurrent delete of the same attachment
			return apperror.NotFound("Attachment")
		}
		if err := s.blobs.Delete(ctx, a.Key); err != nil {
			log.Warn("Attachment row deleted but blob removal failed",
				zap.String("attachment_id", a.ID.String()),
				zap.String("key", a.Key),
				zap.Error(err))
		}
		metrics.RecordAttachmentOperation(string(kind), "purge", 1)
		log.Info("Attachment deleted",
			zap.String("property_id", pid.String()),
			zap.String("attachment_id", a.ID.String()),
			zap.String("kind", string(kind)))
		return nil
	}

	return apperror.NotFound("Attachment")
}

// Open returns the bytes of an attachment
func (s *AttachmentStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.blobs.Open(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apperror.NotFound("Attachment")
	}
	return r, err
}

func article(kind model.AttachmentKind) string {
	if kind == model.AttachmentImage {
		return "an"
	}
	return "a"
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// resolveContentType trusts the declared media type, then the file extension, then the
// leading bytes of the content.
func resolveContentType(u *Upload) string {
	if ct := normalizeMediaType(u.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := normalizeMediaType(mime.TypeByExtension(filepath.Ext(u.Filename))); ct != "" {
		return ct
	}
	if u.Open != nil {
		if r, err := u.Open(); err == nil {
			defer r.Close()
			buf := make([]byte, sniffLen)
			n, _ := io.ReadFull(r, buf)
			if n > 0 {
				return normalizeMediaType(http.DetectContentType(buf[:n]))
			}
		}
	}
	return "application/octet-stream"
}

func normalizeMediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	return strings.ToLower(mediaType)
}
