package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/edxco/properlia/pkg/blob"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BlobOpener returns the bytes stored under a blob key
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// inlineTypes are rendered by browsers without running script. Anything else, SVG
// included, is served as a download inside a sandbox.
var inlineTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"image/avif":      true,
	"image/bmp":       true,
	"video/mp4":       true,
	"video/webm":      true,
	"video/ogg":       true,
	"video/quicktime": true,
}

// BlobHandler serves attachment bytes behind signed URLs
type BlobHandler struct {
	signer *blob.Signer
	blobs  BlobOpener
}

// NewBlobHandler creates a BlobHandler
func NewBlobHandler(signer *blob.Signer, blobs BlobOpener) *BlobHandler {
	return &BlobHandler{signer: signer, blobs: blobs}
}

// Serve handles GET /blobs/:token/:filename
func (h *BlobHandler) Serve(c echo.Context) error {
	claims, err := h.signer.Verify(c.Param("token"))
	if err != nil {
		logger.FromEcho(c).Debug("Rejected blob token", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Attachment not found"})
	}

	r, err := h.blobs.Open(c.Request().Context(), claims.Subject)
	if err != nil {
		return respondError(c, err)
	}
	defer r.Close()

	disposition := "inline"
	header := c.Response().Header()
	header.Set(echo.HeaderXContentTypeOptions, "nosniff")
	if !servesInline(claims.ContentType) {
		disposition = "attachment"
		header.Set(echo.HeaderContentSecurityPolicy, "sandbox")
	}
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType(disposition, map[string]string{"filename": claims.Filename}))
	header.Set("Cache-Control", "public, max-age=3600")
	return c.Stream(http.StatusOK, claims.ContentType, r)
}

func servesInline(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && inlineTypes[strings.ToLower(mediaType)]
}
