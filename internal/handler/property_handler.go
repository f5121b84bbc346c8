package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/internal/serializer"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/metrics"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PropertyCacheScope is the list cache scope invalidated by every property write
const PropertyCacheScope = "properties"

// ListCache stores serialized list pages
type ListCache interface {
	Key(ctx context.Context, scope string, params map[string]string) (string, error)
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, scope string) error
}

// CreationNotifier is told about every new property after it is committed
type CreationNotifier interface {
	PropertyCreated(ctx context.Context, p *model.Property)
}

// PropertyHandler serves the property endpoints
type PropertyHandler struct {
	repo       *repository.PropertyRepository
	serializer *serializer.PropertySerializer
	notifier   CreationNotifier
	cache      ListCache
}

// NewPropertyHandler creates a PropertyHandler. notifier and cache may be nil.
func NewPropertyHandler(repo *repository.PropertyRepository, s *serializer.PropertySerializer, notifier CreationNotifier, cache ListCache) *PropertyHandler {
	return &PropertyHandler{repo: repo, serializer: s, notifier: notifier, cache: cache}
}

// List handles GET /api/v1/properties
func (h *PropertyHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	query := c.QueryParams()
	filter := repository.ParsePropertyFilter(query)
	page := h.repo.Limits().Resolve(query.Get("page"), query.Get("items"))

	var cacheKey string
	if h.cache != nil {
		params := filter.CacheParams()
		params["page"] = strconv.Itoa(page.Number)
		params["items"] = strconv.Itoa(page.Size)
		key, cached, err := h.lookup(ctx, params)
		if err != nil {
			logger.FromEcho(c).Warn("Property list cache unavailable", zap.Error(err))
		} else if cached != nil {
			return c.JSON(http.StatusOK, cached)
		}
		cacheKey = key
	}

	properties, meta, err := h.repo.List(ctx, filter, page)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.serializer.List(properties, meta)
	if err != nil {
		return respondError(c, err)
	}

	if cacheKey != "" {
		if err := h.cache.Set(ctx, cacheKey, list); err != nil {
			logger.FromEcho(c).Warn("Failed to cache property list", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /api/v1/properties/:id
func (h *PropertyHandler) Get(c echo.Context) error {
	p, err := h.repo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return h.render(c, http.StatusOK, p)
}

// Create handles POST /api/v1/properties
func (h *PropertyHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	in, media, err := propertyInput(params)
	if err != nil {
		return respondError(c, err)
	}

	p, err := h.repo.Create(ctx, in, media)
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(c)
	if h.notifier != nil {
		h.notifier.PropertyCreated(ctx, p)
	}
	return h.render(c, http.StatusCreated, p)
}

// Update handles PUT and PATCH /api/v1/properties/:id
func (h *PropertyHandler) Update(c echo.Context) error {
	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	in, media, err := propertyInput(params)
	if err != nil {
		return respondError(c, err)
	}

	p, err := h.repo.Update(c.Request().Context(), c.Param("id"), in, media)
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(c)
	return h.render(c, http.StatusOK, p)
}

// DeleteAttachment handles DELETE /api/v1/properties/:id/attachments/:attachment_id
func (h *PropertyHandler) DeleteAttachment(c echo.Context) error {
	err := h.repo.DeleteAttachment(c.Request().Context(), c.Param("id"), c.Param("attachment_id"))
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Attachment deleted successfully"})
}

// lookup returns the cache key of a list query and the cached page, if any
func (h *PropertyHandler) lookup(ctx context.Context, params map[string]string) (string, *serializer.PropertyList, error) {
	key, err := h.cache.Key(ctx, PropertyCacheScope, params)
	if err != nil {
		return "", nil, err
	}
	var cached serializer.PropertyList
	hit, err := h.cache.Get(ctx, key, &cached)
	if err != nil {
		return "", nil, err
	}
	metrics.RecordCacheLookup(hit)
	if !hit {
		return key, nil, nil
	}
	return key, &cached, nil
}

func (h *PropertyHandler) render(c echo.Context, status int, p *model.Property) error {
	view, err := h.serializer.Property(p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, view)
}

func (h *PropertyHandler) invalidate(c echo.Context) {
	invalidateProperties(c, h.cache)
}

func invalidateProperties(c echo.Context, cache ListCache) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(c.Request().Context(), PropertyCacheScope); err != nil {
		logger.FromEcho(c).Warn("Failed to invalidate property list cache", zap.Error(err))
	}
}
