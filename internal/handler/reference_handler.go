package handler

import (
	"net/http"
	"strings"

	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/pagination"
	"github.com/edxco/properlia/internal/repository"
	"github.com/labstack/echo/v4"
)

// ReferenceList is a page of lookup records
type ReferenceList struct {
	Data     []model.Reference `json:"data"`
	Metadata pagination.Meta   `json:"metadata"`
}

// ReferenceHandler serves the CRUD endpoints of one lookup table
type ReferenceHandler struct {
	repo  *repository.ReferenceRepository
	cache ListCache
}

// NewReferenceHandler creates a ReferenceHandler. Updates invalidate cached property
// lists since those embed the record; cache may be nil.
func NewReferenceHandler(repo *repository.ReferenceRepository, cache ListCache) *ReferenceHandler {
	return &ReferenceHandler{repo: repo, cache: cache}
}

// List handles GET on the collection
func (h *ReferenceHandler) List(c echo.Context) error {
	page := h.repo.Limits().Resolve(c.QueryParam("page"), c.QueryParam("items"))
	records, meta, err := h.repo.List(c.Request().Context(), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ReferenceList{Data: records, Metadata: meta})
}

// Get handles GET on one record
func (h *ReferenceHandler) Get(c echo.Context) error {
	ref, err := h.repo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ref)
}

// Create handles POST on the collection
func (h *ReferenceHandler) Create(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return respondError(c, err)
	}
	ref, err := h.repo.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ref)
}

// Update handles PUT and PATCH on one record
func (h *ReferenceHandler) Update(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return respondError(c, err)
	}
	ref, err := h.repo.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	invalidateProperties(c, h.cache)
	return c.JSON(http.StatusOK, ref)
}

// Delete handles DELETE on one record. Records still referenced by a property are kept.
func (h *ReferenceHandler) Delete(c echo.Context) error {
	if err := h.repo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	kind := h.repo.Kind()
	msg := strings.ToUpper(kind.Singular[:1]) + kind.Singular[1:] + " deleted successfully"
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

func (h *ReferenceHandler) input(c echo.Context) (repository.ReferenceInput, error) {
	params, err := readParams(c)
	if err != nil {
		return repository.ReferenceInput{}, err
	}
	fields, err := params.require(h.repo.Kind().RootKey)
	if err != nil {
		return repository.ReferenceInput{}, err
	}
	return repository.ReferenceInput{
		Name:   text(fields, "name"),
		EsName: text(fields, "es_name"),
	}, nil
}
