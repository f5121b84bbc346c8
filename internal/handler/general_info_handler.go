package handler

import (
	"net/http"

	"github.com/edxco/properlia/internal/repository"
	"github.com/labstack/echo/v4"
)

const generalInfoRoot = "general_info"

// GeneralInfoHandler serves the site contact information
type GeneralInfoHandler struct {
	repo *repository.GeneralInfoRepository
}

// NewGeneralInfoHandler creates a GeneralInfoHandler
func NewGeneralInfoHandler(repo *repository.GeneralInfoRepository) *GeneralInfoHandler {
	return &GeneralInfoHandler{repo: repo}
}

// Show handles GET /api/v1/general_info
func (h *GeneralInfoHandler) Show(c echo.Context) error {
	info, err := h.repo.GetOrCreate(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// Update handles PUT /api/v1/general_info
func (h *GeneralInfoHandler) Update(c echo.Context) error {
	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	fields, err := params.require(generalInfoRoot)
	if err != nil {
		return respondError(c, err)
	}

	info, err := h.repo.Update(c.Request().Context(), repository.GeneralInfoInput{
		Phone:    text(fields, "phone"),
		Whatsapp: text(fields, "whatsapp"),
		EmailTo:  text(fields, "email_to"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}
