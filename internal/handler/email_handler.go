package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/middleware"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/notification"
	"github.com/edxco/properlia/pkg/validation"
	"github.com/labstack/echo/v4"
)

// EmailSender composes and delivers the site's transactional emails
type EmailSender interface {
	SendContact(ctx context.Context, form notification.ContactForm) (string, error)
	SendInquiry(ctx context.Context, in notification.Inquiry) (string, error)
	SendWelcome(ctx context.Context, u *model.User) (string, error)
}

// PropertyFinder loads a property by id
type PropertyFinder interface {
	Get(ctx context.Context, id string) (*model.Property, error)
}

// EmailHandler serves the email endpoints
type EmailHandler struct {
	sender     EmailSender
	properties PropertyFinder
}

// NewEmailHandler creates an EmailHandler
func NewEmailHandler(sender EmailSender, properties PropertyFinder) *EmailHandler {
	return &EmailHandler{sender: sender, properties: properties}
}

// Contact handles POST /api/v1/emails/contact
func (h *EmailHandler) Contact(c echo.Context) error {
	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := requireFields(params, "name", "email", "message"); err != nil {
		return respondError(c, err)
	}

	id, err := h.sender.SendContact(c.Request().Context(), notification.ContactForm{
		Name:    params.value("name"),
		Email:   params.value("email"),
		Message: params.values["message"].text,
		Subject: params.value("subject"),
	})
	if err != nil {
		return emailFailure(c, "Failed to send email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Contact form sent successfully", "id": id})
}

// PropertyInquiry handles POST /api/v1/emails/property-inquiry
func (h *EmailHandler) PropertyInquiry(c echo.Context) error {
	ctx := c.Request().Context()
	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := requireFields(params, "property_id", "name", "email", "message"); err != nil {
		return respondError(c, err)
	}

	p, err := h.properties.Get(ctx, params.value("property_id"))
	if err != nil {
		return respondError(c, err)
	}

	id, err := h.sender.SendInquiry(ctx, notification.Inquiry{
		PropertyID:    p.ID.String(),
		PropertyTitle: p.Title,
		Name:          params.value("name"),
		Email:         params.value("email"),
		Phone:         params.value("phone"),
		Message:       params.values["message"].text,
	})
	if err != nil {
		return emailFailure(c, "Failed to send inquiry", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Property inquiry sent successfully", "id": id})
}

// Welcome handles POST /api/v1/emails/welcome
func (h *EmailHandler) Welcome(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	id, err := h.sender.SendWelcome(c.Request().Context(), user)
	if err != nil {
		return emailFailure(c, "Failed to send welcome email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Welcome email sent successfully", "id": id})
}

// requireFields checks presence of every name, then the email format
func requireFields(params *requestParams, names ...string) error {
	var missing []string
	for _, name := range names {
		if params.values[name].blank() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperror.BadRequest("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if email := params.value("email"); email != "" && !validation.IsEmail(email) {
		return apperror.BadRequest("Invalid email format")
	}
	return nil
}

func emailFailure(c echo.Context, message string, err error) error {
	var external *apperror.ExternalServiceError
	if !errors.As(err, &external) {
		return respondError(c, err)
	}
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"error":   message,
		"details": external.Err.Error(),
	})
}
