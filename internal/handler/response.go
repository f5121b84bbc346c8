// Package handler holds the HTTP handlers of the API.
package handler

import (
	"errors"
	"net/http"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError renders err with the status and body its kind maps to
func respondError(c echo.Context, err error) error {
	log := logger.FromEcho(c)

	var (
		verr     *apperror.ValidationError
		missing  *apperror.ParameterMissingError
		notFound *apperror.NotFoundError
		conflict *apperror.ConflictError
		badReq   *apperror.BadRequestError
		external *apperror.ExternalServiceError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": verr.Messages})
	case errors.As(err, &missing):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":           missing.Error(),
			"received_params": missing.Received,
		})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound.Error()})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":            conflict.Message,
			"properties_count": conflict.DependentCount,
		})
	case errors.Is(err, apperror.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password."})
	case errors.As(err, &badReq):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": badReq.Message})
	case errors.As(err, &external):
		log.Error("External service failed", zap.String("service", external.Service), zap.Error(external.Err))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":   "External service failed",
			"details": external.Err.Error(),
		})
	}

	log.Error("Unhandled error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}

// HTTPErrorHandler renders errors that escaped the handlers (unknown routes, body limit,
// panics recovered by echo) in the API's {error} shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		if he.Code >= http.StatusInternalServerError {
			logger.FromEcho(c).Error("Request failed", zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, echo.Map{"error": msg})
		return
	}

	_ = respondError(c, err)
}
