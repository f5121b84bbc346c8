// Package router assembles the echo server and its route table.
package router

import (
	"net/http"

	"github.com/edxco/properlia/internal/handler"
	"github.com/edxco/properlia/internal/middleware"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/notification"
	"github.com/edxco/properlia/internal/pagination"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/internal/serializer"
	"github.com/edxco/properlia/pkg/blob"
	"github.com/edxco/properlia/pkg/jwtutil"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/mailer"
	"github.com/edxco/properlia/pkg/metrics"
	"github.com/edxco/properlia/pkg/validation"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// Deps are the shared resources the server is built from
type Deps struct {
	DB          *gorm.DB
	Blobs       blob.Store
	Signer      *blob.Signer
	JWT         *jwtutil.JWTUtil
	Dispatcher  *notification.Dispatcher
	Cache       handler.ListCache
	Limits      pagination.Limits
	ServiceName string
	CORSOrigins []string
	BodyLimit   string
}

// New builds the echo server with every route registered
func New(d Deps) *echo.Echo {
	if d.Limits.DefaultItems <= 0 {
		d.Limits = pagination.DefaultLimits
	}
	if d.Dispatcher == nil {
		d.Dispatcher = notification.NewDispatcher(mailer.NewResend("", ""), repository.NewGeneralInfoRepository(d.DB),
			notification.Options{}, logger.GetLogger())
	}

	attachments := repository.NewAttachmentStore(d.DB, d.Blobs)
	properties := repository.NewPropertyRepository(d.DB, attachments, d.Limits)
	generalInfo := repository.NewGeneralInfoRepository(d.DB)
	users := repository.NewUserRepository(d.DB)

	propertyHandler := handler.NewPropertyHandler(properties, serializer.NewPropertySerializer(d.Signer), d.Dispatcher, d.Cache)
	generalInfoHandler := handler.NewGeneralInfoHandler(generalInfo)
	emailHandler := handler.NewEmailHandler(d.Dispatcher, properties)
	sessionHandler := handler.NewSessionHandler(users, d.JWT)
	blobHandler := handler.NewBlobHandler(d.Signer, attachments)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(metrics.NewHTTPMetrics(d.ServiceName).Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	if d.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(d.BodyLimit))
	}

	auth := middleware.JWTAuthMiddleware(d.JWT, users)

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))
	e.GET("/blobs/:token/:filename", blobHandler.Serve)

	// Session routes live at the root, outside the versioned API
	e.POST("/users/sign_in", sessionHandler.SignIn)
	e.POST("/users", sessionHandler.Register)
	e.DELETE("/users/sign_out", sessionHandler.SignOut, auth)
	e.GET("/users/current", sessionHandler.Current, auth)

	api := e.Group("/api/v1")

	api.GET("/properties", propertyHandler.List)
	api.GET("/properties/:id", propertyHandler.Get)
	api.POST("/properties", propertyHandler.Create, auth)
	api.PUT("/properties/:id", propertyHandler.Update, auth)
	api.PATCH("/properties/:id", propertyHandler.Update, auth)
	api.DELETE("/properties/:id/attachments/:attachment_id", propertyHandler.DeleteAttachment, auth)

	for path, kind := range map[string]model.ReferenceKind{
		"/property_types": model.PropertyTypeKind,
		"/statuses":       model.StatusKind,
		"/listing_types":  model.ListingTypeKind,
	} {
		h := handler.NewReferenceHandler(repository.NewReferenceRepository(d.DB, kind, d.Limits), d.Cache)
		api.GET(path, h.List)
		api.GET(path+"/:id", h.Get)
		api.POST(path, h.Create, auth)
		api.PUT(path+"/:id", h.Update, auth)
		api.PATCH(path+"/:id", h.Update, auth)
		api.DELETE(path+"/:id", h.Delete, auth)
	}

	api.GET("/general_info", generalInfoHandler.Show, auth)
	api.PUT("/general_info", generalInfoHandler.Update, auth)
	api.PATCH("/general_info", generalInfoHandler.Update, auth)

	api.POST("/emails/contact", emailHandler.Contact)
	api.POST("/emails/property-inquiry", emailHandler.PropertyInquiry)
	api.POST("/emails/welcome", emailHandler.Welcome, auth)

	return e
}
