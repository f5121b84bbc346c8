package handler

import (
	"net/http"

	"github.com/edxco/properlia/internal/middleware"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/pkg/jwtutil"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userRoot = "user"

// SessionHandler serves sign in, sign out, registration and the current user
type SessionHandler struct {
	users *repository.UserRepository
	jwt   *jwtutil.JWTUtil
}

// NewSessionHandler creates a SessionHandler
func NewSessionHandler(users *repository.UserRepository, jwt *jwtutil.JWTUtil) *SessionHandler {
	return &SessionHandler{users: users, jwt: jwt}
}

// SignIn handles POST /users/sign_in. The bearer token travels in the Authorization
// response header.
func (h *SessionHandler) SignIn(c echo.Context) error {
	log := logger.FromEcho(c)

	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	fields, err := params.require(userRoot)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Authenticate(c.Request().Context(), fields["email"].text, fields["password"].text)
	if err != nil {
		log.Warn("Sign in rejected", zap.String("email", fields["email"].text))
		return respondError(c, err)
	}
	if err := h.issueToken(c, user); err != nil {
		return err
	}

	log.Info("User signed in", zap.String("user_id", user.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Inicio de sesión exitoso", "user": user})
}

// SignOut handles DELETE /users/sign_out. Rotating the jti revokes every token held by
// the user.
func (h *SessionHandler) SignOut(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}
	if err := h.users.RotateJTI(c.Request().Context(), user.ID); err != nil {
		return respondError(c, err)
	}
	logger.FromEcho(c).Info("User signed out", zap.String("user_id", user.ID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Sesión cerrada"})
}

// Current handles GET /users/current
func (h *SessionHandler) Current(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}
	return c.JSON(http.StatusOK, user)
}

// Register handles POST /users
func (h *SessionHandler) Register(c echo.Context) error {
	params, err := readParams(c)
	if err != nil {
		return respondError(c, err)
	}
	fields, err := params.require(userRoot)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Register(c.Request().Context(), repository.Registration{
		Email:                fields["email"].text,
		Password:             fields["password"].text,
		PasswordConfirmation: fields["password_confirmation"].text,
		Name:                 fields["name"].text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Registro exitoso", "user": user})
}

func (h *SessionHandler) issueToken(c echo.Context, user *model.User) error {
	token, err := h.jwt.GenerateToken(user.ID.String(), user.Email, user.Role, user.JTI)
	if err != nil {
		logger.FromEcho(c).Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+token)
	return nil
}
