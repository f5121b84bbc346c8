package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/pkg/jwtutil"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userKey = "user"

// UserLoader resolves the subject of a token
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// JWTAuthMiddleware creates a middleware that validates bearer tokens. A token is only
// accepted while its jti matches the one stored on the user, so sign out revokes it.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "You need to sign in or sign up before continuing."})
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			user, err := users.GetByID(c.Request().Context(), claims.Subject)
			if err != nil {
				log.Warn("Token subject not found", zap.String("user_id", claims.Subject), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}
			if user.JTI != claims.ID {
				log.Warn("Revoked token used", zap.String("user_id", claims.Subject))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			c.Set(userKey, user)
			log.Debug("JWT token validated successfully",
				zap.String("user_id", user.ID.String()),
				zap.String("email", user.Email))

			return next(c)
		}
	}
}

// CurrentUser returns the user authenticated by JWTAuthMiddleware, or nil
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}
