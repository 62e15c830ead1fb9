package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sugarline/sweetshop/internal/logging"
	"github.com/sugarline/sweetshop/internal/models"
	"github.com/sugarline/sweetshop/internal/token"
)

const userContextKey = "user"

type Middleware struct {
	DB     *gorm.DB
	Tokens *token.Service
}

// RequireLogin verifies the bearer token and resolves the caller's user
// record, making it available via CurrentUser.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_login")

		raw, err := bearerToken(c)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		claims, err := m.Tokens.Parse(raw)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "reason", "token rejected", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		if claims.Subject == "" {
			l.Warn("auth_failed", "status", 401, "reason", "missing sub claim")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		var user models.User
		if err := m.DB.WithContext(ctx).Where("username = ?", claims.Subject).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				l.Warn("auth_failed", "status", 401, "reason", "user not found")
				return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
			}
			l.Error("auth_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve user")
		}

		c.Set(userContextKey, &user)
		return next(c)
	}
}

// AdminOnly must run after RequireLogin.
func (m *Middleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			l := logging.FromContext(c.Request().Context()).With("middleware", "admin_only")
			l.Warn("auth_failed", "status", 403, "reason", "not an admin")
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errors.New("malformed Authorization header")
	}
	return parts[1], nil
}
