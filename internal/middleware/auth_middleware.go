package middleware

import (
	"net/http"

	"draftly/internal/handler"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware rejects requests without a signed-in user
func AuthMiddleware(users handler.CurrentUserProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := users.GetCurrentUser(c); err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}
			return next(c)
		}
	}
}
