package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"sme-lending-backend/internal/domain/lending"
)

const actorContextKey = "actor"

type actorClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the identity provider's bearer token into an Actor.
// The token is already issued by the external IdP; we only verify the shared
// secret and read the subject/role claims.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(h, "Bearer ")

			var claims actorClaims
			tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid || claims.Subject == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			c.Set(actorContextKey, lending.Actor{
				SubjectID: claims.Subject,
				UserID:    claims.UserID,
				Role:      lending.Role(claims.Role),
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			})
			return next(c)
		}
	}
}

// ActorFrom returns the authenticated actor placed by AuthMiddleware.
func ActorFrom(c echo.Context) lending.Actor {
	if a, ok := c.Get(actorContextKey).(lending.Actor); ok {
		return a
	}
	return lending.Actor{}
}
