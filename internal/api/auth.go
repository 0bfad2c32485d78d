package api

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type AdminClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// AdminAuth guards the admin routes with an HS256 bearer token.
func AdminAuth(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return c.JSON(500, map[string]string{"error": "missing required setting ADMIN_JWT_SECRET"})
			}
		}
	}
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(AdminClaims)
		},
	})
}
