package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Admin Guard
// ============================================================

// RoleResolver возвращает роль владельца токена.
type RoleResolver func(token string) (role string, ok bool)

// RequireAdmin пропускает только запросы с Bearer токеном роли admin.
func RequireAdmin(resolve RoleResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		role, ok := resolve(token)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		if role != "admin" {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}

func BearerToken(c fiber.Ctx) (string, bool) {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}
