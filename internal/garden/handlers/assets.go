package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// ============================================================
// Assets Handler
// ============================================================

// AssetsHandler отдаёт картинки растений из каталога на диске.
type AssetsHandler struct {
	root string
	log  zerolog.Logger
}

func NewAssetsHandler(root string, logger zerolog.Logger) *AssetsHandler {
	return &AssetsHandler{root: root, log: logger}
}

// Serve возвращает обработчик для префикса: /assets/tulip.png ищется как
// <root>/assets/tulip.png.
func (h *AssetsHandler) Serve(prefix string) fiber.Handler {
	return func(c fiber.Ctx) error {
		name := c.Params("*")
		path, ok := h.resolve(prefix, name)
		if !ok {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		if _, err := os.Stat(path); err != nil {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.SendFile(path)
	}
}

func (h *AssetsHandler) resolve(prefix, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "\x00") {
		return "", false
	}
	clean := filepath.Clean("/" + filepath.FromSlash(name))
	if clean == string(filepath.Separator) {
		return "", false
	}
	return filepath.Join(h.root, strings.Trim(prefix, "/"), clean), true
}
