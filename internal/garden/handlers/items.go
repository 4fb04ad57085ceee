package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"garden-board/internal/garden/models"
	"garden-board/internal/garden/repository"
	"garden-board/internal/garden/service"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// ============================================================
// Items Handler
// ============================================================

const requestTimeout = 5 * time.Second

type ItemsHandler struct {
	items *service.ItemService
	log   zerolog.Logger
}

func NewItemsHandler(items *service.ItemService, logger zerolog.Logger) *ItemsHandler {
	return &ItemsHandler{items: items, log: logger}
}

// List возвращает все растения в порядке создания.
func (h *ItemsHandler) List(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	items, err := h.items.List(ctx)
	if err != nil {
		return h.fail(c, "list", err)
	}
	return c.JSON(items)
}

// Create вставляет строку; id назначается сервером.
func (h *ItemsHandler) Create(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}

	var req models.NewItem
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	it, err := h.items.Create(ctx, req)
	if err != nil {
		return h.fail(c, "create", err)
	}
	return c.Status(http.StatusCreated).JSON(it)
}

// Update применяет частичное обновление позиции/угла/подписи.
func (h *ItemsHandler) Update(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "id required"})
	}

	var patch models.ItemPatch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	it, err := h.items.Update(ctx, id, patch)
	if err != nil {
		return h.fail(c, "update", err)
	}
	return c.JSON(it)
}

func (h *ItemsHandler) Delete(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "id required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.items.Delete(ctx, id); err != nil {
		return h.fail(c, "delete", err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Clear удаляет все строки (только admin, см. middleware.RequireAdmin).
func (h *ItemsHandler) Clear(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	n, err := h.items.Clear(ctx)
	if err != nil {
		return h.fail(c, "clear", err)
	}
	return c.JSON(fiber.Map{"deleted": n})
}

// ============================================================
// Helpers
// ============================================================

func (h *ItemsHandler) fail(c fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	case errors.Is(err, service.ErrInvalid):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("op", op).Msg("item operation failed")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
