package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/imaging"
	"garden-board/internal/board/reconcile"
	"garden-board/internal/garden/models"
	"garden-board/internal/garden/service"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// ============================================================
// Render Handler
// ============================================================

const (
	snapshotHeight       = 480
	snapshotDefaultWidth = 960
	snapshotMinWidth     = 200
	snapshotMaxWidth     = 4096
	snapshotTargetWidth  = 96
)

type RenderHandler struct {
	items  *service.ItemService
	images *imaging.Preprocessor
	log    zerolog.Logger
}

func NewRenderHandler(items *service.ItemService, images *imaging.Preprocessor, logger zerolog.Logger) *RenderHandler {
	return &RenderHandler{items: items, images: images, log: logger}
}

// Snapshot рисует текущую доску в PNG (?width=, высота фиксирована).
func (h *RenderHandler) Snapshot(c fiber.Ctx) error {
	width := snapshotDefaultWidth
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w < snapshotMinWidth || w > snapshotMaxWidth {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("width must be between %d and %d", snapshotMinWidth, snapshotMaxWidth),
			})
		}
		width = w
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*requestTimeout)
	defer cancel()

	items, err := h.items.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}

	scene := canvas.NewScene(width, snapshotHeight)
	for _, it := range items {
		obj := canvas.NewObject(h.image(ctx, it), snapshotTargetWidth)
		obj.SetPose(canvas.Pose{X: it.X, Y: it.Y, Angle: it.Angle})
		scene.Add(obj)
	}

	img, err := scene.Snapshot(legend(items))
	if err != nil {
		return h.fail(c, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return h.fail(c, err)
	}

	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

func (h *RenderHandler) image(ctx context.Context, it models.Item) image.Image {
	if img, err := h.images.Process(ctx, it.URL); err == nil {
		return img
	}
	if img, err := h.images.Original(ctx, it.URL); err == nil {
		return img
	}
	h.log.Debug().Str("id", it.ID).Str("url", it.URL).Msg("image unavailable, using placeholder")
	return imaging.Placeholder(snapshotTargetWidth)
}

func (h *RenderHandler) fail(c fiber.Ctx, err error) error {
	h.log.Error().Err(err).Msg("snapshot failed")
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "snapshot failed"})
}

// legend: общее число и число по подписям, по убыванию.
func legend(items []models.Item) []string {
	counts := reconcile.Counts{}
	for _, it := range items {
		counts[it.Label]++
	}
	return counts.Legend()
}
