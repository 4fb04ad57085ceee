package handlers

import (
	"garden-board/internal/common/middleware"
	"garden-board/internal/garden/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ============================================================
// Routes
// ============================================================

type Deps struct {
	Items    *ItemsHandler
	Auth     *AuthHandler
	Stream   *StreamHandler
	Render   *RenderHandler
	Assets   *AssetsHandler
	Sessions *service.SessionManager
	DB       Pinger
}

// Mount регистрирует все маршруты garden сервиса.
func Mount(app *fiber.App, d Deps) {
	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", ReadinessProbe(d.DB))
	app.Get("/health/startup", StartupProbe)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if d.Assets != nil {
		app.Get("/assets/*", d.Assets.Serve("/assets"))
		app.Get("/lovable-uploads/*", d.Assets.Serve("/lovable-uploads"))
	}

	api := app.Group("/api/v1")

	api.Post("/login", d.Auth.Login)

	api.Get("/items", d.Items.List)
	api.Post("/items", d.Items.Create)
	api.Patch("/items/:id", d.Items.Update)
	api.Delete("/items/:id", d.Items.Delete)
	api.Delete("/items", middleware.RequireAdmin(resolveRole(d.Sessions)), d.Items.Clear)

	api.Get("/realtime", d.Stream.Subscribe)
	if d.Render != nil {
		api.Get("/snapshot.png", d.Render.Snapshot)
	}
}

func resolveRole(sessions *service.SessionManager) middleware.RoleResolver {
	return func(token string) (string, bool) {
		s, ok := sessions.Resolve(token)
		return s.Role, ok
	}
}
