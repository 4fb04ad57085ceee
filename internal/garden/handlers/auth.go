package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"garden-board/internal/garden/models"
	"garden-board/internal/garden/repository"
	"garden-board/internal/garden/service"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// ============================================================
// Auth Handler
// ============================================================

type AuthHandler struct {
	repo     *repository.Repository
	sessions *service.SessionManager
	log      zerolog.Logger
}

func NewAuthHandler(repo *repository.Repository, sessions *service.SessionManager, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		repo:     repo,
		sessions: sessions,
		log:      logger,
	}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login выдает токен по паре login/password.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}

	var req loginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	if req.Login == "" || req.Password == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "login and password required"})
	}

	user, err := h.repo.GetByCredentials(context.Background(), req.Login, req.Password)
	if err != nil {
		h.log.Info().Str("login", req.Login).Msg("login rejected")
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token := h.sessions.Issue(user.ID, user.Role)
	return c.JSON(loginResponse{Token: token, User: user})
}
