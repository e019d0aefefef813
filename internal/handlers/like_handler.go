package handlers

import (
	"errors"

	"vofo/internal/middleware"
	"vofo/internal/models"
	"vofo/internal/services"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// LikeHandler handles HTTP requests for the liked-songs list.
type LikeHandler struct {
	likes    *services.LikeService
	sessions *services.SessionService
	validate *validator.Validate
}

// NewLikeHandler creates a new LikeHandler.
func NewLikeHandler(likes *services.LikeService, sessions *services.SessionService) *LikeHandler {
	return &LikeHandler{
		likes:    likes,
		sessions: sessions,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the like routes. Every route requires a session.
func (h *LikeHandler) RegisterRoutes(router fiber.Router) {
	authRequired := middleware.AuthRequired(h.sessions)
	router.Post("/like", authRequired, h.HandleToggle)
	router.Get("/library", authRequired, h.HandleList)
	router.Get("/my-likes", authRequired, h.HandleList)
}

// HandleToggle likes the track or removes an existing like.
func (h *LikeHandler) HandleToggle(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	var track models.Track
	if err := c.BodyParser(&track); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(track); err != nil {
		return validationFailed(c, err)
	}

	status, err := h.likes.Toggle(c.UserContext(), session.Account.ID, track)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return errorResponse(c, fiber.StatusBadRequest, "Track id is required")
		}
		if errors.Is(err, services.ErrUnauthenticated) {
			return errorResponse(c, fiber.StatusUnauthorized, "Authentication required")
		}
		log.Error("error toggling like", "account_id", session.Account.ID, "track_id", track.ID, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not update likes")
	}
	return c.JSON(fiber.Map{"status": status})
}

// HandleList returns the caller's liked tracks, oldest first.
func (h *LikeHandler) HandleList(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	tracks, err := h.likes.List(c.UserContext(), session.Account.ID)
	if err != nil {
		log.Error("error listing likes", "account_id", session.Account.ID, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not load likes")
	}
	return c.JSON(tracks)
}
