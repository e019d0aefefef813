package handlers

import (
	"errors"
	"strings"

	"vofo/internal/middleware"
	"vofo/internal/providers"
	"vofo/internal/services"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

const maxQueryLength = 500

// MusicHandler handles search and stream resolution.
type MusicHandler struct {
	music              *services.MusicService
	sessions           *services.SessionService
	searchRequiresAuth bool
}

// NewMusicHandler creates a new MusicHandler.
func NewMusicHandler(music *services.MusicService, sessions *services.SessionService, searchRequiresAuth bool) *MusicHandler {
	return &MusicHandler{
		music:              music,
		sessions:           sessions,
		searchRequiresAuth: searchRequiresAuth,
	}
}

// RegisterRoutes registers search and stream routes. Streams always require a session.
func (h *MusicHandler) RegisterRoutes(router fiber.Router) {
	authRequired := middleware.AuthRequired(h.sessions)
	if h.searchRequiresAuth {
		router.Get("/search", authRequired, h.HandleSearch)
	} else {
		router.Get("/search", h.HandleSearch)
	}
	router.Post("/play", authRequired, h.HandleStream)
	router.Post("/stream", authRequired, h.HandleStream)
	router.Get("/stream", authRequired, h.HandleStreamQuery)
}

// StreamRequest names the track to resolve: a playable URL, or a provider
// id optionally with metadata for a fallback text search.
type StreamRequest struct {
	URL    string `json:"url"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func (r StreamRequest) ref() providers.StreamRef {
	ref := strings.TrimSpace(r.URL)
	if ref == "" {
		ref = strings.TrimSpace(r.ID)
	}
	return providers.StreamRef{Ref: ref, Title: r.Title, Artist: r.Artist}
}

// HandleSearch returns candidate tracks; provider failures yield an empty list.
func (h *MusicHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if len(query) > maxQueryLength {
		return errorResponse(c, fiber.StatusBadRequest, "Query is too long")
	}

	tracks, err := h.music.Search(c.UserContext(), query)
	if err != nil {
		log.Error("error searching", "query", query, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Search failed")
	}
	return c.JSON(tracks)
}

// HandleStream resolves the track in the JSON body.
func (h *MusicHandler) HandleStream(c *fiber.Ctx) error {
	var req StreamRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	return h.resolve(c, req.ref())
}

// HandleStreamQuery resolves ?id= (with optional title and artist).
func (h *MusicHandler) HandleStreamQuery(c *fiber.Ctx) error {
	req := StreamRequest{
		ID:     c.Query("id"),
		URL:    c.Query("url"),
		Title:  c.Query("title"),
		Artist: c.Query("artist"),
	}
	return h.resolve(c, req.ref())
}

func (h *MusicHandler) resolve(c *fiber.Ctx, ref providers.StreamRef) error {
	if ref.Ref == "" {
		return errorResponse(c, fiber.StatusBadRequest, "url or id is required")
	}

	stream, err := h.music.Stream(c.UserContext(), ref)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrUnresolvable):
			return errorResponse(c, fiber.StatusUnsupportedMediaType, "No playable audio stream for this track")
		case errors.Is(err, services.ErrInvalidInput):
			return errorResponse(c, fiber.StatusBadRequest, "url or id is required")
		}
		log.Error("error resolving stream", "ref", ref.Ref, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not resolve stream")
	}
	// signed URLs expire; clients must not reuse the response
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(stream)
}
