package middleware

import (
	"strings"

	"vofo/internal/services"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the HttpOnly cookie carrying the session token.
const SessionCookie = "vofo_session"

const sessionLocal = "session"

// SessionTokens returns the candidate tokens from the session cookie and a
// Bearer header, cookie first. Empty values are skipped.
func SessionTokens(c *fiber.Ctx) []string {
	var tokens []string
	if token := c.Cookies(SessionCookie); token != "" {
		tokens = append(tokens, token)
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if token := strings.TrimSpace(parts[1]); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// resolveSession returns the first candidate token that maps to a live
// session, so a stale cookie does not mask a valid Bearer token.
func resolveSession(c *fiber.Ctx, sessions *services.SessionService) (*services.Session, error) {
	for _, token := range SessionTokens(c) {
		session, err := sessions.CurrentAccount(c.UserContext(), token)
		if err != nil || session != nil {
			return session, err
		}
	}
	return nil, nil
}

// LoadSession attaches the caller's session, if any, without rejecting anonymous requests.
func LoadSession(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := resolveSession(c, sessions)
		if err != nil {
			log.Error("session lookup failed", "path", c.Path(), "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify session",
			})
		}
		if session != nil {
			c.Locals(sessionLocal, session)
		}
		return c.Next()
	}
}

// AuthRequired rejects requests without a valid session with 401.
func AuthRequired(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := resolveSession(c, sessions)
		if err != nil {
			log.Error("session lookup failed", "path", c.Path(), "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify session",
			})
		}
		if session == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		c.Locals(sessionLocal, session)
		return c.Next()
	}
}

// CurrentSession returns the session stored by LoadSession or AuthRequired.
func CurrentSession(c *fiber.Ctx) *services.Session {
	session, _ := c.Locals(sessionLocal).(*services.Session)
	return session
}
