package handlers

import (
	"errors"
	"time"

	"vofo/internal/middleware"
	"vofo/internal/services"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	auth         *services.AuthService
	sessions     *services.SessionService
	validate     *validator.Validate
	cookieSecure bool
	rateLimit    fiber.Handler
}

// NewAuthHandler creates a new AuthHandler. rateLimit guards register and
// login; nil disables it.
func NewAuthHandler(auth *services.AuthService, sessions *services.SessionService, cookieSecure bool, rateLimit fiber.Handler) *AuthHandler {
	if rateLimit == nil {
		rateLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &AuthHandler{
		auth:         auth,
		sessions:     sessions,
		validate:     newValidator(),
		cookieSecure: cookieSecure,
		rateLimit:    rateLimit,
	}
}

// RegisterRoutes registers the authentication routes under /auth plus the
// short aliases older clients call.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	for _, r := range []fiber.Router{authRoutes, router} {
		r.Post("/register", h.rateLimit, h.HandleRegister)
		r.Post("/login", h.rateLimit, h.HandleLogin)
		r.Get("/logout", h.HandleLogout)
		r.Post("/logout", h.HandleLogout)
	}
	authRoutes.Get("/status", middleware.LoadSession(h.sessions), h.HandleStatus)
	authRoutes.Delete("/account", middleware.AuthRequired(h.sessions), h.HandleDeleteAccount)
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required"`
}

// DeleteAccountRequest is the body of account deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) parseCredentials(c *fiber.Ctx) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		log.Debug("error parsing credentials body", "err", err)
		return nil, errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, validationFailed(c, err)
	}
	return &req, nil
}

// HandleRegister creates an account and logs it in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	req, errResp := h.parseCredentials(c)
	if req == nil {
		return errResp
	}

	account, err := h.auth.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			return errorResponse(c, fiber.StatusBadRequest, "Username taken")
		case errors.Is(err, services.ErrPasswordTooLong):
			return errorResponse(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrInvalidInput):
			return errorResponse(c, fiber.StatusBadRequest, "Username and password are required")
		}
		log.Error("error registering account", "username", req.Username, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not register account")
	}

	session, err := h.sessions.Issue(account)
	if err != nil {
		log.Error("error issuing session", "username", account.Username, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not start session")
	}
	h.setSessionCookie(c, session)

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Registered successfully",
		"username": account.Username,
		"token":    session.Token,
	})
}

// HandleLogin verifies credentials and issues a session cookie and token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	req, errResp := h.parseCredentials(c)
	if req == nil {
		return errResp
	}

	session, err := h.sessions.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		log.Error("error during login", "username", req.Username, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not log in")
	}
	h.setSessionCookie(c, session)

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Logged in",
		"username": session.Account.Username,
		"token":    session.Token,
	})
}

// HandleLogout revokes the caller's session. It succeeds for anonymous callers too.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	tokens := middleware.SessionTokens(c)
	h.clearSessionCookie(c)
	for _, token := range tokens {
		if err := h.sessions.Logout(c.UserContext(), token); err != nil {
			log.Error("error revoking session", "err", err)
			return errorResponse(c, fiber.StatusInternalServerError, "Could not log out")
		}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

// HandleStatus reports whether the caller is logged in.
func (h *AuthHandler) HandleStatus(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	if session == nil {
		return c.JSON(fiber.Map{"logged_in": false})
	}
	return c.JSON(fiber.Map{
		"logged_in": true,
		"username":  session.Account.Username,
	})
}

// HandleDeleteAccount removes the caller's account and likes after re-checking the password.
func (h *AuthHandler) HandleDeleteAccount(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	var req DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.auth.DeleteAccount(c.UserContext(), session.Account.ID, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrUnauthenticated) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		log.Error("error deleting account", "account_id", session.Account.ID, "err", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Could not delete account")
	}

	if err := h.sessions.Revoke(c.UserContext(), session); err != nil {
		// the account is gone, so the token no longer resolves anyway
		log.Warn("error revoking session of deleted account", "account_id", session.Account.ID, "err", err)
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, session *services.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
