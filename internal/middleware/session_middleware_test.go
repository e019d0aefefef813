package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vofo/internal/repositories"
	"vofo/internal/services"
	"vofo/internal/sessions"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSessionTokens(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(strings.Join(SessionTokens(c), ","))
	})

	cases := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{name: "none"},
		{name: "cookie", cookie: "from-cookie", want: "from-cookie"},
		{name: "bearer", header: "Bearer from-header", want: "from-header"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "basic ignored", header: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Bearer  "},
		{name: "cookie first", cookie: "c", header: "Bearer h", want: "c,h"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.cookie != "" {
				req.Header.Set("Cookie", SessionCookie+"="+tc.cookie)
			}
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.want, string(body))
		})
	}
}

func TestAuthRequired(t *testing.T) {
	ctx := context.Background()
	accounts := repositories.NewMockAccountRepository()
	auth := services.NewAuthService(accounts, bcrypt.MinCost, nil)
	svc := services.NewSessionService(auth, accounts, sessions.NewMemoryRevoker(), "secret", time.Hour)

	account, err := auth.Register(ctx, "alice", "password123")
	require.NoError(t, err)
	session, err := svc.Issue(account)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/private", AuthRequired(svc), func(c *fiber.Ctx) error {
		return c.SendString(CurrentSession(c).Account.Username)
	})
	app.Get("/public", LoadSession(svc), func(c *fiber.Ctx) error {
		if s := CurrentSession(c); s != nil {
			return c.SendString(s.Account.Username)
		}
		return c.SendString("anonymous")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "alice", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/public", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "anonymous", string(body))

	stale, err := svc.Issue(account)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, stale.Token))

	req = httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Cookie", SessionCookie+"="+stale.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// a revoked cookie does not hide a valid bearer token
	for _, path := range []string{"/private", "/public"} {
		req = httptest.NewRequest("GET", path, nil)
		req.Header.Set("Cookie", SessionCookie+"="+stale.Token)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		body, _ = io.ReadAll(resp.Body)
		assert.Equal(t, "alice", string(body), path)
	}

	req = httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Cookie", SessionCookie+"=not-a-token")
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
