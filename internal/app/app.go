// Package app assembles the HTTP application from its dependencies.
package app

import (
	"io"
	"os"
	"time"

	"vofo/internal/handlers"
	"vofo/internal/middleware"
	"vofo/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Dependencies is everything the router needs, built once at startup.
type Dependencies struct {
	Auth     *services.AuthService
	Sessions *services.SessionService
	Likes    *services.LikeService
	Music    *services.MusicService

	// AuthRateLimiter guards register and login; nil disables limiting.
	AuthRateLimiter    middleware.RateLimiter
	AuthRateWindow     time.Duration
	CookieSecure       bool
	SearchRequiresAuth bool
	CORSOrigins        string
	StaticDir          string
	// AccessLog receives one line per request; nil means stdout.
	AccessLog io.Writer
}

// New builds the Fiber app with middleware and every route registered.
func New(deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "vofo",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}
	origins := deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: accessLog,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: origins != "*",
	}))

	api := app.Group("/api")

	handlers.NewAuthHandler(deps.Auth, deps.Sessions, deps.CookieSecure,
		middleware.RateLimit(deps.AuthRateLimiter, deps.AuthRateWindow)).RegisterRoutes(api)
	handlers.NewMusicHandler(deps.Music, deps.Sessions, deps.SearchRequiresAuth).RegisterRoutes(api)
	handlers.NewLikeHandler(deps.Likes, deps.Sessions).RegisterRoutes(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if deps.StaticDir != "" {
		app.Static("/", deps.StaticDir)
	}

	return app
}
