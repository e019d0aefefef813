// Package config loads service settings from defaults, an optional file,
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSecretKey signs sessions when SECRET_KEY is unset. It is only fit for development.
const DefaultSecretKey = "vofo-dev-secret-change-me"

// Search providers.
const (
	ProviderSoundCloud = "soundcloud"
	ProviderSpotify    = "spotify"
)

// Config holds every runtime setting.
type Config struct {
	Port                string
	DatabaseURL         string
	SecretKey           string
	SessionTTL          time.Duration
	SessionCookieSecure bool
	RedisAddr           string
	RedisPassword       string
	RabbitMQURL         string
	YtDlpPath           string
	ProviderTimeout     time.Duration
	SearchLimit         int
	SearchProvider      string
	SpotifyClientID     string
	SpotifyClientSecret string
	SearchRequiresAuth  bool
	AuthRateLimit       int
	AuthRateWindow      time.Duration
	BcryptCost          int
	LogLevel            string
	CORSOrigins         string
	StaticDir           string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("DATABASE_URL", "sqlite:///vofo.db")
	v.SetDefault("SECRET_KEY", DefaultSecretKey)
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("YTDLP_PATH", "yt-dlp")
	v.SetDefault("PROVIDER_TIMEOUT", "8s")
	v.SetDefault("SEARCH_LIMIT", 10)
	v.SetDefault("SEARCH_PROVIDER", ProviderSoundCloud)
	v.SetDefault("SPOTIFY_CLIENT_ID", "")
	v.SetDefault("SPOTIFY_CLIENT_SECRET", "")
	v.SetDefault("SEARCH_REQUIRES_AUTH", false)
	v.SetDefault("AUTH_RATE_LIMIT", 10)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STATIC_DIR", "")
}

// Load reads configuration. path may be empty; its format follows the file extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:                v.GetString("PORT"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		SecretKey:           v.GetString("SECRET_KEY"),
		SessionTTL:          v.GetDuration("SESSION_TTL"),
		SessionCookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		YtDlpPath:           v.GetString("YTDLP_PATH"),
		ProviderTimeout:     v.GetDuration("PROVIDER_TIMEOUT"),
		SearchLimit:         v.GetInt("SEARCH_LIMIT"),
		SearchProvider:      strings.ToLower(strings.TrimSpace(v.GetString("SEARCH_PROVIDER"))),
		SpotifyClientID:     v.GetString("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: v.GetString("SPOTIFY_CLIENT_SECRET"),
		SearchRequiresAuth:  v.GetBool("SEARCH_REQUIRES_AUTH"),
		AuthRateLimit:       v.GetInt("AUTH_RATE_LIMIT"),
		AuthRateWindow:      v.GetDuration("AUTH_RATE_WINDOW"),
		BcryptCost:          v.GetInt("BCRYPT_COST"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		CORSOrigins:         v.GetString("CORS_ORIGINS"),
		StaticDir:           v.GetString("STATIC_DIR"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.SearchLimit <= 0 {
		errs = append(errs, errors.New("SEARCH_LIMIT must be positive"))
	}
	switch c.SearchProvider {
	case ProviderSoundCloud:
	case ProviderSpotify:
		if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
			errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required for the spotify provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SEARCH_PROVIDER %q", c.SearchProvider))
	}
	return errors.Join(errs...)
}

// ListenAddr is the address handed to the HTTP listener.
func (c *Config) ListenAddr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return "0.0.0.0:" + c.Port
}

// UsesDefaultSecret reports whether sessions are signed with the development key.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}
