package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vofo/internal/models"
	"vofo/internal/repositories"
	"vofo/internal/sessions"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// DefaultSessionTTL is used when no positive TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// Claims is the signed payload of a session token.
type Claims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	jwt.StandardClaims
}

// Session is an authenticated principal plus the token that proves it.
type Session struct {
	Token     string
	ID        string
	Account   *models.Account
	ExpiresAt time.Time
}

// SessionService issues, verifies, and revokes session tokens.
type SessionService struct {
	auth     *AuthService
	accounts repositories.AccountRepository
	revoker  sessions.Revoker
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(auth *AuthService, accounts repositories.AccountRepository, revoker sessions.Revoker, secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if revoker == nil {
		revoker = sessions.NewMemoryRevoker()
	}
	return &SessionService{
		auth:     auth,
		accounts: accounts,
		revoker:  revoker,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL reports how long issued sessions stay valid.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Login authenticates the pair and signs a new session.
func (s *SessionService) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.Issue(account)
}

// Issue signs a session token for account.
func (s *SessionService) Issue(account *models.Account) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		AccountID: account.ID,
		Username:  account.Username,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return &Session{
		Token:     token,
		ID:        claims.Id,
		Account:   account,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// CurrentAccount resolves a token to its session. A missing, malformed,
// expired, or revoked token, or one whose account was deleted, yields
// (nil, nil). Errors are reserved for store failures.
func (s *SessionService) CurrentAccount(ctx context.Context, token string) (*Session, error) {
	claims, ok := s.parse(token)
	if !ok {
		return nil, nil
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, nil
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session account: %w", err)
	}

	return &Session{
		Token:     token,
		ID:        claims.Id,
		Account:   account,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// RequireAccount is CurrentAccount that fails with ErrUnauthenticated instead of returning nil.
func (s *SessionService) RequireAccount(ctx context.Context, token string) (*Session, error) {
	session, err := s.CurrentAccount(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrUnauthenticated
	}
	return session, nil
}

// Logout revokes the token until it would have expired. Missing, invalid, and
// already revoked tokens are not errors.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, ok := s.parse(token)
	if !ok {
		return nil
	}
	return s.revoke(ctx, claims.Id, time.Unix(claims.ExpiresAt, 0))
}

// Revoke invalidates an already verified session.
func (s *SessionService) Revoke(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	return s.revoke(ctx, session.ID, session.ExpiresAt)
}

func (s *SessionService) revoke(ctx context.Context, id string, expiresAt time.Time) error {
	// a second of slack covers the whole-second exp claim
	ttl := expiresAt.Sub(s.now()) + time.Second
	if err := s.revoker.Revoke(ctx, id, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *SessionService) parse(token string) (*Claims, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Id == "" || claims.AccountID == "" || claims.ExpiresAt == 0 {
		return nil, false
	}
	return claims, true
}
