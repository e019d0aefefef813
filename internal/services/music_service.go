package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vofo/internal/models"
	"vofo/internal/providers"

	"github.com/charmbracelet/log"
)

// MusicService fronts the search and stream collaborators.
type MusicService struct {
	searcher providers.Searcher
	resolver providers.StreamResolver
	timeout  time.Duration
}

// NewMusicService creates a new MusicService. A non-positive timeout leaves
// bounding calls to the adapters.
func NewMusicService(searcher providers.Searcher, resolver providers.StreamResolver, timeout time.Duration) *MusicService {
	return &MusicService{
		searcher: searcher,
		resolver: resolver,
		timeout:  timeout,
	}
}

// Search returns candidate tracks. Collaborator failures and timeouts
// degrade to an empty result; other errors propagate.
func (s *MusicService) Search(ctx context.Context, query string) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" || s.searcher == nil {
		return []models.Track{}, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	tracks, err := s.searcher.Search(ctx, query)
	if err != nil {
		if errors.Is(err, providers.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("search provider failed", "query", query, "err", err)
			return []models.Track{}, nil
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return tracks, nil
}

// Stream resolves ref to a playable URL. Results are never cached.
func (s *MusicService) Stream(ctx context.Context, ref providers.StreamRef) (models.Stream, error) {
	if strings.TrimSpace(ref.Ref) == "" {
		return models.Stream{}, ErrInvalidInput
	}
	if s.resolver == nil {
		return models.Stream{}, providers.ErrUnavailable
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	stream, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, providers.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", providers.ErrUnavailable, err)
		}
		return models.Stream{}, err
	}
	return stream, nil
}

func (s *MusicService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
