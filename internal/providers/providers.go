// Package providers defines the contracts of the external search and stream
// resolution collaborators. Adapters live in subpackages.
package providers

import (
	"context"
	"errors"

	"vofo/internal/models"
)

var (
	// ErrUnavailable indicates the collaborator failed, timed out, or returned garbage.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrUnresolvable indicates no playable audio-only rendition exists for the reference.
	ErrUnresolvable = errors.New("no playable audio stream")
)

// Searcher returns candidate tracks for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Track, error)
}

// StreamRef identifies what to resolve. Ref is a URL or a provider id;
// Title and Artist let resolvers fall back to a text search when Ref is a
// catalog id that cannot be played directly.
type StreamRef struct {
	Ref    string
	Title  string
	Artist string
}

// StreamResolver turns a reference into a direct media URL.
type StreamResolver interface {
	Resolve(ctx context.Context, ref StreamRef) (models.Stream, error)
}
