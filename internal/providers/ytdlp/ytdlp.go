// Package ytdlp searches SoundCloud and resolves audio streams by shelling out to yt-dlp.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"vofo/internal/models"
	"vofo/internal/providers"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Provider implements providers.Searcher and providers.StreamResolver on top of the yt-dlp CLI.
type Provider struct {
	Binary       string
	Run          CommandRunner
	Timeout      time.Duration
	SearchPrefix string
	SearchLimit  int
}

// compile-time interface assertions
var (
	_ providers.Searcher       = (*Provider)(nil)
	_ providers.StreamResolver = (*Provider)(nil)
)

// stderr fragments yt-dlp prints when the reference has nothing we can play.
var unresolvableMarkers = []string{
	"Requested format is not available",
	"Unsupported URL",
	"No video formats found",
	"is not a valid URL",
	"Unable to download JSON metadata: HTTP Error 404",
}

// New constructs a Provider that shells out to yt-dlp and searches SoundCloud.
func New(binary string, timeout time.Duration, searchLimit int) *Provider {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &Provider{
		Binary:       binary,
		Run:          defaultCommandRunner,
		Timeout:      timeout,
		SearchPrefix: "scsearch",
		SearchLimit:  searchLimit,
	}
}

type thumbnail struct {
	URL string `json:"url"`
}

type entry struct {
	ID         string      `json:"id"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Title      string      `json:"title"`
	Uploader   string      `json:"uploader"`
	Artist     string      `json:"artist"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []thumbnail `json:"thumbnails"`
	Ext        string      `json:"ext"`
	ACodec     string      `json:"acodec"`
	VCodec     string      `json:"vcodec"`
}

// Search runs a flat "<prefix><limit>:<query>" extraction.
func (p *Provider) Search(ctx context.Context, query string) ([]models.Track, error) {
	if p == nil {
		return nil, providers.ErrUnavailable
	}
	target := fmt.Sprintf("%s%d:%s", p.SearchPrefix, p.SearchLimit, query)
	out, err := p.exec(ctx, "--dump-single-json", "--flat-playlist", "--no-warnings", "--quiet", "--", target)
	if err != nil {
		return nil, fmt.Errorf("%w: yt-dlp search: %w", providers.ErrUnavailable, err)
	}

	var payload struct {
		Entries []*entry `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse yt-dlp search response: %w", providers.ErrUnavailable, err)
	}

	tracks := make([]models.Track, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		if e == nil {
			continue
		}
		track := e.track()
		if track.ID == "" {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Resolve extracts the best audio-only rendition. Results are never cached:
// the returned URLs are signed and expire.
func (p *Provider) Resolve(ctx context.Context, ref providers.StreamRef) (models.Stream, error) {
	if p == nil {
		return models.Stream{}, providers.ErrUnavailable
	}
	target := resolveTarget(ref)
	if target == "" {
		return models.Stream{}, fmt.Errorf("%w: empty track reference", providers.ErrUnresolvable)
	}

	// "--" keeps a caller-supplied ref from being parsed as an option
	out, err := p.exec(ctx, "--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download", "-f", "bestaudio", "--", target)
	if err != nil {
		return models.Stream{}, classify(err)
	}

	var payload struct {
		entry
		Entries []*entry `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return models.Stream{}, fmt.Errorf("%w: parse yt-dlp response: %w", providers.ErrUnavailable, err)
	}

	chosen := &payload.entry
	if len(payload.Entries) > 0 {
		chosen = payload.Entries[0]
	}
	if chosen == nil || chosen.URL == "" {
		return models.Stream{}, fmt.Errorf("%w: yt-dlp returned no media url", providers.ErrUnresolvable)
	}
	if chosen.ACodec == "none" || (chosen.VCodec != "" && chosen.VCodec != "none") {
		return models.Stream{}, fmt.Errorf("%w: best format is not audio-only", providers.ErrUnresolvable)
	}
	return models.Stream{URL: chosen.URL, Ext: chosen.Ext}, nil
}

func (p *Provider) exec(ctx context.Context, args ...string) ([]byte, error) {
	run := p.Run
	if run == nil {
		run = defaultCommandRunner
	}
	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := run(execCtx, p.Binary, args...)
	if err != nil {
		if ctxErr := execCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp: %w", ctxErr)
		}
		return nil, err
	}
	return out, nil
}

func (e *entry) track() models.Track {
	id := firstNonEmpty(e.URL, e.WebpageURL, e.ID)
	thumb := e.Thumbnail
	if thumb == "" && len(e.Thumbnails) > 0 {
		thumb = e.Thumbnails[len(e.Thumbnails)-1].URL
	}
	return models.Track{
		ID:        id,
		Title:     e.Title,
		Artist:    firstNonEmpty(e.Uploader, e.Artist),
		Thumbnail: thumb,
	}
}

// resolveTarget plays URLs directly and turns catalog ids with metadata into a YouTube search.
func resolveTarget(ref providers.StreamRef) string {
	raw := strings.TrimSpace(ref.Ref)
	if isURL(raw) {
		return raw
	}
	query := strings.TrimSpace(strings.Trim(strings.TrimSpace(ref.Artist)+" - "+strings.TrimSpace(ref.Title), " -"))
	if query != "" {
		return "ytsearch1:" + query
	}
	return raw
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", providers.ErrUnavailable, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := string(exitErr.Stderr)
		for _, marker := range unresolvableMarkers {
			if strings.Contains(stderr, marker) {
				return fmt.Errorf("%w: %s", providers.ErrUnresolvable, strings.TrimSpace(stderr))
			}
		}
	}
	return fmt.Errorf("%w: yt-dlp: %w", providers.ErrUnavailable, err)
}

func isURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
