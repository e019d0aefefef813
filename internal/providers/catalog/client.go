// Package catalog searches the Spotify Web API track catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"vofo/internal/models"
	"vofo/internal/providers"
)

const (
	// SpotifyAPIBaseURL is the public Web API root.
	SpotifyAPIBaseURL = "https://api.spotify.com/v1"
	// SpotifyTokenURL issues client-credentials tokens.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Client is an HTTP client for catalog search.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limit      int
}

// compile-time interface assertion
var _ providers.Searcher = (*Client)(nil)

// NewClient constructs a catalog client. The http client is expected to
// attach credentials itself.
func NewClient(httpClient *http.Client, baseURL string, limit int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limit <= 0 {
		limit = 10
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limit:      limit,
	}
}

// NewSpotifyClient authenticates with the client-credentials flow.
func NewSpotifyClient(ctx context.Context, clientID, clientSecret string, timeout time.Duration, limit int) *Client {
	return NewClient(spotifyHTTPClient(ctx, clientID, clientSecret, SpotifyTokenURL, timeout), SpotifyAPIBaseURL, limit)
}

func spotifyHTTPClient(ctx context.Context, clientID, clientSecret, tokenURL string, timeout time.Duration) *http.Client {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = timeout
	return httpClient
}

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []spotifyImage `json:"images"`
	} `json:"album"`
}

// Search returns up to limit tracks matching query.
func (c *Client) Search(ctx context.Context, query string) ([]models.Track, error) {
	searchURL, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: invalid search url: %w", providers.ErrUnavailable, err)
	}
	q := searchURL.Query()
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(c.limit))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", providers.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: search request failed: %w", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog: search status %d", providers.ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Tracks struct {
			Items []*spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: catalog: search decode error: %w", providers.ErrUnavailable, err)
	}

	tracks := make([]models.Track, 0, len(body.Tracks.Items))
	for _, item := range body.Tracks.Items {
		if item == nil || item.ID == "" {
			continue
		}
		tracks = append(tracks, mapTrack(item))
	}
	return tracks, nil
}

func mapTrack(t *spotifyTrack) models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	var thumb string
	if len(t.Album.Images) > 0 {
		thumb = t.Album.Images[0].URL
	}
	return models.Track{
		ID:        t.ID,
		Title:     t.Name,
		Artist:    strings.Join(names, ", "),
		Thumbnail: thumb,
	}
}
