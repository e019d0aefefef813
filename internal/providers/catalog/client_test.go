package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vofo/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "daft punk", r.URL.Query().Get("q"))
		assert.Equal(t, "track", r.URL.Query().Get("type"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tracks":{"items":[
			{"id":"t1","name":"One More Time","artists":[{"name":"Daft Punk"},{"name":"Romanthony"}],"album":{"images":[{"url":"https://img/large"},{"url":"https://img/small"}]}},
			null,
			{"id":"","name":"missing id"},
			{"id":"t2","name":"Da Funk","artists":[{"name":"Daft Punk"}],"album":{"images":[]}}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL+"/", 3)
	tracks, err := client.Search(context.Background(), "daft punk")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, "One More Time", tracks[0].Title)
	assert.Equal(t, "Daft Punk, Romanthony", tracks[0].Artist)
	assert.Equal(t, "https://img/large", tracks[0].Thumbnail)
	assert.Equal(t, "t2", tracks[1].ID)
	assert.Empty(t, tracks[1].Thumbnail)
}

func TestClientSearchEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":{"items":[]}}`))
	}))
	defer server.Close()

	tracks, err := NewClient(server.Client(), server.URL, 0).Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestClientSearchFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"unauthorized": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			_, err := NewClient(server.Client(), server.URL, 5).Search(context.Background(), "q")
			assert.ErrorIs(t, err, providers.ErrUnavailable)
		})
	}
}

func TestClientSearchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.Client(), server.URL, 5).Search(ctx, "slow")
	assert.ErrorIs(t, err, providers.ErrUnavailable)
}

func TestSpotifyClientFetchesToken(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"tracks":{"items":[{"id":"t1","name":"Song","artists":[{"name":"A"}]}]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewSpotifyClient(context.Background(), "id", "secret", time.Second, 5)
	client.baseURL = server.URL + "/v1"
	client.httpClient = spotifyHTTPClient(context.Background(), "id", "secret", server.URL+"/token", time.Second)

	tracks, err := client.Search(context.Background(), "song")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "A", tracks[0].Artist)
	assert.Equal(t, 1, tokenCalls)
}
