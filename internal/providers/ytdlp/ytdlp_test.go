package ytdlp

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"vofo/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderSearch(t *testing.T) {
	p := New("yt-dlp", time.Second, 5)
	p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		assert.Equal(t, "yt-dlp", binary)
		assert.Equal(t, []string{"--dump-single-json", "--flat-playlist", "--no-warnings", "--quiet", "--", "scsearch5:daft punk"}, args)
		return []byte(`{"entries":[
			{"url":"https://soundcloud.com/a/one","title":"One","uploader":"A","thumbnail":"https://img/1.jpg"},
			null,
			{"webpage_url":"https://soundcloud.com/b/two","title":"Two","artist":"B","thumbnails":[{"url":"small"},{"url":"large"}]},
			{"title":"no id"}
		]}`), nil
	}

	tracks, err := p.Search(context.Background(), "daft punk")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "https://soundcloud.com/a/one", tracks[0].ID)
	assert.Equal(t, "One", tracks[0].Title)
	assert.Equal(t, "A", tracks[0].Artist)
	assert.Equal(t, "https://img/1.jpg", tracks[0].Thumbnail)
	assert.Equal(t, "https://soundcloud.com/b/two", tracks[1].ID)
	assert.Equal(t, "B", tracks[1].Artist)
	assert.Equal(t, "large", tracks[1].Thumbnail)
}

func TestProviderSearchFailuresAreUnavailable(t *testing.T) {
	cases := map[string]CommandRunner{
		"command error": func(ctx context.Context, binary string, args ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		},
		"garbage output": func(ctx context.Context, binary string, args ...string) ([]byte, error) {
			return []byte("not json"), nil
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			p := New("", time.Second, 0)
			p.Run = run
			_, err := p.Search(context.Background(), "q")
			assert.ErrorIs(t, err, providers.ErrUnavailable)
		})
	}
}

func TestProviderSearchTimeout(t *testing.T) {
	p := New("yt-dlp", 10*time.Millisecond, 1)
	p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := p.Search(context.Background(), "slow")
	assert.ErrorIs(t, err, providers.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProviderResolve(t *testing.T) {
	p := New("yt-dlp", time.Second, 10)
	p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		assert.Equal(t, []string{"--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download", "-f", "bestaudio", "--", "https://soundcloud.com/a/one"}, args)
		return []byte(`{"url":"https://cdn/one.mp3?sig=abc","ext":"mp3","acodec":"mp3","vcodec":"none"}`), nil
	}

	stream, err := p.Resolve(context.Background(), providers.StreamRef{Ref: "https://soundcloud.com/a/one"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/one.mp3?sig=abc", stream.URL)
	assert.Equal(t, "mp3", stream.Ext)
}

func TestProviderResolveCatalogReference(t *testing.T) {
	p := New("yt-dlp", time.Second, 10)
	p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		assert.Equal(t, "ytsearch1:Artist - Song", args[len(args)-1])
		return []byte(`{"entries":[{"url":"https://cdn/yt.webm","ext":"webm","acodec":"opus","vcodec":"none"}]}`), nil
	}

	stream, err := p.Resolve(context.Background(), providers.StreamRef{Ref: "4uLU6hMCjMI75M1A2tKUQC", Title: "Song", Artist: "Artist"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/yt.webm", stream.URL)
	assert.Equal(t, "webm", stream.Ext)
}

func TestProviderResolveRejectsNonAudio(t *testing.T) {
	cases := map[string]string{
		"no url":     `{"ext":"mp3"}`,
		"video":      `{"url":"https://cdn/v.mp4","ext":"mp4","acodec":"aac","vcodec":"avc1"}`,
		"no audio":   `{"url":"https://cdn/v.mp4","ext":"mp4","acodec":"none"}`,
		"null entry": `{"entries":[null]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := New("yt-dlp", time.Second, 10)
			p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
				return []byte(body), nil
			}
			_, err := p.Resolve(context.Background(), providers.StreamRef{Ref: "https://soundcloud.com/x"})
			assert.ErrorIs(t, err, providers.ErrUnresolvable)
		})
	}
}

func TestProviderResolveEmptyReference(t *testing.T) {
	p := New("yt-dlp", time.Second, 10)
	_, err := p.Resolve(context.Background(), providers.StreamRef{Ref: "  "})
	assert.ErrorIs(t, err, providers.ErrUnresolvable)
}

func TestClassify(t *testing.T) {
	formatErr := &exec.ExitError{Stderr: []byte("ERROR: [soundcloud] x: Requested format is not available")}
	assert.ErrorIs(t, classify(formatErr), providers.ErrUnresolvable)

	networkErr := &exec.ExitError{Stderr: []byte("ERROR: Unable to download webpage: timed out")}
	assert.ErrorIs(t, classify(networkErr), providers.ErrUnavailable)

	assert.ErrorIs(t, classify(context.DeadlineExceeded), providers.ErrUnavailable)
	assert.ErrorIs(t, classify(errors.New("exec: not found")), providers.ErrUnavailable)
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	_, err := p.Search(context.Background(), "q")
	assert.ErrorIs(t, err, providers.ErrUnavailable)
	_, err = p.Resolve(context.Background(), providers.StreamRef{Ref: "https://x.test/a"})
	assert.ErrorIs(t, err, providers.ErrUnavailable)
}

func TestProviderTreatsRefsAsPositional(t *testing.T) {
	refs := []string{
		"--exec=before_dl:touch /tmp/owned",
		"--batch-file=/etc/passwd",
		"-o/tmp/x",
	}
	for _, ref := range refs {
		t.Run(ref, func(t *testing.T) {
			p := New("yt-dlp", time.Second, 10)
			var argv []string
			p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
				argv = args
				return []byte(`{"url":"https://cdn/a.mp3","ext":"mp3","acodec":"mp3","vcodec":"none"}`), nil
			}

			_, err := p.Resolve(context.Background(), providers.StreamRef{Ref: ref})
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(argv), 2)
			assert.Equal(t, "--", argv[len(argv)-2])
			assert.Equal(t, ref, argv[len(argv)-1])
			for _, arg := range argv[:len(argv)-2] {
				assert.NotEqual(t, ref, arg)
			}
		})
	}

	p := New("yt-dlp", time.Second, 10)
	var argv []string
	p.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		argv = args
		return []byte(`{"entries":[]}`), nil
	}
	_, err := p.Search(context.Background(), "--exec=x")
	require.NoError(t, err)
	assert.Equal(t, []string{"--", "scsearch10:--exec=x"}, argv[len(argv)-2:])
}
