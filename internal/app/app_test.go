package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/app"
	"github.com/JakeFAU/safescrape/internal/config"
	"github.com/JakeFAU/safescrape/internal/scrape"
	"github.com/JakeFAU/safescrape/internal/source/memory"
)

type stubSession struct{}

func (stubSession) FetchDocument(context.Context, string) (string, error) {
	return "User-agent: *\nAllow: /\n", nil
}

func (stubSession) Navigate(_ context.Context, url string) (string, error) { return url, nil }

func (stubSession) ExtractText(context.Context) ([]string, error) {
	return []string{"hello badword", "hello badword", "   "}, nil
}

func (stubSession) Close() error { return nil }

type stubBrowser struct {
	launches atomic.Int32
	closed   atomic.Int32
}

func (b *stubBrowser) Launch(context.Context) (scrape.Session, error) {
	b.launches.Add(1)
	return stubSession{}, nil
}

func (b *stubBrowser) Close() { b.closed.Add(1) }

type instantClock struct{}

func (instantClock) Now() time.Time                                   { return time.Unix(0, 0).UTC() }
func (instantClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func seededSource() *memory.Source {
	src := memory.New()
	src.PutLines("slurs.txt", "badword")
	src.PutLines("nsfw-names.txt", "zorblax")
	src.PutLines("nsfw.txt", "evil.example")
	return src
}

func TestNewApp_ServesScrapes(t *testing.T) {
	b := &stubBrowser{}
	a, err := app.NewApp(context.Background(), testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithSource(seededSource()),
		app.WithBrowser(b),
		app.WithClock(instantClock{}),
	)
	require.NoError(t, err)
	assert.True(t, a.Dictionaries().Loaded(), "lists load eagerly")

	srv := httptest.NewServer(a.Server().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/scrape?url=https://site.example/page")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		FlaggedDomain    bool     `json:"flaggedDomain"`
		ContainsCensored bool     `json:"containsCensored"`
		FilteredTexts    []string `json:"filteredTexts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.FlaggedDomain)
	assert.True(t, body.ContainsCensored)
	assert.Equal(t, []string{"hello ***"}, body.FilteredTexts)

	resp2, err := http.Get(srv.URL + "/api/v1/scrape?url=https://evil.example/")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))
	assert.True(t, body.FlaggedDomain)
	assert.Empty(t, body.FilteredTexts)

	a.Close()
	assert.Equal(t, int32(2), b.launches.Load())
	assert.Equal(t, int32(1), b.closed.Load())
}

func TestNewApp_MissingListIsFatal(t *testing.T) {
	src := seededSource()
	src.Delete("nsfw.txt")

	_, err := app.NewApp(context.Background(), testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithSource(src),
		app.WithBrowser(&stubBrowser{}),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scrape.ErrConfiguration))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewApp_LocalSource(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"slurs.txt":      "badword\n",
		"nsfw-names.txt": "zorblax\n",
		"nsfw.txt":       "evil.example\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	cfg := testConfig(t)
	cfg.Lists.BaseDir = dir

	a, err := app.NewApp(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithBrowser(&stubBrowser{}),
	)
	require.NoError(t, err)
	defer a.Close()

	d, err := a.Dictionaries().Load(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Terms.ContainsExact("badword"))
	assert.True(t, d.Domains.Contains("evil.example"))
	assert.Equal(t, dir, a.Config().Lists.BaseDir)
	assert.NotNil(t, a.Engine())
}

func TestNewApp_LocalSourceMissingDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lists.BaseDir = filepath.Join(t.TempDir(), "absent")

	_, err := app.NewApp(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithBrowser(&stubBrowser{}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init local source")
}

func TestNewApp_InlineListSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lists.Source = "memory"
	cfg.Lists.Inline = config.InlineListsConfig{
		Terms:   []string{"badword"},
		Names:   []string{"zorblax"},
		Domains: []string{"*.adult.example"},
	}

	a, err := app.NewApp(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithBrowser(&stubBrowser{}),
		app.WithClock(instantClock{}),
	)
	require.NoError(t, err)
	defer a.Close()

	d, err := a.Dictionaries().Load(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Terms.ContainsExact("badword"))
	assert.True(t, d.Names.HasPrefix("zorb"))
	assert.True(t, d.Domains.Contains("www.adult.example"))

	result, err := a.Engine().Scrape(context.Background(), "https://site.example/")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello ***"}, result.FilteredTexts)
}

func TestNewApp_ServerMintsRequestIDs(t *testing.T) {
	a, err := app.NewApp(context.Background(), testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithSource(seededSource()),
		app.WithBrowser(&stubBrowser{}),
	)
	require.NoError(t, err)
	defer a.Close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-ID")
	assert.NotEqual(t, "not-a-uuid", id)
	assert.Len(t, id, 36)
}
