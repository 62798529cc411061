package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

const serpBody = `{
  "organic_results": [
    {"title": "Alice Smith - Staff Engineer - Acme | LinkedIn", "link": "https://www.linkedin.com/in/alice", "snippet": "Staff Engineer at Acme · Experience: Acme"},
    {"title": "Acme | LinkedIn", "link": "https://www.linkedin.com/company/acme", "snippet": "Acme is a company"},
    {"title": "Alice Smith | LinkedIn", "link": "https://uk.linkedin.com/in/alice-smith-2", "snippet": "Alice Smith has worked for many years as a principal consultant on cloud migration projects at Acme"},
    {"title": "Alice Smith | LinkedIn", "link": "https://www.linkedin.com/in/alice/", "snippet": "duplicate"}
  ]
}`

func serpServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		q := r.URL.Query()
		assert.Equal(t, `"Alice Smith" Acme site:linkedin.com/in/`, q.Get("q"))
		assert.Equal(t, "serp-test", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "3", q.Get("num"))
		assert.Equal(t, "0", q.Get("filter"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string, ttlMinutes int) config.SearchConfig {
	return config.SearchConfig{
		APIKey:          "serp-test",
		BaseURL:         baseURL,
		MaxResults:      3,
		TimeoutSeconds:  5,
		CacheTTLMinutes: ttlMinutes,
	}
}

func TestSearch(t *testing.T) {
	srv := serpServer(t, http.StatusOK, serpBody, nil)

	profiles, err := NewClient(testConfig(srv.URL, 0), 5*time.Second, nil).Search(context.Background(), "Alice Smith", "Acme")
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, Profile{
		Name:     "Alice Smith - Staff Engineer - Acme",
		Link:     "https://www.linkedin.com/in/alice",
		Snippet:  "Staff Engineer at Acme · Experience: Acme",
		Position: "Staff engineer",
	}, profiles[0])

	assert.Equal(t, "https://uk.linkedin.com/in/alice-smith-2", profiles[1].Link)
	assert.Empty(t, profiles[1].Position)
}

func TestSearchNoResults(t *testing.T) {
	srv := serpServer(t, http.StatusOK, `{"error": "Google hasn't returned any results for this query."}`, nil)

	profiles, err := NewClient(testConfig(srv.URL, 0), 5*time.Second, nil).Search(context.Background(), "Alice Smith", "Acme")
	require.NoError(t, err)
	assert.NotNil(t, profiles)
	assert.Empty(t, profiles)
}

func TestSearchErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := serpServer(t, http.StatusUnauthorized, `{"error":"Invalid API key."}`, nil)
		_, err := NewClient(testConfig(srv.URL, 0), 5*time.Second, nil).Search(context.Background(), "Alice Smith", "Acme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("api error", func(t *testing.T) {
		srv := serpServer(t, http.StatusOK, `{"error":"Your account has run out of searches."}`, nil)
		_, err := NewClient(testConfig(srv.URL, 0), 5*time.Second, nil).Search(context.Background(), "Alice Smith", "Acme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run out of searches")
	})

	t.Run("unreachable does not leak key", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		_, err := NewClient(testConfig(srv.URL, 0), 5*time.Second, nil).Search(context.Background(), "Alice Smith", "Acme")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "serp-test")
	})
}

func TestSearchUsesCache(t *testing.T) {
	var hits int32
	srv := serpServer(t, http.StatusOK, serpBody, &hits)

	store, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	client := NewClient(testConfig(srv.URL, 60), 5*time.Second, store)

	first, err := client.Search(context.Background(), "Alice Smith", "Acme")
	require.NoError(t, err)
	second, err := client.Search(context.Background(), "Alice Smith", "Acme")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSearchCacheDisabled(t *testing.T) {
	var hits int32
	srv := serpServer(t, http.StatusOK, serpBody, &hits)

	store, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	client := NewClient(testConfig(srv.URL, 0), 5*time.Second, store)
	for i := 0; i < 2; i++ {
		_, err := client.Search(context.Background(), "Alice Smith", "Acme")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestExtractPosition(t *testing.T) {
	tests := []struct {
		snippet string
		want    string
	}{
		{"Senior Software Engineer at Google", "Senior software engineer"},
		{"Founder AT Startup", "Founder"},
		{"No separator here", ""},
		{"", ""},
		{"A very long description of someone's career that goes on and on at Acme", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractPosition(tt.snippet), tt.snippet)
	}
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, `"Bob Jones" Initech site:linkedin.com/in/`, BuildQuery("Bob Jones", "Initech"))
	assert.Equal(t, `"Shaun O"Brien" Initech site:linkedin.com/in/`, BuildQuery(`Shaun O"Brien`, "Initech"))
	assert.Equal(t, `"Zoë Łukasz" Café site:linkedin.com/in/`, BuildQuery("Zoë Łukasz", "Café"))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(config.SearchConfig{APIKey: "k"}, 0, nil)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, 3, c.maxResults)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestNewClientUsesConfiguredTimeout(t *testing.T) {
	cfg := &config.Config{Search: config.SearchConfig{APIKey: "k", TimeoutSeconds: 7}}
	c := NewClient(cfg.Search, cfg.SearchTimeout(), nil)
	assert.Equal(t, 7*time.Second, c.httpClient.Timeout)
}
