package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

const (
	DefaultBaseURL = "https://serpapi.com/search"

	// Positions longer than this are most likely a sentence, not a job title
	maxPositionLength = 50
)

// Profile is a LinkedIn profile candidate returned by a search
type Profile struct {
	Name     string `json:"name"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position string `json:"position"`
}

// Cache stores search results between calls
type Cache interface {
	GetSearch(query string, ttl time.Duration) ([]storage.Profile, bool, error)
	PutSearch(query string, profiles []storage.Profile) error
}

// Client finds LinkedIn profiles through SerpAPI's Google engine
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	cacheTTL   time.Duration
	cache      Cache
	httpClient *http.Client
}

// NewClient creates a search client whose requests are bounded by timeout
// (30s when zero). cache may be nil.
func NewClient(cfg config.SearchConfig, timeout time.Duration, cache Cache) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		cacheTTL:   time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		cache:      cache,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// BuildQuery returns the Google query used to find name at company
func BuildQuery(name, company string) string {
	return "\"" + name + "\" " + company + " site:linkedin.com/in/"
}

// Search returns the profiles Google knows for name at company, in result order
func (c *Client) Search(ctx context.Context, name, company string) ([]Profile, error) {
	query := BuildQuery(name, company)

	if cached, ok := c.fromCache(query); ok {
		logger.Debug("Search cache hit", "query", query, "profiles", len(cached))
		return cached, nil
	}

	profiles, err := c.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	logger.Info("Search completed", "query", query, "profiles", len(profiles))

	c.toCache(query, profiles)
	return profiles, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]Profile, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(c.maxResults))
	params.Set("filter", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the request URL, which includes the API key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if sr.Error != "" && len(sr.OrganicResults) == 0 && !strings.Contains(sr.Error, "hasn't returned any results") {
		return nil, fmt.Errorf("search failed: %s", sr.Error)
	}

	profiles := []Profile{}
	for _, r := range sr.OrganicResults {
		if !strings.Contains(r.Link, "/in/") {
			continue
		}
		profiles = append(profiles, Profile{
			Name:     cleanTitle(r.Title),
			Link:     r.Link,
			Snippet:  r.Snippet,
			Position: ExtractPosition(r.Snippet),
		})
	}

	return deduplicateProfiles(profiles), nil
}

func (c *Client) fromCache(query string) ([]Profile, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}

	cached, ok, err := c.cache.GetSearch(query, c.cacheTTL)
	if err != nil {
		logger.Warn("Search cache read failed", "query", query, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	profiles := make([]Profile, 0, len(cached))
	for _, p := range cached {
		profiles = append(profiles, Profile{Name: p.Name, Link: p.ProfileURL, Snippet: p.Snippet, Position: p.Position})
	}
	return profiles, true
}

func (c *Client) toCache(query string, profiles []Profile) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}

	rows := make([]storage.Profile, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, storage.Profile{ProfileURL: p.Link, Name: p.Name, Snippet: p.Snippet, Position: p.Position})
	}
	if err := c.cache.PutSearch(query, rows); err != nil {
		logger.Warn("Search cache write failed", "query", query, "error", err)
	}
}

// cleanTitle strips the site suffix Google appends to profile titles
func cleanTitle(title string) string {
	return strings.TrimSpace(strings.ReplaceAll(title, " | LinkedIn", ""))
}

// ExtractPosition guesses a job title from a result snippet such as
// "Staff Engineer at Acme · Experience: ...". It returns "" when unsure.
func ExtractPosition(snippet string) string {
	lower := strings.ToLower(snippet)
	i := strings.Index(lower, " at ")
	if i < 0 {
		return ""
	}

	pos := strings.TrimSpace(lower[:i])
	if len([]rune(pos)) >= maxPositionLength {
		return ""
	}
	return capitalize(pos)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// deduplicateProfiles removes duplicate profiles based on URL
func deduplicateProfiles(profiles []Profile) []Profile {
	seen := make(map[string]bool)
	unique := []Profile{}

	for _, profile := range profiles {
		key := strings.TrimRight(profile.Link, "/")
		if !seen[key] {
			seen[key] = true
			unique = append(unique, profile)
		}
	}

	return unique
}
