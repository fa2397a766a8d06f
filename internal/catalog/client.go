// Package catalog looks up anime and character metadata from the catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/cache"
	"github.com/ppiankov/animequote/internal/fetch"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
)

var (
	// ErrNotFound is returned when the catalog has no entry for an ID
	ErrNotFound = errors.New("catalog entry not found")

	// ErrEmptyQuery is returned for blank search terms
	ErrEmptyQuery = errors.New("search query is empty")
)

const (
	cacheNamespace = "catalog"
	defaultLimit   = 10
	maxLimit       = 25
)

// Options configures a Client
type Options struct {
	BaseURL  string
	Timeout  time.Duration // Per request, including retries
	CacheTTL time.Duration // 0 uses the cache's default
}

// Client queries the catalog. Successful responses are cached by URL.
type Client struct {
	fetcher  *fetch.Fetcher
	cache    cache.Cache
	baseURL  string
	timeout  time.Duration
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient creates a catalog client. A nil cache disables caching.
func NewClient(fetcher *fetch.Fetcher, c cache.Cache, opts Options, logger *zap.Logger) *Client {
	if c == nil {
		c = cache.Noop{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		fetcher:  fetcher,
		cache:    c,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		timeout:  timeout,
		cacheTTL: opts.CacheTTL,
		logger:   logging.Component(logger, "catalog"),
	}
}

// SearchAnime finds anime whose titles match query
func (c *Client) SearchAnime(ctx context.Context, query string, limit int) ([]model.Anime, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var data []animeData
	if err := c.get(ctx, "/anime", searchParams(query, limit), &data); err != nil {
		return nil, err
	}
	return animeList(data), nil
}

// GetAnime returns one anime by catalog ID
func (c *Client) GetAnime(ctx context.Context, id int) (model.Anime, error) {
	if id <= 0 {
		return model.Anime{}, fmt.Errorf("%w: invalid id %d", ErrNotFound, id)
	}

	var data animeData
	if err := c.get(ctx, "/anime/"+strconv.Itoa(id), nil, &data); err != nil {
		return model.Anime{}, err
	}
	return data.toModel(), nil
}

// SearchCharacters finds characters whose names match query
func (c *Client) SearchCharacters(ctx context.Context, query string, limit int) ([]model.Character, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var data []characterData
	if err := c.get(ctx, "/characters", searchParams(query, limit), &data); err != nil {
		return nil, err
	}

	out := make([]model.Character, 0, len(data))
	for _, d := range data {
		out = append(out, d.toModel())
	}
	return out, nil
}

// TopAnime returns the highest ranked anime
func (c *Client) TopAnime(ctx context.Context, limit int) ([]model.Anime, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var data []animeData
	if err := c.get(ctx, "/top/anime", params, &data); err != nil {
		return nil, err
	}
	return animeList(data), nil
}

// get fetches path and decodes the "data" member of the response into target
func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	key := cache.Key(cacheNamespace, endpoint)

	if body, ok := c.cache.Get(key); ok {
		if err := decodeData(body, target); err == nil {
			c.logger.Debug("catalog cache hit", zap.String("url", endpoint))
			return nil
		}
		_ = c.cache.Delete(key)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.fetcher.GetWithRetry(ctx, endpoint, http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("catalog %s: %w", path, err)
	}

	if err := decodeData(resp.Body, target); err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}

	if err := c.cache.Set(key, resp.Body, c.cacheTTL); err != nil {
		c.logger.Warn("failed to cache catalog response", zap.String("url", endpoint), zap.Error(err))
	}
	return nil
}

func decodeData(body []byte, target any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return errors.New("decode response: missing data")
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func searchParams(query string, limit int) url.Values {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	return params
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

func animeList(data []animeData) []model.Anime {
	out := make([]model.Anime, 0, len(data))
	for _, d := range data {
		out = append(out, d.toModel())
	}
	return out
}
