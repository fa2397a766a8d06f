// Package quotes queries the upstream quote service and normalizes its responses.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/fetch"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
)

var (
	// ErrUpstream marks a lookup that failed for transport, status or JSON reasons.
	// Callers may treat it as "no records".
	ErrUpstream = errors.New("quote service unavailable")

	// ErrUnexpectedFormat marks a well-formed response in a layout no known shape matches
	ErrUnexpectedFormat = errors.New("unexpected API response format")
)

const defaultTimeout = 10 * time.Second

// Options configures a Client
type Options struct {
	BaseURL string
	APIKey  string // Default key; a per-call key takes precedence
	Page    int
	Timeout time.Duration // Per lookup
}

// LookupOptions are per-call parameters
type LookupOptions struct {
	Page   int
	APIKey string
}

// RandomOptions narrows the random quote endpoint
type RandomOptions struct {
	Anime     string
	Character string
	APIKey    string
}

// Client queries the quote service. It never retries: a failed lookup is
// reported once and the caller decides what it means.
type Client struct {
	fetcher *fetch.Fetcher
	chain   *Chain
	baseURL string
	apiKey  string
	page    int
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a quote service client
func NewClient(fetcher *fetch.Fetcher, opts Options, logger *zap.Logger) *Client {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		fetcher: fetcher,
		chain:   DefaultChain(),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		page:    page,
		timeout: timeout,
		logger:  logging.Component(logger, "quotes"),
	}
}

// ByCharacter returns the quotes attributed to a character
func (c *Client) ByCharacter(ctx context.Context, name string, opts LookupOptions) ([]model.QuoteRecord, error) {
	return c.list(ctx, "character", name, opts)
}

// ByAnime returns the quotes from an anime
func (c *Client) ByAnime(ctx context.Context, title string, opts LookupOptions) ([]model.QuoteRecord, error) {
	return c.list(ctx, "anime", title, opts)
}

// Random returns one random quote, optionally narrowed by anime or character
func (c *Client) Random(ctx context.Context, opts RandomOptions) (model.QuoteRecord, error) {
	params := url.Values{}
	if strings.TrimSpace(opts.Anime) != "" {
		params.Set("anime", strings.TrimSpace(opts.Anime))
	}
	if strings.TrimSpace(opts.Character) != "" {
		params.Set("character", strings.TrimSpace(opts.Character))
	}

	records, err := c.get(ctx, "/quotes/random", params, opts.APIKey)
	if err != nil {
		return model.QuoteRecord{}, err
	}
	if len(records) == 0 {
		return model.QuoteRecord{}, fmt.Errorf("%w: no quote returned", ErrUpstream)
	}
	return records[0], nil
}

func (c *Client) list(ctx context.Context, dimension, value string, opts LookupOptions) ([]model.QuoteRecord, error) {
	page := opts.Page
	if page <= 0 {
		page = c.page
	}

	params := url.Values{}
	params.Set(dimension, value)
	params.Set("page", strconv.Itoa(page))

	return c.get(ctx, "/quotes", params, opts.APIKey)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, apiKey string) ([]model.QuoteRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	header := http.Header{}
	if key := firstNonEmpty(apiKey, c.apiKey); key != "" {
		header.Set("x-api-key", key)
	}

	resp, err := c.fetcher.Get(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	records, shape, err := c.chain.Normalize(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("quote lookup",
		zap.String("path", path),
		zap.String(logging.FieldQuery, params.Encode()),
		zap.String("shape", shape),
		zap.Int("records", len(records)))

	return records, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
