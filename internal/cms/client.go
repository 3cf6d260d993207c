// Package cms talks to the content API that stores entries.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/errors"
	"golang.org/x/time/rate"
)

// Client persists and loads entry blocks over HTTP with rate limiting.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// EntryPayload is the body of PUT and GET /entries/{site}/{entry}.
type EntryPayload struct {
	Blocks []blockstore.Block `json:"blocks"`
}

type errorBody struct {
	Error string `json:"error"`
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg config.CMSConfig) *Client {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(limit), burst),
		logger:      slog.Default().With("component", "cms"),
	}
}

func (c *Client) entryURL(site, entry string) string {
	return fmt.Sprintf("%s/entries/%s/%s", c.baseURL, url.PathEscape(site), url.PathEscape(entry))
}

// SaveBlocks replaces the blocks of an entry. Any non-2xx status is an
// external error carrying the response body's error field.
func (c *Client) SaveBlocks(ctx context.Context, site, entry string, blocks []blockstore.Block) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if blocks == nil {
		blocks = []blockstore.Block{}
	}
	body, err := json.Marshal(EntryPayload{Blocks: blocks})
	if err != nil {
		return errors.InternalErrorf("encode blocks: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.entryURL(site, entry), bytes.NewReader(body))
	if err != nil {
		return errors.InternalErrorf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.ExternalErrorf(err, "save entry %s/%s", site, entry)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	c.logger.Debug("entry saved", "site", site, "entry", entry, "blocks", len(blocks))
	return nil
}

// LoadBlocks fetches the blocks of an entry. It satisfies blockstore.Loader.
func (c *Client) LoadBlocks(ctx context.Context, site, entry string) ([]blockstore.Block, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entryURL(site, entry), nil)
	if err != nil {
		return nil, errors.InternalErrorf("build request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "load entry %s/%s", site, entry)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NotFoundf("entry %s/%s not found", site, entry)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var payload EntryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.ParseError(err, "decode entry response")
	}
	return payload.Blocks, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	reason := http.StatusText(resp.StatusCode)
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		reason = eb.Error
	}
	return errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, reason).
		WithContext("status", resp.StatusCode)
}

// ParseEditPath extracts site and entry from an editor path of the form
// /edit/<site>/<entry>. Trailing slashes and query strings are ignored.
func ParseEditPath(path string) (site, entry string, ok bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "edit" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
