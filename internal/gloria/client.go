package gloria

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

// Sentinel errors for upstream failure modes. A StatusError carries the
// HTTP status for non-2xx responses that survive the retry policy.
var (
	ErrUnavailable = errors.New("upstream unavailable")
	ErrTimeout     = errors.New("upstream timeout")
)

// StatusError is returned when the upstream rejects a request (4xx, or 5xx
// after retries are exhausted).
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Config holds the client settings.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
}

// Client is a stateless, retrying HTTP client for the ai-hub API.
// Transient failures (network errors, timeouts, 5xx, 429) are retried with
// exponential backoff up to MaxRetries; other 4xx are never retried.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	logger     *common.Logger
	categories *respCache

	// retryInterval seeds the backoff; tests shrink it.
	retryInterval time.Duration
}

// New creates a client targeting the given ai-hub base URL.
func New(cfg Config, logger *common.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		token:         cfg.Token,
		httpClient:    &http.Client{Timeout: timeout},
		maxRetries:    maxRetries,
		logger:        logger,
		categories:    newRespCache(cacheTTL, 16),
		retryInterval: 500 * time.Millisecond,
	}
}

// LatestNews returns the latest news items, optionally filtered by category.
func (c *Client) LatestNews(ctx context.Context, category string, limit int) ([]NewsItem, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", "1")
	if category != "" {
		params.Set("feed_categories", category)
	}

	body, err := c.get(ctx, "/news", params)
	if err != nil {
		return nil, err
	}

	var items []NewsItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}
	return items, nil
}

// Search returns news items matching a keyword.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]NewsItem, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("keyword", query)

	body, err := c.get(ctx, "/news", params)
	if err != nil {
		return nil, err
	}

	var items []NewsItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return items, nil
}

// NewsItem fetches a single news item by ID.
func (c *Client) NewsItem(ctx context.Context, id string) (NewsItem, error) {
	body, err := c.get(ctx, "/news/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var item NewsItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to parse news item response: %w", err)
	}
	return item, nil
}

// Recap fetches the AI-generated recap for a category and timeframe.
func (c *Client) Recap(ctx context.Context, category, timeframe string) (*Recap, error) {
	params := url.Values{}
	params.Set("feed_category", category)
	params.Set("timeframe", timeframe)

	body, err := c.get(ctx, "/recaps", params)
	if err != nil {
		return nil, err
	}

	var recap Recap
	if err := json.Unmarshal(body, &recap); err != nil {
		return nil, fmt.Errorf("failed to parse recap response: %w", err)
	}
	return &recap, nil
}

// Categories lists the available feed categories. Responses are cached;
// the category list changes rarely and is queried on every discovery call.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	const path = "/available-feed-categories"

	if body, ok := c.categories.get(path); ok {
		var cats []Category
		if err := json.Unmarshal(body, &cats); err == nil {
			return cats, nil
		}
	}

	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var cats []Category
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, fmt.Errorf("failed to parse categories response: %w", err)
	}
	c.categories.set(path, body)
	return cats, nil
}

// EnrichedNews fetches a news item with the full paid context fields.
func (c *Client) EnrichedNews(ctx context.Context, id string) (NewsItem, error) {
	params := url.Values{}
	params.Set("include_context", "true")

	body, err := c.get(ctx, "/news/"+url.PathEscape(id), params)
	if err != nil {
		return nil, err
	}

	var item NewsItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to parse enriched news response: %w", err)
	}
	return item, nil
}

// TickerSummary fetches the 24-hour AI summary for a ticker or topic.
func (c *Client) TickerSummary(ctx context.Context, ticker string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("ticker", ticker)

	body, err := c.get(ctx, "/news-ticker-summary", params)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// get performs an authenticated GET with retry on transient failures.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	c.logger.Debug().
		Str("method", "GET").
		Str("path", path).
		Msg("Upstream Request")

	operation := func() ([]byte, error) {
		return c.doOnce(ctx, fullURL, path)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	body, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Upstream Request Failed")
		return nil, err
	}
	return body, nil
}

// doOnce issues one HTTP request and classifies the outcome for retry:
// network errors, timeouts, 429 and 5xx are retryable; other 4xx are permanent.
func (c *Client) doOnce(ctx context.Context, fullURL, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	c.logger.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", duration).
		Str("path", path).
		Msg("Upstream Response")

	switch {
	case resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	default:
		return nil, backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: string(body)})
	}
}
