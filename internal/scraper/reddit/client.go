// Package reddit fetches hot submissions and comment trees from the public
// Reddit JSON API.
package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/resilience"
)

// maxPageSize is the largest listing page the API returns.
const maxPageSize = 100

// ResponseCache is satisfied by cache.ResponseCache.
type ResponseCache interface {
	GetOrFetch(ctx context.Context, request string, fetch func() ([]byte, error)) ([]byte, bool, error)
}

// RateLimiter is satisfied by *rate.Limiter.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// PerMinute allows perMinute requests per minute with bursts of up to
// perMinute. It returns nil when perMinute is not positive.
func PerMinute(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
}

type Client struct {
	http    *resty.Client
	timeout time.Duration
	cache   ResponseCache
	limiter RateLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

func WithCache(c ResponseCache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithRateLimiter paces requests that miss the cache.
func WithRateLimiter(l RateLimiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func NewClient(cfg config.ScraperConfig, opts ...Option) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeader("Accept", "application/json")

	c := &Client{
		http:    client,
		timeout: cfg.RequestTimeout,
		logger:  logger.WithComponent("reddit-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HotSubmissions returns up to limit submissions from the forum's hot
// listing, following the "after" cursor across pages.
func (c *Client) HotSubmissions(ctx context.Context, forumName string, limit int) ([]forum.Submission, error) {
	subs := make([]forum.Submission, 0, limit)
	after := ""
	for len(subs) < limit {
		page := min(limit-len(subs), maxPageSize)
		q := url.Values{}
		q.Set("limit", strconv.Itoa(page))
		q.Set("raw_json", "1")
		if after != "" {
			q.Set("after", after)
		}
		body, err := c.get(ctx, "hot", "/r/"+url.PathEscape(forumName)+"/hot.json", q)
		if err != nil {
			return nil, err
		}
		batch, next, err := decodeSubmissions(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedRecord, err, "hot listing")
		}
		subs = append(subs, batch...)
		if next == "" || len(batch) == 0 {
			break
		}
		after = next
	}
	if len(subs) > limit {
		subs = subs[:limit]
	}
	logger.FromContext(ctx, c.logger).Debug("hot submissions fetched", "forum", forumName, "count", len(subs))
	return subs, nil
}

// CommentTree returns the top-level comments of a submission with their
// replies attached. Deleted comments are kept as nodes with an empty author.
func (c *Client) CommentTree(ctx context.Context, submissionID string, limit int) ([]*forum.CommentNode, error) {
	q := url.Values{}
	q.Set("raw_json", "1")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "comments", "/comments/"+url.PathEscape(submissionID)+".json", q)
	if err != nil {
		return nil, err
	}
	roots, err := decodeCommentTree(body, submissionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedRecord, err, "comments of "+submissionID)
	}
	return roots, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	request := path + "?" + q.Encode()
	fetch := func() ([]byte, error) {
		return c.fetch(ctx, endpoint, path, q)
	}
	if c.cache == nil {
		return fetch()
	}
	body, _, err := c.cache.GetOrFetch(ctx, request, fetch)
	return body, err
}

// fetch performs one request and classifies failures: network errors, 429
// and 5xx are transient, any other non-2xx status is fatal.
func (c *Client) fetch(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}
	var body []byte
	err := resilience.WithTimeout(ctx, c.timeout, "GET "+path, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(q).
			Get(path)
		if err != nil {
			c.observe(endpoint, "transient")
			return apperrors.Transient(err, "GET "+path)
		}
		status := resp.StatusCode()
		switch {
		case status == http.StatusTooManyRequests || status >= 500:
			c.observe(endpoint, "transient")
			return apperrors.Transient(fmt.Errorf("status %d", status), "GET "+path)
		case status == http.StatusNotFound:
			c.observe(endpoint, "fatal")
			return apperrors.Newf(apperrors.ErrNotFound, "GET %s: status 404", path)
		case status < 200 || status >= 300:
			c.observe(endpoint, "fatal")
			return fmt.Errorf("GET %s: unexpected status %d", path, status)
		}
		c.observe(endpoint, "ok")
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) observe(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.FetchRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}
}
