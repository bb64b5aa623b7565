// Package pcs fetches and extracts pages from ProCyclingStats.
package pcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public ProCyclingStats site.
const DefaultBaseURL = "https://www.procyclingstats.com"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrNotFound is returned by Get for any non-200 page.
var ErrNotFound = errors.New("pcs: page unavailable")

// Options configures a Client.
type Options struct {
	BaseURL string
	// Cookie is a raw "a=b; c=d" header. CookiesJSON, a JSON object, wins when set.
	Cookie      string
	CookiesJSON string
	// Bypass wraps the transport with the Cloudflare challenge bypass.
	Bypass  bool
	Timeout time.Duration
	// Retries bounds retries on 429, 5xx and transport errors.
	Retries   int
	RetryWait time.Duration
	Log       *zap.Logger
}

// Client fetches ProCyclingStats pages.
type Client struct {
	baseURL   string
	http      *resty.Client
	retries   int
	retryWait time.Duration
	log       *zap.Logger
}

// NewClient builds a Client with browser-like headers and optional cookies.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	cookies, err := parseCookies(opts.CookiesJSON, opts.Cookie)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(base)
	client.SetTimeout(opts.Timeout)
	if opts.Bypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeaders(map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	})
	client.SetCookies(cookies)

	return &Client{
		baseURL:   base,
		http:      client,
		retries:   opts.Retries,
		retryWait: opts.RetryWait,
		log:       log.With(zap.String("component", "pcs")),
	}, nil
}

// BaseURL returns the site root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Absolute resolves a site-relative path against the base URL.
func (c *Client) Absolute(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Fetch returns the status and body of a page. Relative paths are joined to
// the base URL. Rate limiting, server errors and transport failures are
// retried; the last status is returned once retries run out.
func (c *Client) Fetch(ctx context.Context, pathOrURL string) (int, string, error) {
	target := c.Absolute(pathOrURL)
	var (
		status int
		body   string
	)

	operation := func() error {
		status, body = 0, ""
		resp, err := c.http.R().SetContext(ctx).Get(target)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.log.Debug("fetch failed, retrying", zap.String("url", target), zap.Error(err))
			return fmt.Errorf("fetch %s: %w", target, err)
		}
		status, body = resp.StatusCode(), resp.String()
		if status == http.StatusTooManyRequests || status >= 500 {
			c.log.Warn("retryable status", zap.String("url", target), zap.Int("status", status))
			return fmt.Errorf("fetch %s: status %d", target, status)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxInterval = 30 * c.retryWait
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if status != 0 {
			// Retries exhausted on a status: report it, callers treat non-200 as unavailable.
			return status, body, nil
		}
		return 0, "", err
	}
	c.log.Debug("fetched", zap.String("url", target), zap.Int("status", status), zap.Int("bytes", len(body)))
	return status, body, nil
}

// Get returns the body of a page, or an error wrapping ErrNotFound when the
// page does not answer 200.
func (c *Client) Get(ctx context.Context, pathOrURL string) (string, error) {
	status, body, err := c.Fetch(ctx, pathOrURL)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: %s status %d", ErrNotFound, pathOrURL, status)
	}
	return body, nil
}

func parseCookies(jsonCookies, header string) ([]*http.Cookie, error) {
	if strings.TrimSpace(jsonCookies) != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(jsonCookies), &raw); err != nil {
			return nil, fmt.Errorf("pcs: PCS_COOKIES_JSON: %w", err)
		}
		out := make([]*http.Cookie, 0, len(raw))
		for k, v := range raw {
			out = append(out, &http.Cookie{Name: k, Value: fmt.Sprint(v)})
		}
		return out, nil
	}

	var out []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
	}
	return out, nil
}
