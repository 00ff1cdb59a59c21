// Package fetch implements the polite HTTP client used by the crawl run.
// One Client is built per run; it caches results per URL, serializes requests
// per hostname, and waits a jittered delay before every network call.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cortez.fish/bite-pipeline/internal/globaltime"
)

const (
	defaultMinDelay = 500 * time.Millisecond
	defaultMaxDelay = time.Second
	defaultTimeout  = 15 * time.Second

	maxBodyBytes = 4 * 1024 * 1024
)

// Result is the outcome of a single GET. A non-2xx response keeps the body
// and carries an "HTTP <status>" error string; transport failures have
// Status 0.
type Result struct {
	OK        bool
	Status    int
	Body      string
	FetchedAt time.Time
	Err       string
}

// Options tunes a Client. Zero values fall back to the documented defaults;
// tests override Sleep to skip the politeness delay.
type Options struct {
	UserAgent string
	MinDelay  time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration
	Primary   *http.Client
	Fallback  *http.Client
	Sleep     func(ctx context.Context, d time.Duration) error
}

type pending struct {
	done   chan struct{}
	result Result
}

type Client struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	cache   map[string]*pending
	domains map[string]chan struct{}
}

func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.MinDelay <= 0 && opts.MaxDelay <= 0 {
		opts.MinDelay = defaultMinDelay
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Primary == nil {
		opts.Primary = &http.Client{}
	}
	if opts.Fallback == nil {
		opts.Fallback = fallbackClient()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	return &Client{
		opts:    opts,
		logger:  logger,
		cache:   make(map[string]*pending),
		domains: make(map[string]chan struct{}),
	}
}

// fallbackClient is the secondary transport tried once after a primary
// transport error: fresh connections, no HTTP/2.
func fallbackClient() *http.Client {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		DisableKeepAlives: true,
	}
	return &http.Client{Transport: transport}
}

// Get fetches a URL. Identical URLs within a run share one network call:
// concurrent callers for the same URL block on the same pending result.
// Requests to one hostname run strictly one at a time in submission order;
// different hostnames proceed concurrently.
func (c *Client) Get(ctx context.Context, rawURL string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return Result{
			FetchedAt: globaltime.UTC(),
			Err:       fmt.Sprintf("invalid URL %q", rawURL),
		}
	}

	c.mu.Lock()
	if p, ok := c.cache[rawURL]; ok {
		c.mu.Unlock()
		return c.await(ctx, p)
	}

	p := &pending{done: make(chan struct{})}
	c.cache[rawURL] = p

	domain := strings.ToLower(parsed.Hostname())
	prev := c.domains[domain]
	turn := make(chan struct{})
	c.domains[domain] = turn
	c.mu.Unlock()

	go func() {
		defer close(turn)
		defer close(p.done)

		// Chain after the previous request for this domain, whether or not
		// that request succeeded.
		if prev != nil {
			<-prev
		}

		if err := c.opts.Sleep(ctx, c.jitterDelay()); err != nil {
			p.result = Result{
				FetchedAt: globaltime.UTC(),
				Err:       fmt.Sprintf("request canceled before dispatch: %v", err),
			}
			return
		}

		p.result = c.fetch(ctx, rawURL)
	}()

	return c.await(ctx, p)
}

func (c *Client) await(ctx context.Context, p *pending) Result {
	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		return Result{
			FetchedAt: globaltime.UTC(),
			Err:       fmt.Sprintf("request canceled: %v", ctx.Err()),
		}
	}
}

func (c *Client) jitterDelay() time.Duration {
	if c.opts.MaxDelay <= c.opts.MinDelay {
		return c.opts.MinDelay
	}
	span := int64(c.opts.MaxDelay - c.opts.MinDelay)
	return c.opts.MinDelay + time.Duration(rand.Int64N(span+1))
}

func (c *Client) fetch(ctx context.Context, rawURL string) Result {
	fetchedAt := globaltime.UTC()

	status, body, err := c.attempt(ctx, c.opts.Primary, rawURL)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("primary transport failed, trying fallback")
		status, body, err = c.attempt(ctx, c.opts.Fallback, rawURL)
	}
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("request timed out after %s", c.opts.Timeout)
		}
		return Result{
			FetchedAt: fetchedAt,
			Err:       msg,
		}
	}

	result := Result{
		OK:        status >= 200 && status < 300,
		Status:    status,
		Body:      body,
		FetchedAt: fetchedAt,
	}
	if !result.OK {
		result.Err = fmt.Sprintf("HTTP %d", status)
	}
	return result
}

// attempt performs one GET with the per-request timeout. The context is
// canceled on return, which aborts a still in-flight transport attempt.
func (c *Client) attempt(ctx context.Context, client *http.Client, rawURL string) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, "", fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, string(body), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
