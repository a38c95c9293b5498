package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "gateway").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "gateway").Logger()
}

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// Client talks to the wallet/bridge gateway with failover support. It keeps a
// primary endpoint and switches to a backup when the primary stops answering.
type Client struct {
	httpClient    *http.Client
	primaryURL    string
	backupURLs    []string
	currentURL    string
	mu            sync.RWMutex
	healthChecker *healthChecker
	config        Config
	// shared by every watch and wait poll
	pollLimiter *rate.Limiter
}

// Config controls retries, failover and polling.
type Config struct {
	// MaxRetries is the number of times to retry a failed request on the current endpoint
	MaxRetries int
	// RetryDelay is the initial delay between retries (doubles with each retry)
	RetryDelay time.Duration
	// HealthCheckInterval is how often to check if the primary endpoint is back up
	HealthCheckInterval time.Duration
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// PollInterval is the pause between two polls of the same transfer
	PollInterval time.Duration
	// PollRate caps polls per second across all transfers
	PollRate float64
	// MaxPollFailures ends a wait after this many failed polls in a row
	MaxPollFailures int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          2,
		RetryDelay:          500 * time.Millisecond,
		HealthCheckInterval: 30 * time.Second,
		Timeout:             10 * time.Second,
		PollInterval:        5 * time.Second,
		PollRate:            10,
		MaxPollFailures:     10,
	}
}

// healthChecker periodically checks if the primary endpoint is healthy
type healthChecker struct {
	client    *Client
	stopCh    chan struct{}
	stoppedCh chan struct{}
	isRunning bool
	mu        sync.Mutex
}

// NewClient creates a client with failover support.
func NewClient(primaryURL string, backupURLs []string, config Config) (*Client, error) {
	if _, err := url.ParseRequestURI(primaryURL); err != nil {
		return nil, fmt.Errorf("invalid gateway url %q: %w", primaryURL, err)
	}

	validBackups := make([]string, 0, len(backupURLs))
	for _, u := range backupURLs {
		if _, err := url.ParseRequestURI(u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Invalid backup URL, skipping")
			continue
		}
		validBackups = append(validBackups, u)
	}

	burst := int(config.PollRate)
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if config.PollRate > 0 {
		limit = rate.Limit(config.PollRate)
	}

	client := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		primaryURL:  primaryURL,
		backupURLs:  validBackups,
		currentURL:  primaryURL,
		config:      config,
		pollLimiter: rate.NewLimiter(limit, burst),
	}

	if len(validBackups) > 0 && config.HealthCheckInterval > 0 {
		client.startHealthChecker()
	}

	log.Info().
		Str("primary", primaryURL).
		Int("backups", len(validBackups)).
		Msg("Gateway client initialized")
	return client, nil
}

func (c *Client) startHealthChecker() {
	c.healthChecker = &healthChecker{
		client:    c,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	c.healthChecker.start()
}

func (h *healthChecker) start() {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	go func() {
		defer close(h.stoppedCh)
		ticker := time.NewTicker(h.client.config.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.checkAndRestore()
			}
		}
	}()
}

func (h *healthChecker) stop() {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = false
	h.mu.Unlock()

	close(h.stopCh)
	<-h.stoppedCh
}

// checkAndRestore moves back to the primary once it answers again
func (h *healthChecker) checkAndRestore() {
	h.client.mu.RLock()
	currentURL := h.client.currentURL
	primaryURL := h.client.primaryURL
	h.client.mu.RUnlock()

	if currentURL == primaryURL {
		return
	}

	if h.client.isEndpointHealthy(context.Background(), primaryURL) {
		h.client.mu.Lock()
		h.client.currentURL = primaryURL
		h.client.mu.Unlock()
		log.Info().Str("url", primaryURL).Msg("Restored primary endpoint")
	}
}

func (c *Client) isEndpointHealthy(ctx context.Context, endpoint string) bool {
	healthURL := endpoint + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", healthURL).Msg("Health check failed")
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	log.Debug().Str("url", healthURL).Int("status", resp.StatusCode).Msg("Health check response")
	return resp.StatusCode == http.StatusOK
}

// CurrentURL returns the active endpoint.
func (c *Client) CurrentURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentURL
}

// failoverCandidates lists every endpoint except from, in rotation order
// starting after it.
func (c *Client) failoverCandidates(from string) []string {
	all := append([]string{c.primaryURL}, c.backupURLs...)
	start := 0
	for i, u := range all {
		if u == from {
			start = i + 1
			break
		}
	}
	out := make([]string, 0, len(all))
	for i := 0; i < len(all); i++ {
		if u := all[(start+i)%len(all)]; u != from {
			out = append(out, u)
		}
	}
	return out
}

// failover switches to the next healthy endpoint. Endpoints are checked without
// holding the lock; a switch made meanwhile by another caller wins.
func (c *Client) failover(ctx context.Context) bool {
	from := c.CurrentURL()

	for _, next := range c.failoverCandidates(from) {
		if !c.isEndpointHealthy(ctx, next) {
			continue
		}
		c.mu.Lock()
		if c.currentURL == from {
			c.currentURL = next
		}
		current := c.currentURL
		c.mu.Unlock()
		log.Info().Str("url", current).Msg("Failover to endpoint")
		return true
	}

	log.Warn().Str("url", from).Msg("All endpoints unhealthy, staying on current")
	return false
}

// Close stops the health checker.
func (c *Client) Close() {
	if c.healthChecker != nil {
		c.healthChecker.stop()
	}
}

// statusError is a non 2xx answer. 4xx answers are not retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

func (e *statusError) Unwrap() error {
	if e.code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.CurrentURL()+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: string(data)}
	}
	return data, nil
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// doRequestWithFailover performs a request with retry and failover logic.
// Only idempotent requests go through here.
func (c *Client) doRequestWithFailover(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	retryDelay := c.config.RetryDelay

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		data, err := c.do(ctx, method, path, body)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	if len(c.backupURLs) > 0 && c.failover(ctx) {
		data, err := c.do(ctx, method, path, body)
		if err != nil {
			return nil, fmt.Errorf("failover request failed: %w (original: %w)", err, lastErr)
		}
		return data, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.MaxRetries+1, lastErr)
}
