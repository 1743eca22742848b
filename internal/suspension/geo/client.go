// Package geo resolves IP addresses to countries through an external HTTP
// lookup. The lookup is strictly best-effort: failures return an empty
// country, and a circuit breaker stops hammering a failing provider.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"warden/pkg/platform/circuit"
)

// Client looks up countries via an ip-api style JSON endpoint:
// GET {base}/{ip} -> {"countryCode": "XX"}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger

	mu        sync.Mutex
	nextProbe time.Time
}

// probeInterval is how long an open breaker waits before letting one call
// through to test the provider.
const probeInterval = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Client) {
		g.logger = l
	}
}

// New builds a geo client with a 3s timeout and a breaker that opens after
// three consecutive failures.
func New(baseURL string, opts ...Option) *Client {
	g := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		breaker:    circuit.New("geo-lookup", circuit.WithFailureThreshold(3)),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type lookupResponse struct {
	CountryCode string `json:"countryCode"`
}

// Country resolves an IP to an ISO country code. An empty code with a nil
// error means "unknown"; callers must treat it as a neutral signal.
func (g *Client) Country(ctx context.Context, ip string) (string, error) {
	if g.breaker.IsOpen() && !g.probeAllowed() {
		return "", nil
	}

	code, err := g.lookup(ctx, ip)
	if err != nil {
		if opened, change := g.breaker.RecordFailure(); opened && change.Opened {
			g.logger.WarnContext(ctx, "geo lookup breaker opened", "error", err)
			g.scheduleProbe()
		} else if opened {
			g.scheduleProbe()
		}
		return "", err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "geo lookup breaker closed")
	}
	return code, nil
}

func (g *Client) lookup(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return "", fmt.Errorf("build geo request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode geo response: %w", err)
	}
	return payload.CountryCode, nil
}

func (g *Client) probeAllowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if time.Now().Before(g.nextProbe) {
		return false
	}
	g.nextProbe = time.Now().Add(probeInterval)
	return true
}

func (g *Client) scheduleProbe() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextProbe = time.Now().Add(probeInterval)
}
