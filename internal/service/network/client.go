// Package network resolves profile network ids against a remote network
// registry.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

const (
	defaultTTL   = 5 * time.Minute
	userAgent    = "wallet-profiles"
	acceptHeader = "application/json"
	networksPath = "/networks"
)

// ErrUpstream wraps every registry failure. It also matches
// profilesvc.ErrNetworksUnavailable.
var ErrUpstream = fmt.Errorf("network registry error: %w", profilesvc.ErrNetworksUnavailable)

// Network is one entry of the registry.
type Network struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsTestnet bool   `json:"isTestnet"`
}

// Client fetches the network list from the registry and caches it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	networks  map[string]Network
	fetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the Bearer token for registry requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTTL sets how long a fetched list is trusted.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// NewClient creates a registry client for baseURL.
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		ttl:        defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve implements profilesvc.NetworkResolver. Only string ids can be
// looked up in the registry.
func (c *Client) Resolve(ctx context.Context, networkID any) error {
	id, ok := schema.Native(networkID).(string)
	if !ok {
		return fmt.Errorf("%w: %v", profilesvc.ErrUnknownNetwork, schema.Native(networkID))
	}
	networks, err := c.Networks(ctx)
	if err != nil {
		return err
	}
	if _, ok := networks[id]; !ok {
		return fmt.Errorf("%w: %s", profilesvc.ErrUnknownNetwork, id)
	}
	return nil
}

// Networks returns the cached registry, refreshing it once the TTL passed.
// A stale list is served when the refresh fails.
func (c *Client) Networks(ctx context.Context) (map[string]Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.networks != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.networks, nil
	}

	fetched, err := c.fetch(ctx)
	if err != nil {
		if c.networks != nil {
			applog.LogWarn(ctx, "network registry refresh failed, serving stale list",
				zap.Error(err),
				zap.Time("fetchedAt", c.fetchedAt),
			)
			return c.networks, nil
		}
		return nil, err
	}

	c.networks = make(map[string]Network, len(fetched))
	for _, n := range fetched {
		c.networks[n.ID] = n
	}
	c.fetchedAt = c.now()
	return c.networks, nil
}

func (c *Client) fetch(ctx context.Context) ([]Network, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+networksPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		applog.LogWarn(ctx, "network registry request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("Retry-After", strings.TrimSpace(resp.Header.Get("Retry-After"))),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var networks []Network
	if err := json.NewDecoder(resp.Body).Decode(&networks); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrUpstream, err)
	}
	return networks, nil
}

// Compile-time interface check
var _ profilesvc.NetworkResolver = (*Client)(nil)
