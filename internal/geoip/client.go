// Package geoip enriches engagement events with coarse location data.
// Lookups are best-effort: a failed or slow upstream degrades to an empty
// location, never to a failed event write.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/phishsentinel/phishsentinel-api/pkg/circuitbreaker"
)

// Location is the subset of the upstream response stored on events.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state_prov"`
	Country string `json:"country_name"`
	Lat     string `json:"latitude"`
	Long    string `json:"longitude"`
}

// Coordinates renders the lat,long pair stored in the location column.
func (l *Location) Coordinates() string {
	if l.Lat == "" && l.Long == "" {
		return ""
	}
	return fmt.Sprintf("%s,%s", l.Lat, l.Long)
}

type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client caches per-IP lookups; repeated opens from one address resolve
// without another upstream round trip.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.Cache
	cb      *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		cache:   cache.New(ttl, 2*ttl),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "geoip",
			MaxFailures: 5,
			Timeout:     time.Minute,
		}),
	}
}

// Lookup resolves an IP to a location. Errors are returned so the caller
// can count failures, but callers treat them as a soft miss.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	if ip == "" {
		return nil, fmt.Errorf("empty ip")
	}
	if cached, ok := c.cache.Get(ip); ok {
		return cached.(*Location), nil
	}

	var loc Location
	err := c.cb.Execute(func() error {
		endpoint := fmt.Sprintf("%s?apiKey=%s&ip=%s", c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(ip))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("geo lookup failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("geo lookup returned %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
			return fmt.Errorf("failed to decode geo response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.cache.Set(ip, &loc, cache.DefaultExpiration)
	return &loc, nil
}
