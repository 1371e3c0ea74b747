// Package gophish is a thin HTTP client for the external campaign-builder
// API. Provisioning failures surface to the caller but local dispatch
// never depends on the builder being reachable.
package gophish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phishsentinel/phishsentinel-api/pkg/circuitbreaker"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "gophish",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

// Template is the builder's message template resource.
type Template struct {
	ID             int    `json:"id,omitempty"`
	Name           string `json:"name"`
	Subject        string `json:"subject"`
	Text           string `json:"text"`
	HTML           string `json:"html"`
	EnvelopeSender string `json:"envelope_sender"`
}

// SMTP is the builder's sending profile resource.
type SMTP struct {
	ID               int    `json:"id,omitempty"`
	Name             string `json:"name"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	Host             string `json:"host"`
	InterfaceType    string `json:"interface_type"`
	FromAddress      string `json:"from_address"`
	IgnoreCertErrors bool   `json:"ignore_cert_errors"`
}

// Target is one group member.
type Target struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Group is the builder's recipient group resource.
type Group struct {
	ID      int      `json:"id,omitempty"`
	Name    string   `json:"name"`
	Targets []Target `json:"targets"`
}

// Campaign is the builder's campaign resource.
type Campaign struct {
	ID         int       `json:"id,omitempty"`
	Name       string    `json:"name"`
	LaunchDate time.Time `json:"launch_date"`
	Template   *Template `json:"template,omitempty"`
	SMTP       *SMTP     `json:"smtp,omitempty"`
	URL        string    `json:"url,omitempty"`
	Groups     []Group   `json:"groups,omitempty"`
}

func (c *Client) CreateTemplate(ctx context.Context, t *Template) (*Template, error) {
	var out Template
	if err := c.do(ctx, http.MethodPost, "/api/templates/", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/templates/%d", id), nil, nil)
}

func (c *Client) CreateSMTP(ctx context.Context, s *SMTP) (*SMTP, error) {
	var out SMTP
	if err := c.do(ctx, http.MethodPost, "/api/smtp/", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSMTP(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/smtp/%d", id), nil, nil)
}

func (c *Client) CreateGroup(ctx context.Context, g *Group) (*Group, error) {
	var out Group
	if err := c.do(ctx, http.MethodPost, "/api/groups/", g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/groups/%d", id), nil, nil)
}

func (c *Client) CreateCampaign(ctx context.Context, camp *Campaign) (*Campaign, error) {
	var out Campaign
	if err := c.do(ctx, http.MethodPost, "/api/campaigns/", camp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCampaign(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/campaigns/%d", id), nil, nil)
}

// Ping verifies connectivity and credentials by listing templates.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/templates/", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.cb.Execute(func() error {
		var payload io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}
			payload = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("builder request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			var apiErr struct {
				Message string `json:"message"`
			}
			data, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
				return fmt.Errorf("builder returned %d: %s", resp.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("builder returned %d", resp.StatusCode)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}
