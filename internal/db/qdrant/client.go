// Package qdrant is a minimal REST client for the Qdrant vector store.
package qdrant

import (
	"bytes"
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

	"github.com/kailas-cloud/booksrag/internal/db"
)

// Compile-time check: Client implements db.PointCounter.
var _ db.PointCounter = (*Client)(nil)

const maxErrorBody = 4 << 10

// Config holds connection parameters for a Qdrant server.
type Config struct {
	Host    string
	Port    int
	HTTPS   bool
	APIKey  string
	Timeout time.Duration
}

// Client talks to the Qdrant REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Qdrant REST client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	scheme := "http"
	if cfg.HTTPS {
		scheme = "https"
	}
	base := url.URL{Scheme: scheme, Host: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}
	return &Client{
		baseURL: base.String(),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// NewClientWithBaseURL creates a client for an explicit base URL (tests, proxies).
func NewClientWithBaseURL(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: hc}
}

// Ping checks that the server is ready to serve requests.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/readyz", nil, nil); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// CountPoints returns the exact number of points in collection.
func (c *Client) CountPoints(ctx context.Context, collection string) (int, error) {
	if collection == "" {
		return 0, &db.Error{Op: db.OpPointsCount, Err: errors.New("collection name is required")}
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := "/collections/" + url.PathEscape(collection) + "/points/count"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"exact": true}, &resp); err != nil {
		return 0, &db.Error{Op: db.OpPointsCount, Err: err}
	}
	return resp.Result.Count, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError turns a non-2xx response into an error, preferring Qdrant's status.error text.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := string(bytes.TrimSpace(raw))
	var payload struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Status.Error != "" {
		msg = payload.Status.Error
	}
	if msg == "" {
		msg = resp.Status
	}

	err := fmt.Errorf("qdrant %s: %s", resp.Status, msg)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", db.ErrCollectionAbsent, err)
	}
	return err
}
