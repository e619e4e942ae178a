// Package rag is an HTTP client for a remote retrieval/ingestion worker service.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	domquery "github.com/kailas-cloud/booksrag/internal/domain/query"
	"github.com/kailas-cloud/booksrag/internal/worker"
)

const maxErrorBody = 8 << 10

// Config holds the remote service location and its declared capabilities.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Params is the declared retrieval parameter set. Empty means the default set.
	Params []domquery.Param
	// DefaultCollection is the collection the ingestion side writes to by default.
	DefaultCollection string
}

// Manifest is the capability document served at GET /manifest.
type Manifest struct {
	Params            []domquery.Param `json:"params"`
	DefaultCollection string           `json:"default_collection"`
}

// Client calls the remote worker service. It implements both the retrieval and the
// ingestion collaborator contracts.
type Client struct {
	baseURL string
	http    *http.Client

	mu                sync.RWMutex
	params            domquery.ParameterSet
	defaultCollection string
}

// NewClient creates a client. hc may be nil.
func NewClient(cfg Config, hc *http.Client) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("rag: base url is required")
	}
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	params := domquery.DefaultParameterSet()
	if len(cfg.Params) > 0 {
		params = domquery.NewParameterSet(cfg.Params...)
	}

	return &Client{
		baseURL:           base,
		http:              hc,
		params:            params,
		defaultCollection: cfg.DefaultCollection,
	}, nil
}

// Params returns the currently declared parameter set.
func (c *Client) Params() domquery.ParameterSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// DefaultCollection returns the ingestion side's default collection, or "".
func (c *Client) DefaultCollection() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultCollection
}

// LoadManifest fetches GET /manifest and replaces the declared parameter set and,
// when present, the default collection.
func (c *Client) LoadManifest(ctx context.Context) (Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/manifest", http.NoBody)
	if err != nil {
		return Manifest{}, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Manifest{}, fmt.Errorf("fetch manifest: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Manifest{}, remoteError(resp)
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if len(m.Params) == 0 {
		return Manifest{}, errors.New("manifest declares no params")
	}

	c.mu.Lock()
	c.params = domquery.NewParameterSet(m.Params...)
	if m.DefaultCollection != "" {
		c.defaultCollection = m.DefaultCollection
	}
	c.mu.Unlock()
	return m, nil
}

// Query posts call to /run_query and returns the response body untouched.
func (c *Client) Query(ctx context.Context, call domquery.Call) (json.RawMessage, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run_query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, errors.New("retrieval service returned invalid JSON")
	}
	return raw, nil
}

// Ingest streams the staged file at path to /ingest as multipart field "file".
// It must run inside a worker.
func (c *Client) Ingest(ctx context.Context, path string) error {
	env, err := worker.RequireEnv(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest", pr)
	if err != nil {
		_ = pr.Close()
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env.Logger.Debug("posting staged file", zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return remoteError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// remoteError builds an error from a failed response, preferring the service's
// "detail" or "message" field over the raw body.
func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := string(bytes.TrimSpace(raw))
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		var detail string
		switch {
		case json.Unmarshal(payload.Detail, &detail) == nil && detail != "":
			msg = detail
		case len(payload.Detail) > 0 && string(payload.Detail) != "null":
			msg = string(payload.Detail)
		case payload.Message != "":
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = resp.Status
	}
	return errors.New(msg)
}
