// Package tagapi talks to the time-tracking service's tag endpoints.
package tagapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://wisetime.com/connect/api"

// UpsertTagRequest creates a tag or updates the tag with the same name.
type UpsertTagRequest struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	Path               string            `json:"path"`
	AdditionalKeywords []string          `json:"additionalKeywords,omitempty"`
	ExternalID         string            `json:"externalId,omitempty"`
	MetaData           map[string]string `json:"metaData,omitempty"`
}

// Client is the interface for managing tags.
type Client interface {
	UpsertBatch(ctx context.Context, requests []UpsertTagRequest) error
	Delete(ctx context.Context, name string) error
}

// Config holds the connection settings for the tag API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type httpClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a tag API client.
func NewClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &httpClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type upsertBatchBody struct {
	UpsertTagRequests []UpsertTagRequest `json:"upsertTagRequests"`
}

type deleteBody struct {
	Name string `json:"name"`
}

func (c *httpClient) UpsertBatch(ctx context.Context, requests []UpsertTagRequest) error {
	if len(requests) == 0 {
		return nil
	}
	log.Debug().Int("count", len(requests)).Msg("Upserting tag batch")
	return c.post(ctx, "/tag/upsert/batch", upsertBatchBody{UpsertTagRequests: requests})
}

func (c *httpClient) Delete(ctx context.Context, name string) error {
	log.Debug().Str("tag", name).Msg("Deleting tag")
	return c.post(ctx, "/tag/delete", deleteBody{Name: name})
}

func (c *httpClient) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tag API request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: "authentication failed, check the API key"}
	case http.StatusTooManyRequests:
		msg := "rate limit exceeded"
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			msg += ", retry after " + retryAfter + " seconds"
		}
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(detail))}
	}
}

// StatusError is returned when the tag API answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tag API %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("tag API %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
}
