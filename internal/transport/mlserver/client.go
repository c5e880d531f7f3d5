// Package mlserver calls a remote model server using the v1 predict protocol.
package mlserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// Config holds the remote model settings.
type Config struct {
	URL        string
	Name       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a remote Predictor.
type Client struct {
	baseURL string
	name    string
	client  *http.Client
}

type predictRequest struct {
	Instances []listing.Features `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// New creates a client for the named model.
func New(cfg *Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("model server url is required")
	}
	if cfg.Name == "" {
		return nil, errors.New("model name is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse model server url: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		name:    cfg.Name,
		client:  hc,
	}, nil
}

// Predict posts the rows as instances and returns one prediction per row.
func (c *Client) Predict(ctx context.Context, rows []listing.Features) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}

	body, err := json.Marshal(predictRequest{Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("marshal instances: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", c.baseURL, url.PathEscape(c.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, remoteError(resp)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if len(out.Predictions) != len(rows) {
		return nil, fmt.Errorf("model %s returned %d predictions for %d rows: %w",
			c.name, len(out.Predictions), len(rows), domain.ErrPredictor)
	}
	return out.Predictions, nil
}

// HealthCheck asks the server whether the model is loaded.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1/models/%s", c.baseURL, url.PathEscape(c.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("model %s health: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model %s health: %w", c.name, remoteError(resp))
	}
	return nil
}

func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
}
