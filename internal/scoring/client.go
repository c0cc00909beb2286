package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	matchingPath = "/matching"
	healthPath   = "/health"

	contentType = "application/json"
)

// Client talks to the external scoring service. The service owns all
// category scoring logic; this client only normalizes its numeric outputs.
type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	logger     *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
}

func New(ctx context.Context, logger *zap.Logger, baseURL string) *Client {
	return &Client{
		ctx:     ctx,
		logger:  logger,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Compute asks the service to score all pairs and returns the normalized
// results. An empty final_matches list is returned as-is: the caller must
// not fabricate scores for missing data.
func (c *Client) Compute(req *Request) (*Results, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal matching request: %w", err)
	}

	url := c.BaseURL + matchingPath
	httpReq, err := http.NewRequestWithContext(c.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	c.logger.Debug("requesting matching scores",
		zap.String("url", url),
		zap.Int("manual_matches", len(req.ManualMatches)),
		zap.Int("manual_non_matches", len(req.ManualNonMatches)),
	)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("matching request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("matching request: bad status: %s", resp.Status)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode matching response: %w", err)
	}

	results, err := decodeResults(payload, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got matching scores",
		zap.Int("categories", len(results.Categories)),
		zap.Int("final_matches", len(results.FinalMatches)),
	)

	return results, nil
}

// Health checks that the scoring service is reachable.
func (c *Client) Health() error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.BaseURL+healthPath, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: bad status: %s", resp.Status)
	}

	return nil
}
