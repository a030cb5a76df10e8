// Package assessment calls the external damage detection service that turns
// claim photos into damage labels and a severity tag.
package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/metrics"
)

// ErrNotConfigured is returned when no model endpoint is set.
var ErrNotConfigured = errors.New("damage assessment endpoint not configured")

const maxResponseBytes = 1 << 20

// Client is a damage model client with its own HTTP lifecycle.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for cfg. The transport is instrumented with OpenTelemetry.
func New(cfg domain.AssessmentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type assessRequest struct {
	ClaimID string   `json:"claim_id,omitempty"`
	Images  []string `json:"images"`
}

type assessResponse struct {
	Damages  []string `json:"damages"`
	Severity string   `json:"severity"`
	Error    string   `json:"error,omitempty"`
}

// Assess sends image URLs to the model service. The returned assessment is
// always usable: on any failure it carries severity "unknown" and no labels,
// and the error says why.
func (c *Client) Assess(ctx context.Context, claimID string, images []string) (domain.DamageAssessment, error) {
	fallback := domain.DamageAssessment{
		ClaimID:      claimID,
		DamageLabels: []string{},
		Severity:     domain.SeverityUnknown,
	}

	res, err := c.call(ctx, claimID, images)
	if err != nil {
		metrics.AssessmentFailuresTotal.Inc()
		slog.Warn("damage assessment failed", "claim_id", claimID, "error", err)
		return fallback, err
	}

	severity := strings.ToLower(strings.TrimSpace(res.Severity))
	if severity == "" {
		severity = domain.SeverityUnknown
	}
	labels := res.Damages
	if labels == nil {
		labels = []string{}
	}
	return domain.DamageAssessment{ClaimID: claimID, DamageLabels: labels, Severity: severity}, nil
}

func (c *Client) call(ctx context.Context, claimID string, images []string) (*assessResponse, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(assessRequest{ClaimID: claimID, Images: images})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}

	var out assessResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode model response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return nil, fmt.Errorf("model service returned %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("model service returned %d", resp.StatusCode)
	}
	return &out, nil
}
