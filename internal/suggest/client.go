// Package suggest calls the suggestion service for advisory rest, weight,
// and fatigue hints during a session.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/repflow/internal/session"
)

// Client talks to the suggestion service. Every method is advisory; the
// engine degrades to plan defaults when a call fails.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: Client satisfies the engine's suggester.
var _ session.Suggester = (*Client)(nil)

// NewClient creates a suggestion client targeting the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, sc session.SuggestionContext, out any) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encoding suggestion context: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating suggestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed (status %d): %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// RestSeconds suggests a rest duration for the upcoming rest.
func (c *Client) RestSeconds(ctx context.Context, sc session.SuggestionContext) (int, error) {
	var out struct {
		RestSeconds int `json:"rest_seconds"`
	}
	if err := c.post(ctx, "/api/v1/suggest/rest", sc, &out); err != nil {
		return 0, err
	}
	return out.RestSeconds, nil
}

// StartingWeightKg suggests a starting weight for the next exercise.
func (c *Client) StartingWeightKg(ctx context.Context, sc session.SuggestionContext) (float64, error) {
	var out struct {
		WeightKg float64 `json:"weight_kg"`
	}
	if err := c.post(ctx, "/api/v1/suggest/weight", sc, &out); err != nil {
		return 0, err
	}
	return out.WeightKg, nil
}

// Fatigued reports whether the service judges the lifter fatigued.
func (c *Client) Fatigued(ctx context.Context, sc session.SuggestionContext) (bool, error) {
	var out struct {
		Fatigued bool `json:"fatigued"`
	}
	if err := c.post(ctx, "/api/v1/suggest/fatigue", sc, &out); err != nil {
		return false, err
	}
	return out.Fatigued, nil
}

// RestMessage fetches a short motivational message for the rest screen.
func (c *Client) RestMessage(ctx context.Context, sc session.SuggestionContext) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/api/v1/suggest/message", sc, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
