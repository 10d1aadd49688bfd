// Package media resolves exercise names to display media over HTTP.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/repflow/internal/session"
)

// Client resolves exercise media from the media service. Lookups are
// advisory; callers treat failures as "no media", never as fatal.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: Client satisfies the engine's media resolver.
var _ session.MediaResolver = (*Client)(nil)

// NewClient creates a media client targeting the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve fetches image and video references for an exercise.
func (c *Client) Resolve(ctx context.Context, exercise string) (session.Media, error) {
	u := c.baseURL + "/api/v1/media?" + url.Values{"exercise": {exercise}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return session.Media{}, fmt.Errorf("creating media request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session.Media{}, fmt.Errorf("fetching media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return session.Media{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return session.Media{}, fmt.Errorf("media request failed (status %d): %s", resp.StatusCode, body)
	}

	var m session.Media
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return session.Media{}, fmt.Errorf("decoding media response: %w", err)
	}
	return m, nil
}
