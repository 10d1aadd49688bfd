package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

// HTTPClient implements DataSource by calling the Repflow REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale). The server
// scopes data to its own user, so the userID arguments are not forwarded.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func rangeParams(start, end time.Time) url.Values {
	return url.Values{
		"start": {start.Format(time.RFC3339)},
		"end":   {end.Format(time.RFC3339)},
	}
}

// QueryWorkoutLogs retrieves log summaries via the REST API.
func (c *HTTPClient) QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error) {
	body, err := c.get(ctx, "/api/v1/logs", rangeParams(start, end))
	if err != nil {
		return nil, err
	}
	var logs []models.WorkoutLogRow
	if err := json.Unmarshal(body, &logs); err != nil {
		return nil, fmt.Errorf("httpclient: decode logs: %w", err)
	}
	return logs, nil
}

// GetWorkoutLog retrieves a single log with its sets and rest intervals.
func (c *HTTPClient) GetWorkoutLog(ctx context.Context, logID uuid.UUID, userID int) (*storage.LogDetail, error) {
	body, err := c.get(ctx, "/api/v1/logs/"+logID.String(), nil)
	if err != nil {
		return nil, err
	}
	var detail storage.LogDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("httpclient: decode log detail: %w", err)
	}
	return &detail, nil
}

// QueryWorkoutSets retrieves historical sets via the REST API.
func (c *HTTPClient) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	params := rangeParams(start, end)
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}
	body, err := c.get(ctx, "/api/v1/history", params)
	if err != nil {
		return nil, err
	}
	var sets []models.WorkoutSetRow
	if err := json.Unmarshal(body, &sets); err != nil {
		return nil, fmt.Errorf("httpclient: decode sets: %w", err)
	}
	return sets, nil
}

// GetPersonalRecords retrieves the best set per exercise.
func (c *HTTPClient) GetPersonalRecords(ctx context.Context, userID int) ([]storage.PersonalRecord, error) {
	body, err := c.get(ctx, "/api/v1/prs", nil)
	if err != nil {
		return nil, err
	}
	var records []storage.PersonalRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpclient: decode personal records: %w", err)
	}
	return records, nil
}

// GetRestStats retrieves aggregate rest statistics.
func (c *HTTPClient) GetRestStats(ctx context.Context, start, end time.Time, userID int) (*storage.RestStats, error) {
	body, err := c.get(ctx, "/api/v1/stats/rest", rangeParams(start, end))
	if err != nil {
		return nil, err
	}
	var stats storage.RestStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("httpclient: decode rest stats: %w", err)
	}
	return &stats, nil
}

// GetVolumeSummary retrieves per-period training volume.
func (c *HTTPClient) GetVolumeSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.VolumePeriod, error) {
	params := rangeParams(start, end)
	if bucket != "" {
		params.Set("bucket", bucket)
	}
	body, err := c.get(ctx, "/api/v1/stats/volume", params)
	if err != nil {
		return nil, err
	}
	var summary []storage.VolumePeriod
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("httpclient: decode volume summary: %w", err)
	}
	return summary, nil
}
