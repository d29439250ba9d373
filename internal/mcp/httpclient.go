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

	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the curlform REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// recentWindow bounds the range searched for recent analyses.
const recentWindow = 365 * 24 * time.Hour

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToAgg maps MCP bucket values to REST API agg parameter values.
func bucketToAgg(bucket string) string {
	switch bucket {
	case "1 day":
		return "daily"
	case "1 month":
		return "monthly"
	default:
		return "weekly"
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) QueryAnalyses(ctx context.Context, start, end time.Time, _ int) ([]models.AnalysisRow, error) {
	var analyses []models.AnalysisRow
	if err := c.get(ctx, "/api/v1/analyses", timeParams(start, end), &analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

// RecentAnalyses returns the newest analyses of the last year. The server
// orders analyses newest first.
func (c *HTTPClient) RecentAnalyses(ctx context.Context, userID, limit int) ([]models.AnalysisRow, error) {
	end := time.Now()
	analyses, err := c.QueryAnalyses(ctx, end.Add(-recentWindow), end, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(analyses) > limit {
		analyses = analyses[:limit]
	}
	return analyses, nil
}

func (c *HTTPClient) GetAnalysis(ctx context.Context, id uuid.UUID, _ int) (*storage.AnalysisDetail, error) {
	var detail storage.AnalysisDetail
	if err := c.get(ctx, "/api/v1/analyses/"+id.String(), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) GetFormSummary(ctx context.Context, start, end time.Time, bucket string, _ int) (*storage.FormSummary, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	var summary storage.FormSummary
	if err := c.get(ctx, "/api/v1/summary", params, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context, _ int) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
