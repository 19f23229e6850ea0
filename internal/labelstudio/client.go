package labelstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/httputil"
	"github.com/dhvani-data/annotation.report/internal/monitoring"
)

// Client talks to a Label Studio server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    httputil.HTTPClient
}

// NewClient returns a client for the given server. An empty token
// leaves requests unauthenticated.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    httputil.NewStandardClient(&http.Client{Timeout: 30 * time.Second}),
	}
}

// FetchExport downloads a project's annotations as a JSON export. The
// returned bytes feed ParseExport.
func (c *Client) FetchExport(ctx context.Context, projectID int) ([]byte, error) {
	url := fmt.Sprintf("%s/api/projects/%d/export?exportType=JSON", c.BaseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build export request: %w", err)
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch export: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export request returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

// PushTasks uploads items to a project as annotation tasks.
func (c *Client) PushTasks(ctx context.Context, projectID int, items []db.Item) error {
	payload, err := json.Marshal(BuildImportTasks(items))
	if err != nil {
		return fmt.Errorf("failed to encode import tasks: %w", err)
	}

	url := fmt.Sprintf("%s/api/projects/%d/import", c.BaseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build import request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push tasks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("import request returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	monitoring.Logf("✓ pushed %d tasks to project %d", len(items), projectID)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
