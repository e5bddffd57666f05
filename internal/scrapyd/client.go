// Package scrapyd implements a client for the scrapyd HTTP API, the external
// service that actually runs crawls.
package scrapyd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

const defaultTimeout = 30 * time.Second

// Client talks to a scrapyd server. It satisfies crawler.Submitter.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient validates the base URL and returns a Client.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("crawler.host_url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid crawler host url %q", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
	}, nil
}

type scrapydResponse struct {
	Status  string   `json:"status"`
	JobID   string   `json:"jobid"`
	Message string   `json:"message"`
	Spiders []string `json:"spiders"`
}

// Schedule submits a crawl via schedule.json and returns the external job id.
// Settings are passed as repeated `setting=KEY=value` form values, all other
// arguments as plain form fields, which is the scrapyd wire convention.
func (c *Client) Schedule(
	ctx context.Context,
	project, spider string,
	settings map[string]any,
	args map[string]string,
) (string, error) {
	form := url.Values{}
	form.Set("project", project)
	form.Set("spider", spider)
	for key, value := range settings {
		form.Add("setting", fmt.Sprintf("%s=%s", key, settingValue(value)))
	}
	for key, value := range args {
		form.Set(key, value)
	}

	var resp scrapydResponse
	if err := c.post(ctx, "/schedule.json", form, &resp); err != nil {
		return "", err
	}
	if resp.Status != "ok" {
		if isUnknownSpider(resp.Message) {
			available, listErr := c.ListSpiders(ctx, project)
			if listErr != nil {
				available = nil
			}
			return "", &crawler.UnknownSpiderError{
				Spider:    spider,
				Project:   project,
				Available: available,
			}
		}
		return "", fmt.Errorf("scrapyd schedule failed: %s", resp.Message)
	}
	return resp.JobID, nil
}

// ListSpiders returns the spiders known to the project.
func (c *Client) ListSpiders(ctx context.Context, project string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/listspiders.json?project=%s", c.baseURL, url.QueryEscape(project))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build listspiders request: %w", err)
	}
	var resp scrapydResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("scrapyd listspiders failed: %s", resp.Message)
	}
	return resp.Spiders, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out *scrapydResponse) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("build scrapyd request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out *scrapydResponse) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("scrapyd request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scrapyd returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode scrapyd response: %w", err)
	}
	return nil
}

func settingValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

func isUnknownSpider(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "spider") && strings.Contains(lower, "not found")
}
