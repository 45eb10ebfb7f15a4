// Package azure is a minimal Azure DevOps REST client covering the three
// operations the pipeline needs: creating Test Case work items, linking
// them into a test suite, and fetching user stories.
package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/testgenius/testgenius/internal/logging"
	"github.com/testgenius/testgenius/internal/richtext"
	"github.com/testgenius/testgenius/internal/testcase"
)

const apiVersion = "7.0"

// Client talks to one Azure DevOps organization and project.
type Client struct {
	orgURL     string
	project    string
	pat        string
	bearer     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithPAT authenticates with a personal access token (basic auth, empty
// username).
func WithPAT(pat string) Option {
	return func(c *Client) { c.pat = pat }
}

// WithBearerToken authenticates with an OAuth bearer token, as passed
// through from a browser session.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearer = token }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the organization URL (e.g.
// "https://dev.azure.com/myorg") and project.
func NewClient(orgURL, project string, opts ...Option) *Client {
	c := &Client{
		orgURL:     strings.TrimRight(orgURL, "/"),
		project:    project,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) setAuth(req *http.Request) {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
		return
	}
	if c.pat != "" {
		encoded := base64.StdEncoding.EncodeToString([]byte(":" + c.pat))
		req.Header.Set("Authorization", "Basic "+encoded)
	}
}

func (c *Client) apiURL(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/%s/_apis/%s?%s", c.orgURL, url.PathEscape(c.project), path, query.Encode())
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type workItemResponse struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
}

// CreateTestCase creates one Test Case work item and returns its id. The
// title arrives already prepared; priority strings map onto the 1..4 scale
// the Priority field accepts.
func (c *Client) CreateTestCase(ctx context.Context, tc testcase.TestCase) (int, error) {
	ops := []patchOp{
		{Op: "add", Path: "/fields/System.Title", Value: tc.Title},
		{Op: "add", Path: "/fields/Microsoft.VSTS.Common.Priority", Value: testcase.PriorityValue(tc.Priority)},
	}
	if steps := StepsXML(tc); steps != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/Microsoft.VSTS.TCM.Steps", Value: steps})
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return 0, fmt.Errorf("failed to encode work item patch: %w", err)
	}

	reqURL := c.apiURL("wit/workitems/$Test Case", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("work item creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, statusError("work item creation", resp)
	}

	var created workItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("failed to decode work item response: %w", err)
	}

	logging.Debug("created test case work item", "id", created.ID, "title", tc.Title)
	return created.ID, nil
}

type suiteEntry struct {
	WorkItem struct {
		ID int `json:"id"`
	} `json:"workItem"`
}

// AddToSuite links the created work items into a test suite with a single
// batched call.
func (c *Client) AddToSuite(ctx context.Context, planID, suiteID int, workItemIDs []int) error {
	if len(workItemIDs) == 0 {
		return nil
	}

	entries := make([]suiteEntry, len(workItemIDs))
	for i, id := range workItemIDs {
		entries[i].WorkItem.ID = id
	}
	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode suite entries: %w", err)
	}

	path := fmt.Sprintf("testplan/Plans/%d/Suites/%d/TestCase", planID, suiteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(path, nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("suite link failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("suite link", resp)
	}

	logging.Debug("linked test cases to suite", "plan", planID, "suite", suiteID, "count", len(workItemIDs))
	return nil
}

// GetStory fetches a user story work item and returns its fields with HTML
// markup flattened to plain text.
func (c *Client) GetStory(ctx context.Context, id int) (*testcase.Story, error) {
	query := url.Values{}
	query.Set("$expand", "All")
	reqURL := c.apiURL("wit/workitems/"+strconv.Itoa(id), query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("story fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("work item %d not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("story fetch", resp)
	}

	var item workItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode work item: %w", err)
	}

	return &testcase.Story{
		ID:                 item.ID,
		Title:              stringField(item.Fields, "System.Title"),
		Description:        richtext.Text(stringField(item.Fields, "System.Description")),
		AcceptanceCriteria: richtext.Text(stringField(item.Fields, "Microsoft.VSTS.Common.AcceptanceCriteria")),
	}, nil
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
