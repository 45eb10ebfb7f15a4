package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/testgenius/testgenius/internal/testcase"
)

// Client provides HTTP access to the generation backend. One Generate call
// owns one long-lived SSE connection; the non-streaming endpoints are plain
// request/response.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAuthToken sets the bearer token attached to every request.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a Client for the given backend base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0, // Generation streams stay open for minutes.
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate opens one generation stream for the request and decodes it into
// an event channel. The event channel closes when the session's done record
// arrives or the stream ends; a transport or setup failure is delivered on
// the error channel. Canceling the context tears the connection down and
// stops delivery.
func (c *Client) Generate(ctx context.Context, genReq *testcase.GenerationRequest) (<-chan *Event, <-chan error) {
	eventCh := make(chan *Event, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		body, err := json.Marshal(genReq)
		if err != nil {
			errCh <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_test_cases", bytes.NewReader(body))
		if err != nil {
			errCh <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		c.addHeaders(req)
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errCh <- fmt.Errorf("failed to connect: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			errCh <- fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
			return
		}

		decoder := NewDecoder(resp.Body)
		for {
			event, err := decoder.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					errCh <- err
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case eventCh <- event:
			}
		}
	}()

	return eventCh, errCh
}

// Upload sends the accumulated cases to the upload endpoint. A non-2xx
// response still carries a decodable UploadResponse identifying the failing
// step; in that case both the response and an error are returned.
func (c *Client) Upload(ctx context.Context, uploadReq *UploadRequest) (*UploadResponse, error) {
	var result UploadResponse
	status, err := c.postJSON(ctx, "/upload_test_cases", uploadReq, &result)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return &result, fmt.Errorf("upload failed at step %q: %s", result.Step, result.Error)
	}
	return &result, nil
}

// Analyze requests a story review. The returned fragment is opaque to the
// pipeline.
func (c *Client) Analyze(ctx context.Context, analyzeReq *AnalyzeRequest) (*AnalyzeResponse, error) {
	var result AnalyzeResponse
	status, err := c.postJSON(ctx, "/analyze_story", analyzeReq, &result)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("analyze failed with status %d", status)
	}
	return &result, nil
}

// FetchStory retrieves a user story from the test repository via the backend.
func (c *Client) FetchStory(ctx context.Context, storyID int) (*testcase.Story, error) {
	var story testcase.Story
	status, err := c.postJSON(ctx, "/fetch_story", &FetchStoryRequest{StoryID: storyID}, &story)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch story failed with status %d", status)
	}
	return &story, nil
}

// postJSON posts a JSON body and decodes the JSON response, returning the
// HTTP status so callers can distinguish structured failures.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
