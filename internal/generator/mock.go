package generator

import (
	"context"
	"sync"
	"time"

	"github.com/testgenius/testgenius/internal/testcase"
)

// MockGenerator implements CategoryGenerator for testing.
// It provides per-category control over results and errors and records
// every call. This mock is exported for use by tests in other packages.
type MockGenerator struct {
	mu sync.Mutex

	name string

	// Per-category responses
	responses map[testcase.Category][]testcase.TestCase
	errs      map[testcase.Category]error

	// Optional artificial latency per call
	delay time.Duration

	// Free-form text response and error
	text    string
	textErr error

	// Tracking
	calls     []MockGenerateCall
	textCalls []string
}

// MockGenerateCall records a GenerateCases call.
type MockGenerateCall struct {
	Category testcase.Category
	Request  *testcase.GenerationRequest
}

// NewMockGenerator creates a new MockGenerator with default configuration.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		name:      "mock",
		responses: make(map[testcase.Category][]testcase.TestCase),
		errs:      make(map[testcase.Category]error),
	}
}

// Name implements CategoryGenerator.
func (m *MockGenerator) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// GenerateCases returns the configured response for the category.
// If no response is configured, returns an empty slice (default behavior).
func (m *MockGenerator) GenerateCases(ctx context.Context, req *testcase.GenerationRequest, category testcase.Category) ([]testcase.TestCase, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockGenerateCall{Category: category, Request: req})
	delay := m.delay
	err := m.errs[category]
	cases := m.responses[category]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// GenerateText returns the configured text response (empty by default).
func (m *MockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.textCalls = append(m.textCalls, prompt)
	text, err := m.text, m.textErr
	m.mu.Unlock()
	return text, err
}

// SetName overrides the provider name the mock reports.
func (m *MockGenerator) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// SetResponse configures the cases returned for a category.
func (m *MockGenerator) SetResponse(category testcase.Category, cases []testcase.TestCase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[category] = cases
	delete(m.errs, category)
}

// SetError configures GenerateCases to fail for a category.
func (m *MockGenerator) SetError(category testcase.Category, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[category] = err
}

// SetDelay configures artificial latency per call.
func (m *MockGenerator) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetTextResponse configures the GenerateText reply.
func (m *MockGenerator) SetTextResponse(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.textErr = err
}

// GetTextCalls returns a copy of the recorded GenerateText prompts.
func (m *MockGenerator) GetTextCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.textCalls))
	copy(result, m.textCalls)
	return result
}

// GetCalls returns a copy of the recorded GenerateCases calls.
func (m *MockGenerator) GetCalls() []MockGenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockGenerateCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// Reset clears all recorded calls and resets configuration.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = make(map[testcase.Category][]testcase.TestCase)
	m.errs = make(map[testcase.Category]error)
	m.delay = 0
	m.text = ""
	m.textErr = nil
	m.calls = nil
	m.textCalls = nil
}

// Verify MockGenerator implements both generator surfaces.
var (
	_ CategoryGenerator = (*MockGenerator)(nil)
	_ Analyzer          = (*MockGenerator)(nil)
)
