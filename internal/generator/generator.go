// Package generator abstracts the AI providers that produce test cases for
// one category at a time. Providers are opaque to the rest of the pipeline:
// they either return cases or fail, and a failure is always retryable by
// rerunning the session.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/testgenius/testgenius/internal/testcase"
)

// CategoryGenerator produces the test cases of one category for one request.
type CategoryGenerator interface {
	// Name identifies the provider (e.g. "gemini").
	Name() string

	// GenerateCases produces zero or more cases for the category. An empty
	// result is a valid success.
	GenerateCases(ctx context.Context, req *testcase.GenerationRequest, category testcase.Category) ([]testcase.TestCase, error)
}

// ParseCases extracts a JSON array of test cases from a raw model reply.
// Models wrap replies in markdown code fences often enough that fences are
// stripped before parsing. Cases missing an id get a positional one using
// the category's prefix convention.
func ParseCases(raw string, category testcase.Category) ([]testcase.TestCase, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty model reply for %s cases", category)
	}

	var cases []testcase.TestCase
	if err := json.Unmarshal([]byte(cleaned), &cases); err != nil {
		return nil, fmt.Errorf("failed to parse %s cases from model reply: %w", category, err)
	}

	for i := range cases {
		if cases[i].ID == "" {
			cases[i].ID = fmt.Sprintf("%s-%d", category.IDPrefix(), i+1)
		}
	}
	return cases, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// Registry holds the configured providers and resolves the one a request
// asks for. The default provider backs requests with no explicit selector.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]CategoryGenerator
	defaultName string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]CategoryGenerator)}
}

// Register adds a provider. The first registered provider becomes the
// default.
func (r *Registry) Register(g CategoryGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[g.Name()] = g
	if r.defaultName == "" {
		r.defaultName = g.Name()
	}
}

// Get resolves a provider by name; an empty name resolves the default.
func (r *Registry) Get(name string) (CategoryGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
	}
	if name == "" {
		return nil, fmt.Errorf("no providers registered")
	}
	g, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(r.names(), ", "))
	}
	return g, nil
}

// Names lists the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
