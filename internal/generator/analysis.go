package generator

import (
	"context"
	"fmt"
	"strings"
)

// Analyzer produces free-form text for one prompt. Both REST providers
// implement it alongside CategoryGenerator.
type Analyzer interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// AnalysisInput describes the story under review.
type AnalysisInput struct {
	StoryTitle         string
	StoryDescription   string
	AcceptanceCriteria string
	RelatedTestCases   string
}

// BuildAnalysisPrompt assembles the story review prompt. The reply is an
// HTML fragment rendered directly by the caller, so the prompt pins the
// allowed tags down.
func BuildAnalysisPrompt(in AnalysisInput) string {
	var b strings.Builder

	b.WriteString("You are a senior QA engineer reviewing a user story before test design. " +
		"Assess the story for testability: ambiguous requirements, missing acceptance criteria, " +
		"contradictions, and gaps in test coverage.\n\n")
	fmt.Fprintf(&b, "## User Story\nTitle: %s\n\n%s\n", in.StoryTitle, in.StoryDescription)
	if in.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "\n## Acceptance Criteria\n%s\n", in.AcceptanceCriteria)
	}
	if in.RelatedTestCases != "" {
		fmt.Fprintf(&b, "\n## Existing Test Cases\n%s\n", in.RelatedTestCases)
	}
	b.WriteString(`
## Output Format
Respond with an HTML fragment using only <h3>, <p>, <ul>, <li>, <strong> and <em> tags. No markdown, no <html> or <body> wrapper, no scripts or styles. Structure the review as: strengths, ambiguities and gaps, suggested clarifying questions.
`)
	return b.String()
}

// Analyze runs the review prompt through the provider and strips any
// markdown fences the model wrapped the fragment in.
func Analyze(ctx context.Context, a Analyzer, in AnalysisInput) (string, error) {
	raw, err := a.GenerateText(ctx, BuildAnalysisPrompt(in))
	if err != nil {
		return "", fmt.Errorf("story analysis failed: %w", err)
	}
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```html")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned), nil
}

// Verify the REST providers satisfy both surfaces.
var (
	_ CategoryGenerator = (*Gemini)(nil)
	_ CategoryGenerator = (*OpenAI)(nil)
	_ Analyzer          = (*Gemini)(nil)
	_ Analyzer          = (*OpenAI)(nil)
)
