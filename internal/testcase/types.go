// Package testcase defines the shared data model for the generation and
// upload pipeline: stories, generated test cases, categories, and the
// request shape that drives one generation session.
package testcase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Category is one classification of test case, generated independently.
type Category string

const (
	CategoryPositive  Category = "Positive"
	CategoryNegative  Category = "Negative"
	CategoryEdgeCase  Category = "Edge Case"
	CategoryDataFlow  Category = "Data Flow"
	CategoryAmbiguity Category = "Ambiguity"
)

// Categories returns the fixed processing order for one session.
// The ambiguity category is only included when the request asks for it.
func Categories(ambiguityAware bool) []Category {
	cats := []Category{CategoryPositive, CategoryNegative, CategoryEdgeCase, CategoryDataFlow}
	if ambiguityAware {
		cats = append(cats, CategoryAmbiguity)
	}
	return cats
}

// IDPrefix returns the generator id convention for the category
// (e.g. "TC-POS" for positive cases).
func (c Category) IDPrefix() string {
	switch c {
	case CategoryPositive:
		return "TC-POS"
	case CategoryNegative:
		return "TC-NEG"
	case CategoryEdgeCase:
		return "TC-EDGE"
	case CategoryDataFlow:
		return "TC-DF"
	case CategoryAmbiguity:
		return "TC-AMB"
	}
	return "TC"
}

// StepList holds the ordered steps of a test case description. Generators
// encode steps either as a single newline-separated string or as a JSON
// array; both decode to the same representation.
type StepList []string

// UnmarshalJSON accepts both the string and the array encoding.
func (s *StepList) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = splitSteps(asString)
		return nil
	}

	var asArray []string
	if err := json.Unmarshal(data, &asArray); err == nil {
		steps := make(StepList, 0, len(asArray))
		for _, step := range asArray {
			if strings.TrimSpace(step) != "" {
				steps = append(steps, strings.TrimSpace(step))
			}
		}
		*s = steps
		return nil
	}

	return errors.New("description must be a string or an array of strings")
}

// MarshalJSON emits the canonical newline-separated string encoding.
func (s StepList) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(s, "\n"))
}

func splitSteps(raw string) StepList {
	var steps StepList
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			steps = append(steps, trimmed)
		}
	}
	return steps
}

// TestCase is one generated test case. Created by a category generator,
// accumulated on the client, optionally edited or deleted by the user, and
// finally persisted by the upload transaction. The upload transaction never
// mutates it.
type TestCase struct {
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title"`
	Priority       string   `json:"priority"`
	Description    StepList `json:"description"`
	ExpectedResult string   `json:"expectedResult"`
}

// RelatedStory is a plain-text sibling story the user selected to give the
// generator extra context. Selection state lives only on the client.
type RelatedStory struct {
	ID                 int    `json:"id,omitempty"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
}

// Story is a fetched user story. Description and acceptance criteria arrive
// as rich text from the work-item tracker; edits replace the field wholesale.
type Story struct {
	ID                 int            `json:"id,omitempty"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	AcceptanceCriteria string         `json:"acceptance_criteria"`
	RelatedStories     []RelatedStory `json:"related_stories,omitempty"`
}

// GenerationRequest drives one generation session. It is constructed once
// per generate action and is immutable for the session's lifetime.
type GenerationRequest struct {
	StoryTitle         string         `json:"story_title"`
	StoryDescription   string         `json:"story_description"`
	AcceptanceCriteria string         `json:"acceptance_criteria"`
	DataDictionary     string         `json:"data_dictionary"`
	RelatedStories     []RelatedStory `json:"related_stories,omitempty"`
	AIProvider         string         `json:"ai_provider,omitempty"`
	AmbiguityAware     bool           `json:"ambiguity_aware,omitempty"`
}

// Validate checks the required fields. A request failing validation is
// rejected before any stream is opened.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.StoryTitle) == "" {
		return &ValidationError{Field: "story_title", Message: "required field is empty"}
	}
	if strings.TrimSpace(r.AcceptanceCriteria) == "" {
		return &ValidationError{Field: "acceptance_criteria", Message: "required field is empty"}
	}
	return nil
}

// ValidationError reports a missing or invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
