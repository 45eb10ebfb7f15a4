// Package stream defines the wire format spoken between the generation
// backend and its clients: the tagged-union event records carried over the
// SSE generation stream, the request/response shapes of the non-streaming
// endpoints, a boundary-safe decoder, and an HTTP client.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/testgenius/testgenius/internal/testcase"
)

// EventType discriminates the records on the generation stream.
type EventType string

const (
	// EventTypeProgress is a human-readable status update with no payload.
	EventTypeProgress EventType = "progress"
	// EventTypeCases carries the generated cases for one category.
	EventTypeCases EventType = "cases"
	// EventTypeError reports one failed category; the session continues.
	EventTypeError EventType = "error"
	// EventTypeDone terminates the session. Exactly one per session, always last.
	EventTypeDone EventType = "done"
)

// SchemaVersion is stamped on encoded events so future format changes can
// be detected by decoders.
const SchemaVersion = 1

// Event is one record on the generation stream.
type Event struct {
	// Version is the wire schema version. Zero on legacy records.
	Version int `json:"v,omitempty"`

	// Type identifies the record. Legacy producers omitted it for
	// progress and cases records; UnmarshalEvent infers it.
	Type EventType `json:"type"`

	// CaseType is the category tag on cases and error records.
	CaseType string `json:"case_type,omitempty"`

	// Cases is the payload of a cases record. May legitimately be empty.
	Cases []testcase.TestCase `json:"cases,omitempty"`

	// Progress is the human-readable status on progress and cases records.
	Progress string `json:"progress,omitempty"`

	// Error is the failure description on error records.
	Error string `json:"error,omitempty"`

	// Message carries additional text on error and done records.
	Message string `json:"message,omitempty"`
}

// NewProgressEvent creates a status-only record.
func NewProgressEvent(message string) *Event {
	return &Event{Version: SchemaVersion, Type: EventTypeProgress, Progress: message}
}

// NewCasesEvent creates the record for one completed category. An empty
// case list is valid and still carries the progress text.
func NewCasesEvent(category testcase.Category, cases []testcase.TestCase) *Event {
	return &Event{
		Version:  SchemaVersion,
		Type:     EventTypeCases,
		CaseType: string(category),
		Cases:    cases,
		Progress: fmt.Sprintf("Generated %d %s test cases", len(cases), category),
	}
}

// NewErrorEvent creates the record for one failed category.
func NewErrorEvent(category testcase.Category, err error) *Event {
	return &Event{
		Version:  SchemaVersion,
		Type:     EventTypeError,
		CaseType: string(category),
		Error:    err.Error(),
		Message:  fmt.Sprintf("Generating %s test cases failed", category),
	}
}

// NewInvalidRequestEvent reports a request rejected before any category ran.
// Unlike a category error it carries no category tag.
func NewInvalidRequestEvent(err error) *Event {
	return &Event{
		Version: SchemaVersion,
		Type:    EventTypeError,
		Error:   err.Error(),
		Message: "Invalid generation request",
	}
}

// NewDoneEvent creates the terminal record.
func NewDoneEvent(message string) *Event {
	return &Event{Version: SchemaVersion, Type: EventTypeDone, Message: message}
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes a record. Legacy shapes (a bare
// {"progress": ...}, a typeless {"cases": [...]}, or a category name in the
// type field) decode to the equivalent tagged event.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch e.Type {
	case EventTypeProgress, EventTypeCases, EventTypeError, EventTypeDone:
		return &e, nil
	case "":
		// Legacy records carried no discriminator.
		if e.Cases != nil {
			e.Type = EventTypeCases
			return &e, nil
		}
		if e.Progress != "" {
			e.Type = EventTypeProgress
			return &e, nil
		}
	default:
		// Legacy cases records used the category name as the type.
		if e.Cases != nil {
			e.CaseType = string(e.Type)
			e.Type = EventTypeCases
			return &e, nil
		}
	}

	return nil, fmt.Errorf("unrecognized event shape: %q", string(data))
}

// UploadRequest is the body of the upload endpoint.
type UploadRequest struct {
	TestPlanID  int                 `json:"test_plan_id"`
	TestSuiteID int                 `json:"test_suite_id"`
	TestCases   []testcase.TestCase `json:"test_cases"`
}

// UploadResponse reports the outcome of an upload. On partial failure
// CreatedIDs still lists the work items that were persisted and Step names
// the step that failed ("create" or "link").
type UploadResponse struct {
	Message    string `json:"message,omitempty"`
	Count      int    `json:"count"`
	CreatedIDs []int  `json:"created_ids,omitempty"`
	Step       string `json:"step,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AnalyzeRequest is the body of the story analysis endpoint.
type AnalyzeRequest struct {
	StoryTitle         string `json:"story_title"`
	StoryDescription   string `json:"story_description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
	RelatedTestCases   string `json:"related_test_cases,omitempty"`
	AIProvider         string `json:"ai_provider,omitempty"`
}

// AnalyzeResponse carries the opaque HTML fragment produced by the provider.
type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}

// FetchStoryRequest is the body of the story fetch endpoint.
type FetchStoryRequest struct {
	StoryID int `json:"story_id"`
}
