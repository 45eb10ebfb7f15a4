package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testgenius/testgenius/internal/generator"
	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
)

func validRequest() *testcase.GenerationRequest {
	return &testcase.GenerationRequest{
		StoryTitle:         "Search filters",
		StoryDescription:   "As a user I want to filter search results.",
		AcceptanceCriteria: "Results narrow as filters are applied.",
	}
}

func collect(t *testing.T, events <-chan *stream.Event) []*stream.Event {
	t.Helper()
	var got []*stream.Event
	for ev := range events {
		got = append(got, ev)
	}
	return got
}

func makeCases(category testcase.Category, n int) []testcase.TestCase {
	cases := make([]testcase.TestCase, n)
	for i := range cases {
		cases[i] = testcase.TestCase{
			ID:             string(category.IDPrefix()),
			Title:          "case",
			Priority:       "Medium",
			Description:    testcase.StepList{"step"},
			ExpectedResult: "result",
		}
	}
	return cases
}

func TestRunEmitsAllCategoriesInOrder(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	for _, c := range testcase.Categories(false) {
		mock.SetResponse(c, makeCases(c, 2))
	}

	sess := New(mock)
	got := collect(t, sess.Run(context.Background(), validRequest()))

	var caseTypes []testcase.Category
	done := 0
	for _, ev := range got {
		switch ev.Type {
		case stream.EventTypeCases:
			caseTypes = append(caseTypes, testcase.Category(ev.CaseType))
		case stream.EventTypeDone:
			done++
		case stream.EventTypeError:
			t.Fatalf("unexpected error event: %+v", ev)
		}
	}

	assert.Equal(t, testcase.Categories(false), caseTypes)
	assert.Equal(t, 1, done)
	require.NotEmpty(t, got)
	assert.Equal(t, stream.EventTypeDone, got[len(got)-1].Type)
	assert.Contains(t, got[len(got)-1].Message, "8 test cases")

	// One provider call per category, in order.
	calls := mock.GetCalls()
	require.Len(t, calls, 4)
	for i, c := range testcase.Categories(false) {
		assert.Equal(t, c, calls[i].Category)
	}
}

func TestRunIncludesAmbiguityWhenAware(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	req := validRequest()
	req.AmbiguityAware = true

	sess := New(mock)
	got := collect(t, sess.Run(context.Background(), req))

	var caseTypes []testcase.Category
	for _, ev := range got {
		if ev.Type == stream.EventTypeCases {
			caseTypes = append(caseTypes, testcase.Category(ev.CaseType))
		}
	}
	assert.Contains(t, caseTypes, testcase.CategoryAmbiguity)
	assert.Len(t, caseTypes, 5)
}

func TestRunIsolatesCategoryFailures(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	mock.SetResponse(testcase.CategoryPositive, makeCases(testcase.CategoryPositive, 3))
	mock.SetError(testcase.CategoryNegative, errors.New("model overloaded"))
	mock.SetResponse(testcase.CategoryEdgeCase, makeCases(testcase.CategoryEdgeCase, 1))
	mock.SetResponse(testcase.CategoryDataFlow, makeCases(testcase.CategoryDataFlow, 1))

	sess := New(mock)
	got := collect(t, sess.Run(context.Background(), validRequest()))

	var caseTypes []testcase.Category
	var errEvents []*stream.Event
	for _, ev := range got {
		switch ev.Type {
		case stream.EventTypeCases:
			caseTypes = append(caseTypes, testcase.Category(ev.CaseType))
		case stream.EventTypeError:
			errEvents = append(errEvents, ev)
		}
	}

	// The failed category is skipped, the rest still run.
	assert.Equal(t, []testcase.Category{
		testcase.CategoryPositive,
		testcase.CategoryEdgeCase,
		testcase.CategoryDataFlow,
	}, caseTypes)
	require.Len(t, errEvents, 1)
	assert.Equal(t, string(testcase.CategoryNegative), errEvents[0].CaseType)
	assert.Contains(t, errEvents[0].Error, "model overloaded")

	last := got[len(got)-1]
	assert.Equal(t, stream.EventTypeDone, last.Type)
	assert.Contains(t, last.Message, "1 categories failed")
}

func TestRunAllCategoriesFailStillDone(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	for _, c := range testcase.Categories(false) {
		mock.SetError(c, errors.New("boom"))
	}

	sess := New(mock)
	got := collect(t, sess.Run(context.Background(), validRequest()))

	done := 0
	errs := 0
	for _, ev := range got {
		switch ev.Type {
		case stream.EventTypeDone:
			done++
		case stream.EventTypeError:
			errs++
		}
	}
	assert.Equal(t, 1, done)
	assert.Equal(t, 4, errs)
	assert.Contains(t, got[len(got)-1].Message, "All categories failed")
}

func TestRunInvalidRequest(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	sess := New(mock)
	got := collect(t, sess.Run(context.Background(), &testcase.GenerationRequest{}))

	require.Len(t, got, 2)
	assert.Equal(t, stream.EventTypeError, got[0].Type)
	assert.Empty(t, got[0].CaseType, "a rejected request has no category")
	assert.Equal(t, "Invalid generation request", got[0].Message)
	assert.Contains(t, got[0].Error, "story_title")
	assert.Equal(t, stream.EventTypeDone, got[1].Type)
	assert.Empty(t, mock.GetCalls())
}

func TestRunContextCancellation(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	mock.SetDelay(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	sess := New(mock)
	events := sess.Run(ctx, validRequest())

	// First event is progress for the first category.
	ev := <-events
	require.Equal(t, stream.EventTypeProgress, ev.Type)

	cancel()

	// Channel closes without a done event.
	for ev := range events {
		assert.NotEqual(t, stream.EventTypeDone, ev.Type)
	}
}

func TestRunCategoryTimeout(t *testing.T) {
	t.Parallel()

	mock := generator.NewMockGenerator()
	mock.SetDelay(200 * time.Millisecond)
	mock.SetResponse(testcase.CategoryPositive, makeCases(testcase.CategoryPositive, 1))

	sess := New(mock, WithCategoryTimeout(20*time.Millisecond))
	got := collect(t, sess.Run(context.Background(), validRequest()))

	errs := 0
	for _, ev := range got {
		if ev.Type == stream.EventTypeError {
			errs++
			assert.Contains(t, ev.Error, "timed out")
		}
	}
	assert.Equal(t, 4, errs)
	assert.Equal(t, stream.EventTypeDone, got[len(got)-1].Type)
}
