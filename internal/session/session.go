// Package session orchestrates a generation run: one provider call per
// category, in a fixed order, with failures isolated per category. Consumers
// receive the run as a stream of events and can rely on exactly one done
// event arriving last.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/testgenius/testgenius/internal/generator"
	"github.com/testgenius/testgenius/internal/logging"
	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
)

const defaultCategoryTimeout = 3 * time.Minute

// Session runs one generation request to completion.
type Session struct {
	gen             generator.CategoryGenerator
	categoryTimeout time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithCategoryTimeout bounds each provider call. A category that exceeds the
// timeout yields an error event and the run moves on.
func WithCategoryTimeout(d time.Duration) Option {
	return func(s *Session) { s.categoryTimeout = d }
}

// New creates a Session backed by the given generator.
func New(gen generator.CategoryGenerator, opts ...Option) *Session {
	s := &Session{
		gen:             gen,
		categoryTimeout: defaultCategoryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the request and returns a channel of events. The channel is
// closed after the terminal event. Unless ctx is cancelled first, the last
// event is always a done event, regardless of how many categories failed.
func (s *Session) Run(ctx context.Context, req *testcase.GenerationRequest) <-chan *stream.Event {
	events := make(chan *stream.Event)
	go func() {
		defer close(events)
		s.run(ctx, req, events)
	}()
	return events
}

func (s *Session) run(ctx context.Context, req *testcase.GenerationRequest, events chan<- *stream.Event) {
	if err := req.Validate(); err != nil {
		s.emit(ctx, events, stream.NewInvalidRequestEvent(err))
		s.emit(ctx, events, stream.NewDoneEvent("Generation failed: invalid request."))
		return
	}

	categories := testcase.Categories(req.AmbiguityAware)
	total := 0
	failed := 0

	for _, category := range categories {
		if ctx.Err() != nil {
			logging.Debug("generation cancelled", "category", string(category))
			return
		}

		if !s.emit(ctx, events, stream.NewProgressEvent(fmt.Sprintf("Generating %s test cases...", category))) {
			return
		}

		cases, err := s.generateCategory(ctx, req, category)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failed++
			logging.Warn("category generation failed", "category", string(category), "error", err)
			if !s.emit(ctx, events, stream.NewErrorEvent(category, err)) {
				return
			}
			continue
		}

		total += len(cases)
		if !s.emit(ctx, events, stream.NewCasesEvent(category, cases)) {
			return
		}
	}

	var msg string
	switch {
	case failed == 0:
		msg = fmt.Sprintf("Generation complete. %d test cases generated.", total)
	case failed == len(categories):
		msg = "Generation complete. All categories failed."
	default:
		msg = fmt.Sprintf("Generation complete. %d test cases generated, %d categories failed.", total, failed)
	}
	s.emit(ctx, events, stream.NewDoneEvent(msg))
}

func (s *Session) generateCategory(ctx context.Context, req *testcase.GenerationRequest, category testcase.Category) ([]testcase.TestCase, error) {
	catCtx, cancel := context.WithTimeout(ctx, s.categoryTimeout)
	defer cancel()

	cases, err := s.gen.GenerateCases(catCtx, req, category)
	if err != nil {
		if catCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("timed out after %s generating %s cases", s.categoryTimeout, category)
		}
		return nil, err
	}
	return cases, nil
}

// emit reports false when ctx ended before the event could be delivered.
func (s *Session) emit(ctx context.Context, events chan<- *stream.Event, ev *stream.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
