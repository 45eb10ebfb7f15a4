package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testgenius/testgenius/internal/testcase"
)

func TestEventConstructors(t *testing.T) {
	t.Parallel()

	t.Run("progress", func(t *testing.T) {
		t.Parallel()
		e := NewProgressEvent("Generating Positive test cases...")
		assert.Equal(t, EventTypeProgress, e.Type)
		assert.Equal(t, "Generating Positive test cases...", e.Progress)
		assert.Equal(t, SchemaVersion, e.Version)
	})

	t.Run("cases", func(t *testing.T) {
		t.Parallel()
		cases := []testcase.TestCase{{ID: "TC-POS-1", Title: "t"}, {ID: "TC-POS-2", Title: "u"}}
		e := NewCasesEvent(testcase.CategoryPositive, cases)
		assert.Equal(t, EventTypeCases, e.Type)
		assert.Equal(t, "Positive", e.CaseType)
		assert.Len(t, e.Cases, 2)
		assert.Equal(t, "Generated 2 Positive test cases", e.Progress)
	})

	t.Run("empty cases still carries progress", func(t *testing.T) {
		t.Parallel()
		e := NewCasesEvent(testcase.CategoryEdgeCase, []testcase.TestCase{})
		assert.Equal(t, "Generated 0 Edge Case test cases", e.Progress)
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		e := NewErrorEvent(testcase.CategoryNegative, errors.New("quota exceeded"))
		assert.Equal(t, EventTypeError, e.Type)
		assert.Equal(t, "Negative", e.CaseType)
		assert.Equal(t, "quota exceeded", e.Error)
	})

	t.Run("done", func(t *testing.T) {
		t.Parallel()
		e := NewDoneEvent("All test cases generated.")
		assert.Equal(t, EventTypeDone, e.Type)
		assert.Equal(t, "All test cases generated.", e.Message)
	})
}

func TestUnmarshalEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  string
		wantType EventType
		wantCat  string
		wantErr  bool
	}{
		{
			name:     "tagged progress",
			payload:  `{"v":1,"type":"progress","progress":"working"}`,
			wantType: EventTypeProgress,
		},
		{
			name:     "tagged cases",
			payload:  `{"v":1,"type":"cases","case_type":"Positive","cases":[{"title":"t","priority":"High","description":"1. x","expectedResult":"y"}]}`,
			wantType: EventTypeCases,
			wantCat:  "Positive",
		},
		{
			name:     "tagged error",
			payload:  `{"type":"error","case_type":"Data Flow","error":"boom","message":"failed"}`,
			wantType: EventTypeError,
			wantCat:  "Data Flow",
		},
		{
			name:     "tagged done",
			payload:  `{"type":"done","message":"All test cases generated."}`,
			wantType: EventTypeDone,
		},
		{
			name:     "legacy bare progress",
			payload:  `{"progress":"still working"}`,
			wantType: EventTypeProgress,
		},
		{
			name:     "legacy typeless cases",
			payload:  `{"cases":[],"progress":"Generated 0 Positive cases."}`,
			wantType: EventTypeCases,
		},
		{
			name:     "legacy category-as-type",
			payload:  `{"type":"Edge Case","cases":[{"title":"t","priority":"Low","description":"s","expectedResult":"r"}],"progress":"Generated 1 Edge Case cases."}`,
			wantType: EventTypeCases,
			wantCat:  "Edge Case",
		},
		{
			name:    "unrecognized shape",
			payload: `{"type":"mystery"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `[[[`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event, err := UnmarshalEvent([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, event.Type)
			if tt.wantCat != "" {
				assert.Equal(t, tt.wantCat, event.CaseType)
			}
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	t.Parallel()

	original := NewCasesEvent(testcase.CategoryDataFlow, []testcase.TestCase{
		{ID: "TC-DF-1", Title: "data persists", Priority: "Medium",
			Description: testcase.StepList{"1. Save.", "2. Reload."}, ExpectedResult: "Data intact."},
	})

	data, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}
