package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
)

// runCommand executes the root command with the given args and returns the
// combined output. Commands share package-level flag state, so tests run
// sequentially.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// fakeBackend serves the endpoints the client commands hit.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/generate_test_cases", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []*stream.Event{
			stream.NewProgressEvent("Generating Positive test cases..."),
			stream.NewCasesEvent(testcase.CategoryPositive, []testcase.TestCase{{
				ID: "TC-POS-1", Title: "Verify that login works", Priority: "High",
				Description: testcase.StepList{"Open login page"}, ExpectedResult: "Dashboard shown",
			}}),
			stream.NewErrorEvent(testcase.CategoryNegative, fmt.Errorf("model overloaded")),
			stream.NewDoneEvent("Generation complete. 1 test cases generated, 1 categories failed."),
		}
		for _, ev := range events {
			data, err := ev.Marshal()
			require.NoError(t, err)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	})

	mux.HandleFunc("/upload_test_cases", func(w http.ResponseWriter, r *http.Request) {
		var req stream.UploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req.TestSuiteID == 999 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(&stream.UploadResponse{
				Step: "create", Error: "TF401027", Count: 1, CreatedIDs: []int{501},
			})
			return
		}
		json.NewEncoder(w).Encode(&stream.UploadResponse{
			Message: fmt.Sprintf("Successfully uploaded %d test cases.", len(req.TestCases)),
			Count:   len(req.TestCases), CreatedIDs: []int{501, 502},
		})
	})

	mux.HandleFunc("/analyze_story", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&stream.AnalyzeResponse{Analysis: "<h3>Review</h3><p>Looks solid.</p>"})
	})

	mux.HandleFunc("/fetch_story", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&testcase.Story{
			ID: 42, Title: "Fetched story", Description: "Fetched description",
			AcceptanceCriteria: "Criteria here",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateCommand(t *testing.T) {
	backend := fakeBackend(t)
	outFile := filepath.Join(t.TempDir(), "cases.json")

	out, err := runCommand(t,
		"generate",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
		"--title", "Login",
		"--description", "As a user I want to log in.",
		"--criteria", "Valid credentials reach the dashboard.",
		"--output", outFile,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Generated 1 Positive test cases")
	assert.Contains(t, out, "Verify that login works")
	assert.Contains(t, out, "model overloaded")
	assert.Contains(t, out, "Generation complete.")
	assert.Contains(t, out, "retry the failed Negative category")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var cases []testcase.TestCase
	require.NoError(t, json.Unmarshal(data, &cases))
	require.Len(t, cases, 1)
	assert.Equal(t, "TC-POS-1", cases[0].ID)
}

func TestGenerateCommandRequiresStory(t *testing.T) {
	backend := fakeBackend(t)

	_, err := runCommand(t,
		"generate",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
		"--title", "", "--description", "",
	)
	require.Error(t, err)
	assert.True(t, testcase.IsValidationError(err))
}

func TestUploadCommand(t *testing.T) {
	backend := fakeBackend(t)

	casesFile := filepath.Join(t.TempDir(), "cases.json")
	cases := []testcase.TestCase{
		{ID: "TC-1", Title: "Verify that one", Priority: "High"},
		{ID: "TC-2", Title: "Verify that two", Priority: "Low"},
	}
	data, err := json.Marshal(cases)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(casesFile, data, 0o644))

	out, err := runCommand(t,
		"upload",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
		"--plan", "7", "--suite", "8",
		"--file", casesFile,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully uploaded 2 test cases.")
	assert.Contains(t, out, "[501 502]")
}

func TestUploadCommandPartialFailure(t *testing.T) {
	backend := fakeBackend(t)

	casesFile := filepath.Join(t.TempDir(), "cases.json")
	data, err := json.Marshal([]testcase.TestCase{{ID: "TC-1", Title: "Verify that one"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(casesFile, data, 0o644))

	out, err := runCommand(t,
		"upload",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
		"--plan", "7", "--suite", "999",
		"--file", casesFile,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
	assert.Contains(t, out, "created before the failure: [501]")
}

func TestAnalyzeCommand(t *testing.T) {
	backend := fakeBackend(t)

	out, err := runCommand(t,
		"analyze",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
		"--title", "Login",
		"--description", "As a user I want to log in.",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Story review: Login")
	// HTML from the provider is flattened for the terminal.
	assert.Contains(t, out, "Looks solid.")
	assert.NotContains(t, out, "<p>")
}

func TestFetchCommand(t *testing.T) {
	backend := fakeBackend(t)

	out, err := runCommand(t,
		"fetch", "42",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "#42 Fetched story")
	assert.Contains(t, out, "Criteria here")

	out, err = runCommand(t,
		"fetch", "42", "--json",
		"--server", backend.URL,
		"--config-dir", t.TempDir(),
	)
	require.NoError(t, err)
	var story testcase.Story
	start := bytes.IndexByte([]byte(out), '{')
	require.GreaterOrEqual(t, start, 0)
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &story))
	assert.Equal(t, 42, story.ID)

	_, err = runCommand(t, "fetch", "zero", "--server", backend.URL, "--config-dir", t.TempDir())
	require.Error(t, err)
}

func TestConfigSetServer(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "config", "set-server", "https://backend.example.com", "--config-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "https://backend.example.com")

	out, err = runCommand(t, "config", "show", "--config-dir", dir, "--server", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend URL:   https://backend.example.com")
}
