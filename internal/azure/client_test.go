package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testgenius/testgenius/internal/testcase"
)

func TestCreateTestCase(t *testing.T) {
	t.Parallel()

	var gotPath, gotContentType, gotAuth string
	var gotOps []patchOp

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOps))

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(workItemResponse{ID: 4321})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/myorg", "My Project", WithPAT("secret-pat"))
	id, err := c.CreateTestCase(context.Background(), testcase.TestCase{
		Title:          "Verify that login works",
		Priority:       "High",
		Description:    testcase.StepList{"Open login page", "Submit credentials"},
		ExpectedResult: "Dashboard shown",
	})
	require.NoError(t, err)
	assert.Equal(t, 4321, id)

	assert.Equal(t, "/myorg/My Project/_apis/wit/workitems/$Test Case", gotPath)
	assert.Equal(t, "application/json-patch+json", gotContentType)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret-pat"))
	assert.Equal(t, wantAuth, gotAuth)

	require.Len(t, gotOps, 3)
	byPath := map[string]any{}
	for _, op := range gotOps {
		assert.Equal(t, "add", op.Op)
		byPath[op.Path] = op.Value
	}
	assert.Equal(t, "Verify that login works", byPath["/fields/System.Title"])
	assert.Equal(t, float64(2), byPath["/fields/Microsoft.VSTS.Common.Priority"])
	steps, ok := byPath["/fields/Microsoft.VSTS.TCM.Steps"].(string)
	require.True(t, ok)
	assert.Contains(t, steps, "Open login page")
	assert.Contains(t, steps, "Dashboard shown")
}

func TestCreateTestCaseOmitsStepsWhenEmpty(t *testing.T) {
	t.Parallel()

	var gotOps []patchOp
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOps))
		json.NewEncoder(w).Encode(workItemResponse{ID: 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj", WithPAT("pat"))
	_, err := c.CreateTestCase(context.Background(), testcase.TestCase{
		Title:    "Verify that a bare case still uploads",
		Priority: "Low",
	})
	require.NoError(t, err)

	require.Len(t, gotOps, 2)
	for _, op := range gotOps {
		assert.NotEqual(t, "/fields/Microsoft.VSTS.TCM.Steps", op.Path)
	}
}

func TestCreateTestCaseBearerAuth(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(workItemResponse{ID: 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj", WithBearerToken("session-token"))
	_, err := c.CreateTestCase(context.Background(), testcase.TestCase{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

func TestCreateTestCaseErrorIncludesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "TF401027: insufficient permissions"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj", WithPAT("pat"))
	_, err := c.CreateTestCase(context.Background(), testcase.TestCase{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "TF401027")
}

func TestAddToSuite(t *testing.T) {
	t.Parallel()

	var gotPath, gotVersion string
	var gotEntries []suiteEntry

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEntries))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"count": 3}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj", WithPAT("pat"))
	err := c.AddToSuite(context.Background(), 77, 88, []int{101, 102, 103})
	require.NoError(t, err)

	assert.Equal(t, "/org/proj/_apis/testplan/Plans/77/Suites/88/TestCase", gotPath)
	assert.Equal(t, apiVersion, gotVersion)
	require.Len(t, gotEntries, 3)
	assert.Equal(t, 101, gotEntries[0].WorkItem.ID)
	assert.Equal(t, 103, gotEntries[2].WorkItem.ID)
}

func TestAddToSuiteEmptyIsNoop(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj")
	require.NoError(t, c.AddToSuite(context.Background(), 1, 2, nil))
	assert.False(t, called)
}

func TestGetStory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/org/proj/_apis/wit/workitems/1234", r.URL.Path)
		assert.Equal(t, "All", r.URL.Query().Get("$expand"))

		json.NewEncoder(w).Encode(workItemResponse{
			ID: 1234,
			Fields: map[string]any{
				"System.Title":       "Password reset",
				"System.Description": "<div>As a user I want to <b>reset</b> my password.</div>",
				"Microsoft.VSTS.Common.AcceptanceCriteria": "<ul><li>Link expires in 1h</li></ul>",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj", WithPAT("pat"))
	story, err := c.GetStory(context.Background(), 1234)
	require.NoError(t, err)

	assert.Equal(t, 1234, story.ID)
	assert.Equal(t, "Password reset", story.Title)
	assert.Equal(t, "As a user I want to reset my password.", story.Description)
	assert.Contains(t, story.AcceptanceCriteria, "Link expires in 1h")
	assert.NotContains(t, story.AcceptanceCriteria, "<li>")
}

func TestGetStoryNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/org", "proj")
	_, err := c.GetStory(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
