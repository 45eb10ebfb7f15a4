package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/testgenius/testgenius/internal/generator"
	"github.com/testgenius/testgenius/internal/logging"
	"github.com/testgenius/testgenius/internal/session"
	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
	"github.com/testgenius/testgenius/internal/upload"
)

// withCORS answers preflights and stamps CORS headers for the extension
// origins. Azure DevOps hosts are always allowed; extra origins come from
// config.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "dev.azure.com" || strings.HasSuffix(host, ".visualstudio.com") {
		return true
	}
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.generators.Names(),
	})
}

// handleGenerate runs one generation session and streams its events as SSE.
// POST carries the request as the JSON body; GET carries it URL-encoded in
// the payload query parameter, which older extension builds use because
// EventSource cannot POST.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var genReq testcase.GenerationRequest

	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&genReq); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	case http.MethodGet:
		payload := r.URL.Query().Get("payload")
		if payload == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("missing payload parameter"))
			return
		}
		if err := json.Unmarshal([]byte(payload), &genReq); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := genReq.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	gen, err := s.generators.Get(genReq.AIProvider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tell nginx-style proxies not to buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sessionID := uuid.NewString()
	logging.Info("generation started", "session", sessionID, "provider", gen.Name(), "story", genReq.StoryTitle)
	defer logging.Info("generation finished", "session", sessionID)

	for ev := range session.New(gen).Run(r.Context(), &genReq) {
		data, err := ev.Marshal()
		if err != nil {
			logging.Error("failed to marshal event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the session notices via r.Context().
			return
		}
		flusher.Flush()
	}
}

// handleUpload runs the upload transaction for a reviewed batch. Titles are
// finalized and deduplicated here, before the transaction sees them.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var upReq stream.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&upReq); err != nil {
		writeJSON(w, http.StatusBadRequest, &stream.UploadResponse{Step: "validate", Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	client := s.azureClient(bearerToken(r))
	tx, err := upload.NewTransaction(client, upReq.TestPlanID, upReq.TestSuiteID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &stream.UploadResponse{Step: "validate", Error: err.Error()})
		return
	}

	cases := testcase.PrepareForUpload(upReq.TestCases)
	res := tx.Run(r.Context(), cases)

	switch {
	case res.FailedErr != nil:
		status := http.StatusInternalServerError
		if testcase.IsValidationError(res.FailedErr) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, &stream.UploadResponse{
			Step:       "create",
			Error:      res.FailedErr.Error(),
			Count:      len(res.CreatedIDs),
			CreatedIDs: res.CreatedIDs,
		})
	case res.LinkErr != nil:
		writeJSON(w, http.StatusInternalServerError, &stream.UploadResponse{
			Step:       "link",
			Error:      res.LinkErr.Error(),
			Count:      len(res.CreatedIDs),
			CreatedIDs: res.CreatedIDs,
		})
	default:
		writeJSON(w, http.StatusOK, &stream.UploadResponse{
			Message:    fmt.Sprintf("Successfully uploaded %d test cases.", len(res.CreatedIDs)),
			Count:      len(res.CreatedIDs),
			CreatedIDs: res.CreatedIDs,
		})
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var anReq stream.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&anReq); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(anReq.StoryTitle) == "" {
		writeError(w, http.StatusBadRequest, &testcase.ValidationError{Field: "story_title", Message: "required field is empty"})
		return
	}

	gen, err := s.generators.Get(anReq.AIProvider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	analyzer, ok := gen.(generator.Analyzer)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("provider %q does not support analysis", gen.Name()))
		return
	}

	analysis, err := generator.Analyze(r.Context(), analyzer, generator.AnalysisInput{
		StoryTitle:         anReq.StoryTitle,
		StoryDescription:   anReq.StoryDescription,
		AcceptanceCriteria: anReq.AcceptanceCriteria,
		RelatedTestCases:   anReq.RelatedTestCases,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, &stream.AnalyzeResponse{Analysis: analysis})
}

func (s *Server) handleFetchStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var fetchReq stream.FetchStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&fetchReq); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if fetchReq.StoryID <= 0 {
		writeError(w, http.StatusBadRequest, &testcase.ValidationError{Field: "story_id", Message: "must be a positive integer"})
		return
	}

	story, err := s.azureClient(bearerToken(r)).GetStory(r.Context(), fetchReq.StoryID)
	if err != nil {
		status := http.StatusBadGateway
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, prefix) {
		return strings.TrimPrefix(auth, prefix)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
