package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// extractRequest is the body of POST /content/extract.
type extractRequest struct {
	FileID         string `json:"file_id"`
	ForceReextract bool   `json:"force_reextract"`
}

// taskResponse is the JSON view of an extraction task.
type taskResponse struct {
	TaskID       string     `json:"task_id"`
	FileID       string     `json:"file_id"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	NotBefore    *time.Time `json:"not_before,omitempty"`
	Superseded   bool       `json:"superseded,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toTaskResponse(task *domain.ExtractionTask) taskResponse {
	resp := taskResponse{
		TaskID:       task.ID,
		FileID:       task.FileID,
		Status:       string(task.Status),
		RetryCount:   task.RetryCount,
		MaxRetries:   task.MaxRetries,
		ErrorMessage: task.ErrorMessage,
		Superseded:   task.Superseded,
		StartedAt:    task.StartedAt,
		CompletedAt:  task.CompletedAt,
		CreatedAt:    task.CreatedAt,
	}
	if !task.NotBefore.IsZero() {
		notBefore := task.NotBefore
		resp.NotBefore = &notBefore
	}
	return resp
}

// contentResponse is the JSON view of an extracted content record.
type contentResponse struct {
	FileID       string         `json:"file_id"`
	Content      *string        `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toContentResponse(content *domain.ExtractedContent) contentResponse {
	return contentResponse{
		FileID:       content.FileID,
		Content:      content.Content,
		Metadata:     content.Metadata,
		Status:       string(content.Status),
		ErrorMessage: content.ErrorMessage,
		CreatedAt:    content.CreatedAt,
		UpdatedAt:    content.UpdatedAt,
	}
}

// searchRequest is the body of POST /content/search.
type searchRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Filters *searchFilters `json:"filters"`
}

type searchFilters struct {
	MIMETypes []string `json:"mime_types"`
}

// highlightResponse is one matched term span within a snippet.
type highlightResponse struct {
	Term  string `json:"term"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// searchHitResponse is one ranked search result.
type searchHitResponse struct {
	FileID     string              `json:"file_id"`
	FileName   string              `json:"file_name"`
	Snippet    string              `json:"snippet"`
	Score      float64             `json:"score"`
	Highlights []highlightResponse `json:"highlights"`
	IndexedAt  time.Time           `json:"indexed_at"`
}

// searchResponse is the paginated search envelope.
type searchResponse struct {
	Results []searchHitResponse `json:"results"`
	Total   int                 `json:"total"`
	Query   string              `json:"query"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

func toSearchResponse(page *domain.SearchPage) searchResponse {
	results := make([]searchHitResponse, 0, len(page.Results))
	for _, r := range page.Results {
		highlights := make([]highlightResponse, 0, len(r.Highlights))
		for _, h := range r.Highlights {
			highlights = append(highlights, highlightResponse{Term: h.Term, Start: h.Start, End: h.End})
		}
		results = append(results, searchHitResponse{
			FileID:     r.FileID,
			FileName:   r.FileName,
			Snippet:    r.Snippet,
			Score:      r.Score,
			Highlights: highlights,
			IndexedAt:  r.IndexedAt,
		})
	}
	return searchResponse{
		Results: results,
		Total:   page.Total,
		Query:   page.Query,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
}

// processingStatusResponse is one row of GET /content/processing-status.
type processingStatusResponse struct {
	FileID     string  `json:"file_id"`
	FileName   string  `json:"file_name"`
	Status     string  `json:"status"`
	RetryCount int     `json:"retry_count"`
	Error      *string `json:"error,omitempty"`
}

// statsResponse is the body of GET /content/monitoring/stats.
type statsResponse struct {
	Tasks            map[string]int `json:"tasks"`
	Content          map[string]int `json:"content"`
	IndexedDocuments int            `json:"indexed_documents"`
	AverageAttempts  float64        `json:"average_attempts"`
	BreakerState     string         `json:"breaker_state"`
}

// handleExtract triggers extraction for a registered file.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput))
		return
	}
	if req.FileID == "" {
		writeError(w, fmt.Errorf("%w: file_id is required", domain.ErrInvalidInput))
		return
	}

	task, err := s.extraction.Trigger(r.Context(), req.FileID, req.ForceReextract)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// handleGetContent returns the extracted content for a file.
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.extraction.GetContent(r.Context(), r.PathValue("file_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentResponse(content))
}

// handleDeleteContent removes extracted content and its index entry.
func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := s.extraction.DeleteContent(r.Context(), r.PathValue("file_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetTask returns a single task.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.extraction.GetTask(r.Context(), r.PathValue("task_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// handleListTasks returns tasks filtered by query parameters.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := driven.TaskFilter{
		FileID: q.Get("file_id"),
		Status: domain.ExtractionStatus(q.Get("status")),
		Limit:  parseIntParam(q.Get("limit")),
		Offset: parseIntParam(q.Get("offset")),
	}

	tasks, err := s.extraction.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, toTaskResponse(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearchPost executes a search from a JSON body.
func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput))
		return
	}

	opts := domain.SearchOptions{Limit: req.Limit, Offset: req.Offset}
	if req.Filters != nil {
		opts.MIMETypes = req.Filters.MIMETypes
	}
	s.runSearch(w, r, req.Query, opts)
}

// handleSearchGet executes a search from query parameters.
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.SearchOptions{
		Limit:  parseIntParam(q.Get("limit")),
		Offset: parseIntParam(q.Get("offset")),
	}
	if types, ok := q["mime_type"]; ok {
		opts.MIMETypes = types
	}
	s.runSearch(w, r, q.Get("q"), opts)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query string, opts domain.SearchOptions) {
	page, err := s.search.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(page))
}

// handleProcessingStatus returns one row per registered file.
func (s *Server) handleProcessingStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.status.GetProcessingStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]processingStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		resp = append(resp, processingStatusResponse{
			FileID:     st.FileID,
			FileName:   st.FileName,
			Status:     string(st.Status),
			RetryCount: st.RetryCount,
			Error:      st.Error,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRetry forces re-extraction for a file, superseding any active
// task.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	task, err := s.extraction.Trigger(r.Context(), r.PathValue("file_id"), true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// handleStats returns aggregate pipeline counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.status.GetStatistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := statsResponse{
		Tasks:            statusCounts(stats.TaskCounts),
		Content:          statusCounts(stats.ContentCounts),
		IndexedDocuments: stats.IndexedDocuments,
		AverageAttempts:  stats.AverageAttempts,
		BreakerState:     stats.BreakerState,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth reports service and extractor health. The service is
// healthy whenever it can answer; extractor reachability is advisory.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "extractor": "unknown"}
	if s.extractor != nil {
		resp["breaker"] = s.extractor.State()
		if err := s.extractor.Ping(r.Context()); err != nil {
			resp["extractor"] = "down"
		} else {
			resp["extractor"] = "up"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusCounts converts a status-keyed map for JSON encoding.
func statusCounts(counts map[domain.ExtractionStatus]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out
}

// parseIntParam parses a non-negative integer query parameter.
// Absent or malformed values yield zero.
func parseIntParam(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
