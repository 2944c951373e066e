package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/boxflow/internal/parser"
	"github.com/dgallion1/boxflow/internal/pipeline"
	"github.com/dgallion1/boxflow/internal/resultstore"
)

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	tplHeaders := r.MultipartForm.File["templates"]
	if len(tplHeaders) != 1 {
		jsonError(w, "exactly one templates file is required", http.StatusBadRequest)
		return
	}
	templates, status, err := s.readUpload(tplHeaders[0])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if ext := strings.ToLower(filepath.Ext(templates.Filename)); ext != ".html" && ext != ".htm" {
		jsonError(w, fmt.Sprintf("templates must be an HTML document, got %s", ext), http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "at least one content file is required", http.StatusBadRequest)
		return
	}
	var files []pipeline.Upload
	total := int64(len(templates.Data))
	for _, fh := range headers {
		if !parser.IsSupportedExtension(fh.Filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(fh.Filename)), http.StatusBadRequest)
			return
		}
		u, status, err := s.readUpload(fh)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
		total += int64(len(u.Data))
		if total > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		files = append(files, u)
	}

	req := pipeline.Request{
		Pagination:      r.FormValue("pagination"),
		Box:             r.FormValue("box"),
		ContentSelector: r.FormValue("content_selector"),
		PageSelector:    r.FormValue("page_selector"),
	}
	if v := r.FormValue("section_level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 6 {
			jsonError(w, "section_level must be between 0 and 6", http.StatusBadRequest)
			return
		}
		req.SectionLevel = n
	}

	job := pipeline.NewJob(templates, files, req)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/flow/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/flow/%s/result", job.ID),
	})
}

// readUpload reads one multipart file, returning the HTTP status to report on failure.
func (s *Server) readUpload(fh *multipart.FileHeader) (pipeline.Upload, int, error) {
	filename := sanitizeFilename(fh.Filename)
	f, err := fh.Open()
	if err != nil {
		return pipeline.Upload{}, http.StatusBadRequest, fmt.Errorf("failed to open %s", filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Upload{}, http.StatusInternalServerError, fmt.Errorf("failed to read %s", filename)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return pipeline.Upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return pipeline.Upload{Filename: filename, Data: data}, 0, nil
}

func (s *Server) handleFlowStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleFlowResult serves the paginated document, or its metadata as JSON
// with ?format=json. The ETag is the hash of the job's inputs.
func (s *Server) handleFlowResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted:
	case pipeline.StatusFailed:
		jsonError(w, "job failed: "+strings.Join(snap.Progress.Errors, "; "), http.StatusConflict)
		return
	default:
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}

	res, err := s.orchestrator.Result(r.Context(), jobID)
	if errors.Is(err, resultstore.ErrNotFound) {
		jsonError(w, "result expired", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("result lookup failed", "job_id", jobID, "error", err)
		jsonError(w, "result store unavailable", http.StatusServiceUnavailable)
		return
	}

	etag := `"` + snap.ContentHash + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Boxflow-Pages", strconv.Itoa(res.Pages))
	io.WriteString(w, res.HTML)
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.orchestrator.GetJob(jobID) == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if err := s.orchestrator.DeleteJob(r.Context(), jobID); err != nil {
		s.log.Error("delete result failed", "job_id", jobID, "error", err)
		jsonError(w, "failed to delete result: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"job_id": jobID, "deleted": true})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
