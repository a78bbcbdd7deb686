package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/internal/audiofile"
	"github.com/cwbudde/algo-autotune/internal/jobs"
)

// multipartMemory is the part of an upload kept in memory while parsing.
const multipartMemory = 32 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// UploadResponse is returned for a processed upload.
type UploadResponse struct {
	Message       string          `json:"message"`
	FileID        string          `json:"file_id"`
	OriginalName  string          `json:"original_name"`
	ProcessedName string          `json:"processed_name"`
	StrengthUsed  float64         `json:"strength_used"`
	ScaleType     string          `json:"scale_type"`
	RootNote      string          `json:"root_note"`
	Report        autotune.Report `json:"report"`
}

// StatusResponse describes the running service.
type StatusResponse struct {
	Status   string   `json:"status"`
	Features []string `json:"features"`
	Scales   []string `json:"scales"`
	Notes    []string `json:"notes"`
	Formats  []string `json:"formats"`
}

// JobsResponse lists recent jobs.
type JobsResponse struct {
	Jobs  []jobs.Job `json:"jobs"`
	Count int        `json:"count"`
}

// handleUpload handles POST /upload (multipart file upload).
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadMB<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d MB", s.config.MaxUploadMB))
			return
		}
		s.respondError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "No selected file")
		return
	}

	params, err := parseParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.service.Submit(r.Context(), jobs.Upload{
		Name:   header.Filename,
		Body:   file,
		Params: params,
	})
	switch {
	case errors.Is(err, audiofile.ErrUnsupportedFormat):
		s.respondError(w, http.StatusBadRequest, "Invalid file type")
		return
	case err != nil && jobs.IsInputError(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.ErrorContext(r.Context(), "upload failed", "file", header.Filename, "err", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process audio with autotune")
		return
	}

	s.respondJSON(w, http.StatusOK, UploadResponse{
		Message:       "File processed successfully with autotune",
		FileID:        res.Job.ID,
		OriginalName:  res.Job.OriginalName,
		ProcessedName: processedName(res.Job.OriginalName),
		StrengthUsed:  res.Job.Strength,
		ScaleType:     res.Job.ScaleType,
		RootNote:      res.Job.RootNote,
		Report:        res.Report,
	})
}

// parseParams reads strength, scale_type and root_note. A missing strength
// selects the default; an unknown scale type falls back to major later on.
func parseParams(r *http.Request) (autotune.Params, error) {
	p := autotune.Params{
		Strength:  math.NaN(),
		ScaleType: strings.TrimSpace(r.FormValue("scale_type")),
		RootNote:  strings.TrimSpace(r.FormValue("root_note")),
	}

	if v := strings.TrimSpace(r.FormValue("strength")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsInf(f, 0) {
			return autotune.Params{}, fmt.Errorf("invalid strength %q", v)
		}
		p.Strength = f
	}

	if _, err := autotune.ParseNote(p.RootNote); err != nil {
		return autotune.Params{}, fmt.Errorf("invalid root_note %q", p.RootNote)
	}

	return p, nil
}

func processedName(original string) string {
	return strings.TrimSuffix(original, filepath.Ext(original)) + "_autotuned.wav"
}

// handleDownload handles GET /download/{id}.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := s.service.Result(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "download lookup failed", "job_id", id, "err", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load file")
		return
	}

	f, err := os.Open(job.OutputPath)
	if err != nil {
		s.log.ErrorContext(r.Context(), "opening result", "job_id", id, "err", err)
		s.respondError(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to load file")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ProcessedName()))
	http.ServeContent(w, r, job.ProcessedName(), info.ModTime(), f)
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	scales := make([]string, 0, 3)
	for _, t := range autotune.ScaleTypes() {
		scales = append(scales, t.String())
	}

	s.respondJSON(w, http.StatusOK, StatusResponse{
		Status: "AutoTune server is running",
		Features: []string{
			"pitch detection",
			"scale snapping",
			"adjustable strength",
			"wav, mp3 and flac input",
		},
		Scales:  scales,
		Notes:   autotune.NoteNames[:],
		Formats: audiofile.Extensions(),
	})
}

// handleJobs handles GET /jobs?limit=N.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := jobs.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	list, err := s.service.List(r.Context(), limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "listing jobs", "err", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	s.respondJSON(w, http.StatusOK, JobsResponse{Jobs: list, Count: len(list)})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "err", err)
	}
}

// respondError sends an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
