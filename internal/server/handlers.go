package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driveflow/driveflow/internal/agent"
	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/instrumentation"
	"github.com/driveflow/driveflow/internal/logging"
	"github.com/driveflow/driveflow/internal/organize"
)

// maxUploadBytes bounds the multipart form kept in memory before spilling
// to temp files.
const maxUploadBytes = 32 << 20

// fetchRunner runs one natural-language request through the agent.
type fetchRunner interface {
	Run(ctx context.Context, query string) (agent.Outcome, error)
}

// organizeRunner files one uploaded PDF into a Drive folder.
type organizeRunner interface {
	Organize(ctx context.Context, localPath string) (organize.Outcome, error)
}

// Handlers carries the HTTP handlers for the public API surface.
type Handlers struct {
	fetcher     fetchRunner
	organizer   organizeRunner
	uploadDir   string
	downloadDir string
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
}

// NewHandlers builds the API handlers. metrics may be nil.
func NewHandlers(fetcher fetchRunner, organizer organizeRunner, uploadDir, downloadDir string, metrics *instrumentation.Metrics, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		fetcher:     fetcher,
		organizer:   organizer,
		uploadDir:   uploadDir,
		downloadDir: downloadDir,
		metrics:     metrics,
		logger:      logger,
	}
}

// Routes registers the public API endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/organizer", h.handleOrganizer)
	r.Post("/fetcher", h.handleFetcher)
	r.Get("/download/{filename}", h.handleDownload)
}

// errorResponse is the uniform failure envelope. Failures never surface as
// protocol-level errors; every outcome is a 200-level response with a
// status field.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type organizerResponse struct {
	Status     string `json:"status"`
	FolderName string `json:"folder_name,omitempty"`
	FolderID   string `json:"folder_id,omitempty"`
	FileID     string `json:"file_id,omitempty"`
}

type fetcherRequest struct {
	Query string `json:"query"`
}

type fetcherResponse struct {
	Result            string `json:"result"`
	DownloadAvailable bool   `json:"download_available"`
	Filename          string `json:"filename,omitempty"`
}

func (h *Handlers) handleOrganizer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, fmt.Errorf("parsing multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		h.writeError(w, r, fmt.Errorf("invalid upload filename %q", header.Filename))
		return
	}

	localPath, err := h.saveUpload(file, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.organizer.Organize(r.Context(), localPath)
	if errors.Is(err, errs.ErrClassification) {
		h.metrics.RecordClassifierDecision(r.Context(), instrumentation.StatusError)
	} else if err == nil {
		h.metrics.RecordClassifierDecision(r.Context(), instrumentation.StatusSuccess)
	}
	h.recordOperation(r.Context(), "organizer", err, start)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, organizerResponse{
		Status:     "completed",
		FolderName: outcome.FolderName,
		FolderID:   outcome.FolderID,
		FileID:     outcome.FileID,
	})
}

func (h *Handlers) handleFetcher(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req fetcherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("decoding request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, r, fmt.Errorf("query must not be empty"))
		return
	}

	outcome, err := h.fetcher.Run(r.Context(), req.Query)
	h.recordOperation(r.Context(), "fetcher", err, start)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := fetcherResponse{
		Result:            outcome.Reply,
		DownloadAvailable: outcome.Downloaded,
		Filename:          outcome.Filename,
	}
	if outcome.Downloaded && outcome.Filename == "" {
		// The structured outcome is authoritative for whether a download
		// happened; the name can still be recovered from the newest file.
		resp.Filename = h.latestDownload()
	}
	if !outcome.Downloaded {
		resp.Filename = ""
	}
	h.writeJSON(w, resp)
}

func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	filename := chi.URLParam(r, "filename")

	// Reject anything that is not a bare file name so the handler can
	// never be walked out of the download directory.
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		h.recordOperation(r.Context(), "download", errs.ErrNotFound, start)
		h.writeJSON(w, map[string]string{"error": "File not found"})
		return
	}

	path := filepath.Join(h.downloadDir, filename)
	f, err := os.Open(path)
	if err != nil {
		h.recordOperation(r.Context(), "download", errs.ErrNotFound, start)
		h.writeJSON(w, map[string]string{"error": "File not found"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.recordOperation(r.Context(), "download", errs.ErrNotFound, start)
		h.writeJSON(w, map[string]string{"error": "File not found"})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
	h.recordOperation(r.Context(), "download", nil, start)
}

// saveUpload writes the uploaded file into the upload directory, creating
// it on demand, and returns the local path.
func (h *Handlers) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	localPath := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}
	return localPath, nil
}

// latestDownload returns the most recently modified file in the download
// directory, or empty when there is none.
func (h *Handlers) latestDownload() string {
	entries, err := os.ReadDir(h.downloadDir)
	if err != nil {
		return ""
	}

	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = entry.Name()
			latestMod = info.ModTime()
		}
	}
	return latest
}

func (h *Handlers) recordOperation(ctx context.Context, operation string, err error, start time.Time) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	h.metrics.RecordOperation(ctx, operation, status, time.Since(start))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encoding response", logging.Err(err))
	}
}

// writeError converts any failure into the uniform error envelope.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logging.Err(err))
	h.writeJSON(w, errorResponse{Status: "error", Message: err.Error()})
}
