package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"vantera/models"
	"vantera/runlog"
	"vantera/services"
)

const (
	maxUploadSize = 20 << 20
	maxJSONBody   = 1 << 20

	simulatedSource = "TEST"
	simulatedScope  = "simulated"
)

type TriggerRunRequest struct {
	Source string `json:"source"`
	Scope  string `json:"scope"`
	Region string `json:"region"`
	Market string `json:"market"`
}

type MediaRequest struct {
	ListingID string         `json:"listingId"`
	Source    string         `json:"source"`
	Photos    []models.Photo `json:"photos"`
}

// ListRuns handles GET /api/ops/import-runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.deps.Runs.List(r.Context(), queryInt(r, "limit"))
	if err != nil {
		log.Printf("HTTP: list runs failed: %v", err)
		respondError(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.ImportRun{}
	}
	respondJSON(w, map[string]any{"ok": true, "runs": runs}, http.StatusOK)
}

// TriggerRun handles POST /api/ops/import-runs. The body is optional; the run
// is returned RUNNING and completes in the background.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = simulatedSource
	}
	if req.Scope == "" {
		req.Scope = simulatedScope
	}

	run, err := h.deps.Simulator.Trigger(r.Context(), models.ImportRun{
		Source: req.Source,
		Scope:  req.Scope,
		Region: req.Region,
		Market: req.Market,
	})
	if err != nil {
		if errors.Is(err, runlog.ErrSimulatorClosed) {
			respondError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		log.Printf("HTTP: trigger run failed: %v", err)
		respondError(w, "Failed to create run", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"ok": true, "run": run}, http.StatusOK)
}

// IngestMedia handles POST /api/ops/media
func (h *Handler) IngestMedia(w http.ResponseWriter, r *http.Request) {
	var req MediaRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		respondError(w, "listingId must be a UUID", http.StatusBadRequest)
		return
	}
	source := strings.ToUpper(strings.TrimSpace(req.Source))
	if source == "" {
		respondError(w, "source is required", http.StatusBadRequest)
		return
	}

	inserted, err := h.deps.Media.Ingest(r.Context(), listingID, source, req.Photos)
	if err != nil {
		h.mediaFailed(w, err)
		return
	}
	respondJSON(w, map[string]any{"ok": true, "inserted": inserted}, http.StatusOK)
}

// UploadMedia handles POST /api/ops/media/upload (multipart: listingId, alt, file)
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if h.deps.Uploads == nil {
		respondError(w, "object storage is not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	listingID, err := uuid.Parse(r.FormValue("listingId"))
	if err != nil {
		respondError(w, "listingId must be a UUID", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	res, err := h.deps.Uploads.Upload(r.Context(), listingID, header.Filename, r.FormValue("alt"), data)
	if err != nil {
		h.mediaFailed(w, err)
		return
	}
	respondJSON(w, map[string]any{
		"ok":       true,
		"url":      res.URL,
		"key":      res.Key,
		"inserted": res.Inserted,
		"width":    res.Width,
		"height":   res.Height,
	}, http.StatusOK)
}

func (h *Handler) mediaFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrListingNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrUnsupportedMedia):
		respondError(w, err.Error(), http.StatusUnsupportedMediaType)
	default:
		log.Printf("HTTP: media ingest failed: %v", err)
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}
