package server

import (
	"errors"
	"log"
	"net/http"

	"vantera/services"
)

const defaultCity = "miami"

type ingestResponse struct {
	OK bool `json:"ok"`
	*services.IngestResult
}

type realtorResponse struct {
	OK bool `json:"ok"`
	*services.RealtorResult
}

// IngestATTOM handles GET /api/ingest/attom?city=&radius=&limit=&dryRun=
func (h *Handler) IngestATTOM(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		city = defaultCity
	}

	res, err := h.deps.ATTOM.RunATTOM(r.Context(), services.IngestParams{
		City:   city,
		Radius: queryFloat(r, "radius"),
		Limit:  queryInt(r, "limit"),
		DryRun: queryBool(r, "dryRun"),
	})
	if err != nil {
		h.ingestFailed(w, "ATTOM", err, runID(res))
		return
	}
	respondJSON(w, ingestResponse{OK: true, IngestResult: res}, http.StatusOK)
}

// IngestRealtor handles GET /api/ingest/realtor?city=&limit=&dryRun=
func (h *Handler) IngestRealtor(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		city = defaultCity
	}

	res, err := h.deps.Realtor.Run(r.Context(), services.RealtorParams{
		City:   city,
		Limit:  queryInt(r, "limit"),
		DryRun: queryBool(r, "dryRun"),
	})
	if err != nil {
		var id string
		if res != nil {
			id = res.RunID
		}
		h.ingestFailed(w, "Realtor", err, id)
		return
	}
	respondJSON(w, realtorResponse{OK: true, RealtorResult: res}, http.StatusOK)
}

// IngestCities handles GET /api/ingest/cities?dryRun=
func (h *Handler) IngestCities(w http.ResponseWriter, r *http.Request) {
	dryRun := queryBool(r, "dryRun")

	res, err := h.deps.Bootstrap.Run(r.Context(), dryRun)
	if err != nil {
		log.Printf("HTTP: bootstrap failed: %v", err)
		body := map[string]any{"ok": false, "error": err.Error()}
		if res != nil {
			body["runId"] = res.RunID
			body["errors"] = res.Errors
			body["errorSamples"] = res.ErrorSamples
		}
		respondJSON(w, body, http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"ok":      true,
		"runId":   res.RunID,
		"created": res.Created,
		"dryRun":  res.DryRun,
	}, http.StatusOK)
}

func (h *Handler) ingestFailed(w http.ResponseWriter, source string, err error, runID string) {
	if errors.Is(err, services.ErrUnknownCity) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("HTTP: %s ingest failed (run %s): %v", source, runID, err)
	body := map[string]any{"ok": false, "error": err.Error()}
	if runID != "" {
		body["runId"] = runID
	}
	respondJSON(w, body, http.StatusInternalServerError)
}

func runID(res *services.IngestResult) string {
	if res == nil {
		return ""
	}
	return res.RunID
}
