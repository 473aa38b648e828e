package server

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vantera/models"
	"vantera/services"
)

//go:embed web/coming-soon.html
var comingSoonPage []byte

type ATTOMIngester interface {
	RunATTOM(ctx context.Context, p services.IngestParams) (*services.IngestResult, error)
}

type RealtorIngester interface {
	Run(ctx context.Context, p services.RealtorParams) (*services.RealtorResult, error)
}

type CityBootstrapper interface {
	Run(ctx context.Context, dryRun bool) (*services.BootstrapResult, error)
}

type RunLister interface {
	List(ctx context.Context, limit int) ([]models.ImportRun, error)
}

type RunTrigger interface {
	Trigger(ctx context.Context, run models.ImportRun) (*models.ImportRun, error)
}

type MediaIngester interface {
	Ingest(ctx context.Context, listingID uuid.UUID, source string, photos []models.Photo) (int, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, listingID uuid.UUID, filename, alt string, data []byte) (*services.UploadResult, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the handler. Uploads is nil when object storage is not configured.
type Deps struct {
	ATTOM     ATTOMIngester
	Realtor   RealtorIngester
	Bootstrap CityBootstrapper
	Runs      RunLister
	Simulator RunTrigger
	Media     MediaIngester
	Uploads   MediaUploader
	Health    Pinger

	OpsToken    string
	Placeholder string
}

// Handler contains all HTTP handlers
type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	if deps.Placeholder == "" {
		deps.Placeholder = "/coming-soon"
	}
	return &Handler{deps: deps}
}

// Routes registers every endpoint. Ops routes sit behind the bearer token.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET "+h.deps.Placeholder, h.ComingSoon)
	mux.HandleFunc("GET /{$}", h.Index)

	mux.HandleFunc("GET /api/ingest/attom", h.IngestATTOM)
	mux.HandleFunc("GET /api/ingest/cities", h.IngestCities)
	mux.HandleFunc("GET /api/ingest/realtor", h.IngestRealtor)

	mux.Handle("GET /api/ops/import-runs", h.requireOps(h.ListRuns))
	mux.Handle("POST /api/ops/import-runs", h.requireOps(h.TriggerRun))
	mux.Handle("POST /api/ops/media", h.requireOps(h.IngestMedia))
	mux.Handle("POST /api/ops/media/upload", h.requireOps(h.UploadMedia))

	return mux
}

func (h *Handler) requireOps(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.deps.OpsToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.deps.OpsToken)) != 1 {
				respondError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(r.Context()); err != nil {
			respondError(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	respondJSON(w, map[string]any{"ok": true}, http.StatusOK)
}

func (h *Handler) ComingSoon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(comingSoonPage)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{"ok": true, "service": "vantera"}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]any{"ok": false, "error": message}, status)
}

// queryBool accepts "1" and the usual strconv spellings.
func queryBool(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	if v == "1" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryFloat(r *http.Request, key string) float64 {
	f, _ := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	return f
}
