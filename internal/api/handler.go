// Package api exposes the collector over HTTP.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"NetSentinel/internal/broadcast"
	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxIngestBody = 10 << 20

// Ingester accepts a raw ingestion body.
type Ingester interface {
	Ingest(body []byte) (int, error)
}

// Trainer controls baseline collection.
type Trainer interface {
	StartTraining() error
	ModelStatus() model.ModelStatus
}

// Handler holds the dependencies for API handlers.
type Handler struct {
	ingester   Ingester
	trainer    Trainer
	store      model.Store
	group      *broadcast.Group
	listLimit  int
	topSources int
}

// NewHandler creates a handler. group may be nil to disable websocket observers.
func NewHandler(ingester Ingester, trainer Trainer, store model.Store, group *broadcast.Group, listLimit, topSources int) *Handler {
	return &Handler{
		ingester:   ingester,
		trainer:    trainer,
		store:      store,
		group:      group,
		listLimit:  listLimit,
		topSources: topSources,
	}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/ingest", h.ingest).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/traffic", h.traffic).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts", h.alerts).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", h.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/model/train", h.train).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/model/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	if h.group != nil {
		r.Handle("/ws/traffic", broadcast.Handler(h.group))
	}
	return r
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	n, err := h.ingester.Ingest(body)
	switch {
	case errors.Is(err, model.ErrValidation):
		logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ingest rejected")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "collector busy, retry later")
	case err != nil:
		logging.Error().Err(err).Msg("ingest failed")
		writeError(w, http.StatusInternalServerError, "ingest failed")
	default:
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "accepted", "count": n})
	}
}

func (h *Handler) traffic(w http.ResponseWriter, r *http.Request) {
	q := model.TrafficQuery{
		SourceIP: r.URL.Query().Get("source_ip"),
		Limit:    h.listLimit,
	}
	if p := r.URL.Query().Get("protocol"); p != "" {
		proto, err := model.ParseProtocol(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Protocol = proto
	}
	limit, ok := parseLimit(w, r, q.Limit)
	if !ok {
		return
	}
	q.Limit = limit

	records, err := h.store.QueryTraffic(r.Context(), q)
	if err != nil {
		logging.Error().Err(err).Msg("traffic query failed")
		writeError(w, http.StatusInternalServerError, "failed to query traffic")
		return
	}
	if records == nil {
		records = []model.TrafficRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, h.listLimit)
	if !ok {
		return
	}
	alerts, err := h.store.QueryAlerts(r.Context(), model.AlertQuery{Limit: limit})
	if err != nil {
		logging.Error().Err(err).Msg("alert query failed")
		writeError(w, http.StatusInternalServerError, "failed to query alerts")
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context(), h.topSources)
	if err != nil {
		logging.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	if stats.ProtocolBreakdown == nil {
		stats.ProtocolBreakdown = []model.Count{}
	}
	if stats.TopSources == nil {
		stats.TopSources = []model.Count{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) train(w http.ResponseWriter, r *http.Request) {
	if err := h.trainer.StartTraining(); err != nil {
		if errors.Is(err, model.ErrAlreadyCollecting) {
			writeError(w, http.StatusConflict, "Training already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Training started. Collecting baseline packets."})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.trainer.ModelStatus())
}

func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
