// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/adapters/strava"
	service "github.com/okian/logbook/internal/app"
	"github.com/okian/logbook/internal/domain/gpx"
	"github.com/okian/logbook/internal/domain/ledger"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

// Dependencies required by HTTP handlers. Each handler asks only for the
// slice it uses.
type Dependencies interface {
	AwardDependencies
	ImportDependencies
	ActivityDependencies
	StatsDependencies
	StravaDependencies
	ReportDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	awardsHandler     *AwardsHandler
	importsHandler    *ImportsHandler
	activitiesHandler *ActivitiesHandler
	statsHandler      *StatsHandler
	stravaHandler     *StravaHandler
	reportHandler     *ReportHandler
	healthHandler     *HealthHandler
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxUpload int64
}

// WithMaxUploadBytes caps GPX upload bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUpload = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxUpload: 10 << 20}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		awardsHandler:     NewAwardsHandler(deps),
		importsHandler:    NewImportsHandler(deps, cfg.maxUpload),
		activitiesHandler: NewActivitiesHandler(deps),
		statsHandler:      NewStatsHandler(deps),
		stravaHandler:     NewStravaHandler(deps),
		reportHandler:     NewReportHandler(deps),
		healthHandler:     NewHealthHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)

	mux.HandleFunc("POST /awards/process", MetricsMiddleware(s.awardsHandler.HandleProcess, "awards_process"))
	mux.HandleFunc("GET /awards", MetricsMiddleware(s.awardsHandler.HandleStatus, "awards"))

	mux.HandleFunc("POST /imports/gpx/upload", MetricsMiddleware(s.importsHandler.HandleGPXUpload, "imports_gpx_upload"))
	mux.HandleFunc("POST /imports/strava/activity", MetricsMiddleware(s.importsHandler.HandleStravaActivity, "imports_strava_activity"))
	mux.HandleFunc("GET /imports/{source}", MetricsMiddleware(s.importsHandler.HandleList, "imports"))
	mux.HandleFunc("POST /imports/{source}", MetricsMiddleware(s.importsHandler.HandlePost, "imports"))

	mux.HandleFunc("GET /activities", MetricsMiddleware(s.activitiesHandler.HandleList, "activities"))
	mux.HandleFunc("POST /activities", MetricsMiddleware(s.activitiesHandler.HandleCreate, "activities"))
	mux.HandleFunc("GET /activities/{id}", MetricsMiddleware(s.activitiesHandler.HandleGet, "activity"))
	mux.HandleFunc("PUT /activities/{id}", MetricsMiddleware(s.activitiesHandler.HandleUpdate, "activity"))
	mux.HandleFunc("DELETE /activities/{id}", MetricsMiddleware(s.activitiesHandler.HandleDelete, "activity"))

	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /strava/token", MetricsMiddleware(s.stravaHandler.HandleToken, "strava_token"))
	mux.HandleFunc("POST /strava/refresh", MetricsMiddleware(s.stravaHandler.HandleRefresh, "strava_refresh"))
	mux.HandleFunc("GET /strava/activities", MetricsMiddleware(s.stravaHandler.HandleActivities, "strava_activities"))

	mux.HandleFunc("POST /report", MetricsMiddleware(s.reportHandler.HandleSend, "report"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps a domain error onto a status and error code.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, ledger.ErrUnknownSource),
		errors.Is(err, ledger.ErrInvalidRecord),
		errors.Is(err, gpx.ErrInvalidGPX),
		errors.Is(err, gpx.ErrNoPoints),
		errors.Is(err, strava.ErrMissingInput),
		errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnsupported):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, ledger.ErrActivityMissing),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, strava.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, strava.ErrNotConfigured),
		errors.Is(err, service.ErrStravaDisabled),
		errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}
