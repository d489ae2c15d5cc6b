package api

import (
	"context"
	"net/http"

	"github.com/okian/logbook/internal/domain/model"
)

// StatsDependencies defines the dashboard statistics source.
type StatsDependencies interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps StatsDependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Stats(r.Context())
	if err != nil {
		fail(r.Context(), w, Wrap("api.stats", err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
