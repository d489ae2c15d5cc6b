package api

import (
	"context"
	"net/http"

	"github.com/okian/logbook/internal/domain/awards"
	"github.com/okian/logbook/internal/domain/model"
)

// AwardDependencies defines the award operations the handlers use.
type AwardDependencies interface {
	ProcessAwards(ctx context.Context) (int, error)
	AwardStatus(ctx context.Context) (awards.Status, error)
}

// AwardsHandler handles award requests.
type AwardsHandler struct {
	deps AwardDependencies
}

// NewAwardsHandler creates a new awards handler.
func NewAwardsHandler(deps AwardDependencies) *AwardsHandler {
	return &AwardsHandler{deps: deps}
}

type processResponse struct {
	Granted int `json:"granted"`
}

// HandleProcess handles POST /awards/process requests.
func (h *AwardsHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	const op = "api.process_awards"
	n, err := h.deps.ProcessAwards(r.Context())
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Granted: n})
}

// HandleStatus handles GET /awards requests.
func (h *AwardsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.award_status"
	st, err := h.deps.AwardStatus(r.Context())
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	if st.AllAwarded == nil {
		st.AllAwarded = []model.EarnedAward{}
	}
	writeJSON(w, http.StatusOK, st)
}
