package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/logbook/internal/adapters/strava"
)

// StravaDependencies defines the Strava relay operations.
type StravaDependencies interface {
	StravaExchange(ctx context.Context, code string) (strava.Token, error)
	StravaRefresh(ctx context.Context, refreshToken string) (strava.Token, error)
	StravaActivities(ctx context.Context, accessToken string, perPage, page int) ([]strava.Activity, error)
}

// StravaHandler relays OAuth and activity listing calls.
type StravaHandler struct {
	deps StravaDependencies
}

// NewStravaHandler creates a new Strava handler.
func NewStravaHandler(deps StravaDependencies) *StravaHandler {
	return &StravaHandler{deps: deps}
}

type tokenRequest struct {
	Code         string `json:"code"`
	RefreshToken string `json:"refresh_token"`
}

// HandleToken handles POST /strava/token requests.
func (h *StravaHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	const op = "api.strava_token"
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	tok, err := h.deps.StravaExchange(r.Context(), req.Code)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// HandleRefresh handles POST /strava/refresh requests.
func (h *StravaHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.strava_refresh"
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	tok, err := h.deps.StravaRefresh(r.Context(), req.RefreshToken)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// HandleActivities handles GET /strava/activities requests.
func (h *StravaHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	const op = "api.strava_activities"
	q := r.URL.Query()
	perPage, err := optionalInt(q.Get("per_page"))
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.StravaActivities(r.Context(), q.Get("access_token"), perPage, page)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
