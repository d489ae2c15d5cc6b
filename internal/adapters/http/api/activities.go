package api

import (
	"context"
	"net/http"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/domain/model"
)

// ActivityDependencies defines the activity operations the handlers use.
type ActivityDependencies interface {
	CreateActivity(ctx context.Context, a model.Activity) (model.Activity, error)
	GetActivity(ctx context.Context, id int64) (model.Activity, error)
	ListActivities(ctx context.Context) ([]model.Activity, error)
	UpdateActivity(ctx context.Context, id int64, a model.Activity) (model.Activity, error)
	DeleteActivity(ctx context.Context, id int64) (repository.DeleteResult, error)
}

// ActivitiesHandler handles activity CRUD requests.
type ActivitiesHandler struct {
	deps ActivityDependencies
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(deps ActivityDependencies) *ActivitiesHandler {
	return &ActivitiesHandler{deps: deps}
}

type deleteResponse struct {
	Success bool `json:"success"`
	repository.DeleteResult
}

// HandleList handles GET /activities requests.
func (h *ActivitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_activities"
	out, err := h.deps.ListActivities(r.Context())
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /activities requests.
func (h *ActivitiesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_activity"
	var a model.Activity
	if err := decodeJSON(r, &a); err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateActivity(r.Context(), a)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /activities/{id} requests.
func (h *ActivitiesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_activity"
	id, err := pathID(r)
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.GetActivity(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleUpdate handles PUT /activities/{id} requests.
func (h *ActivitiesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_activity"
	id, err := pathID(r)
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var a model.Activity
	if err := decodeJSON(r, &a); err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	updated, err := h.deps.UpdateActivity(r.Context(), id, a)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /activities/{id} requests.
func (h *ActivitiesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_activity"
	id, err := pathID(r)
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.DeleteActivity(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, DeleteResult: res})
}
