package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/logbook/internal/app"
	"github.com/okian/logbook/internal/domain/model"
)

// ReportDependencies defines the summary report operation.
type ReportDependencies interface {
	SendReport(ctx context.Context) (model.Report, error)
}

// ReportHandler handles report requests.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

type reportResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Stats   model.Report `json:"stats"`
}

// HandleSend handles POST /report requests. A report that was built but
// not delivered still returns 200 with success=false.
func (h *ReportHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	const op = "api.send_report"
	rep, err := h.deps.SendReport(r.Context())
	if errors.Is(err, service.ErrReportNotSent) {
		writeJSON(w, http.StatusOK, reportResponse{Success: false, Message: err.Error(), Stats: rep})
		return
	}
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Success: true, Message: "report sent", Stats: rep})
}
