package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/okian/logbook/internal/adapters/strava"
	service "github.com/okian/logbook/internal/app"
	"github.com/okian/logbook/internal/domain/ledger"
	"github.com/okian/logbook/internal/domain/model"
)

// ImportDependencies defines the ledger operations the handlers use.
type ImportDependencies interface {
	ListImports(ctx context.Context, source model.Source) ([]string, error)
	IsImported(ctx context.Context, source model.Source, externalID string) (bool, error)
	RecordImport(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error)
	ImportGPX(ctx context.Context, filename string, r io.Reader) (service.ImportResult, error)
	ImportStravaActivity(ctx context.Context, a strava.Activity) (service.ImportResult, error)
}

// ImportsHandler handles import ledger requests.
type ImportsHandler struct {
	deps      ImportDependencies
	maxUpload int64
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(deps ImportDependencies, maxUpload int64) *ImportsHandler {
	return &ImportsHandler{deps: deps, maxUpload: maxUpload}
}

// externalID accepts both JSON strings and numbers; Strava ids arrive as numbers.
type externalID string

func (e *externalID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = externalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("external id must be a string or number")
	}
	*e = externalID(n.String())
	return nil
}

// importRequest mirrors the ledger POST body.
type importRequest struct {
	GPXID      externalID `json:"gpx_id"`
	StravaID   externalID `json:"strava_id"`
	ActivityID int64      `json:"activity_id"`
	Action     string     `json:"action"`
}

func (r importRequest) key(source model.Source) string {
	if source == model.SourceStrava {
		return strings.TrimSpace(string(r.StravaID))
	}
	return strings.TrimSpace(string(r.GPXID))
}

type insertResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type duplicateResponse struct {
	Error  string `json:"error"`
	Exists bool   `json:"exists"`
}

// HandleList handles GET /imports/{source} requests.
func (h *ImportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_imports"
	source, err := ledger.ParseSource(r.PathValue("source"))
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ids, err := h.deps.ListImports(r.Context(), source)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// HandlePost handles POST /imports/{source}: action "insert" records an
// import, anything else checks whether the id was imported.
func (h *ImportsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_import"
	source, err := ledger.ParseSource(r.PathValue("source"))
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	key := req.key(source)

	if req.Action != "insert" {
		ok, err := h.deps.IsImported(r.Context(), source, key)
		if err != nil {
			fail(r.Context(), w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, existsResponse{Exists: ok})
		return
	}

	id, err := h.deps.RecordImport(r.Context(), source, key, req.ActivityID)
	if errors.Is(err, ledger.ErrAlreadyImported) {
		writeJSON(w, http.StatusOK, duplicateResponse{Error: "already imported", Exists: true})
		return
	}
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, insertResponse{ID: id, Success: true})
}

// rawGPXTypes are the media types accepted for a raw GPX body. An empty
// Content-Type is treated as raw GPX.
var rawGPXTypes = map[string]struct{}{
	"":                         {},
	"application/gpx+xml":      {},
	"application/xml":          {},
	"text/xml":                 {},
	"application/octet-stream": {},
	"text/plain":               {},
}

// HandleGPXUpload handles POST /imports/gpx/upload. The body is either a
// multipart form with a "file" field or the raw GPX with ?filename=.
func (h *ImportsHandler) HandleGPXUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_gpx"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	filename, body, err := h.readUpload(r)
	if err != nil {
		kind := ErrBadRequest
		if errors.Is(err, ErrUnsupported) {
			kind = ErrUnsupported
		}
		fail(r.Context(), w, WrapKind(op, kind, err))
		return
	}
	defer body.Close()

	res, err := h.deps.ImportGPX(r.Context(), filename, body)
	if errors.Is(err, ledger.ErrAlreadyImported) {
		writeJSON(w, http.StatusOK, duplicateResponse{Error: "already imported", Exists: true})
		return
	}
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ImportsHandler) readUpload(r *http.Request) (string, io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if _, ok := rawGPXTypes[mediaType]; !ok && mediaType != "multipart/form-data" {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return "", nil, fmt.Errorf("parse form: %w", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("form field file: %w", err)
		}
		return filepath.Base(hdr.Filename), f, nil
	}
	name := strings.TrimSpace(r.URL.Query().Get("filename"))
	if name == "" {
		return "", nil, errors.New("filename query parameter is required for raw uploads")
	}
	return filepath.Base(name), r.Body, nil
}

// HandleStravaActivity handles POST /imports/strava/activity with a Strava
// activity JSON body.
func (h *ImportsHandler) HandleStravaActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_strava"
	var a strava.Activity
	if err := decodeJSON(r, &a); err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.ImportStravaActivity(r.Context(), a)
	if errors.Is(err, ledger.ErrAlreadyImported) {
		writeJSON(w, http.StatusOK, duplicateResponse{Error: "already imported", Exists: true})
		return
	}
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
