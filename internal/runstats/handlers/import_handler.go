package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/2beens/runlog/internal/runstats/importer"
	"github.com/2beens/runlog/internal/runstats/runs"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=import_handler_mocks_test.go -package=handlers_test

const maxUploadBytes = 10 << 20

type sessionStore interface {
	Create(
		ctx context.Context,
		headers []string,
		columns importer.ColumnMap,
		format importer.DateFormat,
		rows []importer.RawRow,
	) (*importer.Session, error)
	Get(ctx context.Context, id string) (*importer.Session, error)
	Update(ctx context.Context, id string, fn func(*importer.Session) error) (*importer.Session, error)
	Take(ctx context.Context, id string) (*importer.Session, error)
	Delete(ctx context.Context, id string) error
}

type runAdder interface {
	Add(ctx context.Context, run runs.Run) (*runs.Run, error)
}

// CreateSessionRequest is the JSON form of a new import. Without Columns the
// mapping is guessed from the headers; without Headers they are taken from the
// row keys.
type CreateSessionRequest struct {
	Headers []string            `json:"headers"`
	Rows    []importer.RawRow   `json:"rows"`
	Columns *importer.ColumnMap `json:"columns"`
	Format  string              `json:"format"`
}

type EditRowRequest struct {
	Field importer.Field `json:"field"`
	Value string         `json:"value"`
}

type SessionResponse struct {
	Session *importer.Session       `json:"session"`
	Summary importer.SessionSummary `json:"summary"`
}

type EditRowResponse struct {
	Row     importer.ImportRow      `json:"row"`
	Summary importer.SessionSummary `json:"summary"`
}

type CommitResponse struct {
	importer.Result
	Error string `json:"error,omitempty"`
}

type ImportHandler struct {
	sessions       sessionStore
	runs           runAdder
	metricsManager *metrics.Manager
}

func NewImportHandler(sessions sessionStore, runs runAdder, metricsManager *metrics.Manager) *ImportHandler {
	return &ImportHandler{
		sessions:       sessions,
		runs:           runs,
		metricsManager: metricsManager,
	}
}

func (h *ImportHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.HandleCreate).Methods("POST", "OPTIONS").Name("import-create")
	router.HandleFunc("/{id}", h.HandleGet).Methods("GET", "OPTIONS").Name("import-get")
	router.HandleFunc("/{id}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("import-delete")
	router.HandleFunc("/{id}/rows/{row}", h.HandleEditRow).Methods("PUT", "OPTIONS").Name("import-edit-row")
	router.HandleFunc("/{id}/commit", h.HandleCommit).Methods("POST", "OPTIONS").Name("import-commit")
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, importer.ErrSessionNotFound), errors.Is(err, importer.ErrRowOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrSessionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleCreate accepts either a multipart upload (a "file" CSV part plus
// optional "format" and "columns" fields) or a CreateSessionRequest JSON body.
func (h *ImportHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.import.create")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var req CreateSessionRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("import create, unmarshal json params: %s", err)
			http.Error(w, "invalid import json", http.StatusBadRequest)
			return
		}
		if len(req.Headers) == 0 {
			req.Headers = rowKeys(req.Rows)
		}
	} else {
		parsed, err := readUpload(r)
		if err != nil {
			log.Errorf("import create, read upload: %s", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req = *parsed
	}

	if len(req.Rows) == 0 {
		http.Error(w, "nothing to import", http.StatusBadRequest)
		return
	}

	format, err := importer.ParseDateFormat(req.Format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	columns := importer.GuessColumnMap(req.Headers)
	if req.Columns != nil {
		columns = *req.Columns
	}
	if columns.Date == "" || columns.Distance == "" {
		http.Error(w, "date and distance columns must be mapped", http.StatusBadRequest)
		return
	}

	session, err := h.sessions.Create(ctx, req.Headers, columns, format, req.Rows)
	if err != nil {
		log.Errorf("import create, store session: %s", err)
		http.Error(w, "failed to create import session", http.StatusInternalServerError)
		return
	}

	summary := session.Summary()
	span.SetAttributes(attribute.String("import.session", session.ID), attribute.Int("import.rows", summary.Total))
	log.Debugf("import session %s created: %d rows, %d invalid", session.ID, summary.Total, summary.Invalid)

	pkg.WriteJSON(w, SessionResponse{Session: session, Summary: summary}, http.StatusCreated)
}

func readUpload(r *http.Request) (*CreateSessionRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.New("invalid multipart form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("csv file missing")
	}
	defer file.Close()

	table, err := importer.ReadCSV(file)
	if err != nil {
		return nil, err
	}

	req := &CreateSessionRequest{
		Headers: table.Headers,
		Rows:    table.Rows,
		Format:  r.FormValue("format"),
	}
	if columnsJson := r.FormValue("columns"); columnsJson != "" {
		var columns importer.ColumnMap
		if err := json.Unmarshal([]byte(columnsJson), &columns); err != nil {
			return nil, errors.New("invalid columns mapping")
		}
		req.Columns = &columns
	}
	return req, nil
}

func rowKeys(rows []importer.RawRow) []string {
	seen := map[string]bool{}
	var keys []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func (h *ImportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.import.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	session, err := h.sessions.Get(ctx, id)
	if err != nil {
		log.Errorf("import get session %s: %s", id, err)
		http.Error(w, "import session not found", sessionErrorStatus(err))
		return
	}

	pkg.WriteJSON(w, SessionResponse{Session: session, Summary: session.Summary()}, http.StatusOK)
}

func (h *ImportHandler) HandleEditRow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.import.edit-row")
	defer span.End()

	id := mux.Vars(r)["id"]
	rowIndex, err := intVar(r, "row")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}
	if !isJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req EditRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid edit json", http.StatusBadRequest)
		return
	}
	req.Field = importer.Field(strings.ToLower(string(req.Field)))

	var row importer.ImportRow
	session, err := h.sessions.Update(ctx, id, func(s *importer.Session) error {
		var err error
		row, err = s.EditRow(rowIndex, req.Field, req.Value)
		return err
	})
	if err != nil {
		log.Errorf("import edit row %d, session %s: %s", rowIndex, id, err)
		status := sessionErrorStatus(err)
		if status == http.StatusInternalServerError {
			http.Error(w, "failed to save import session", status)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}

	pkg.WriteJSON(w, EditRowResponse{Row: row, Summary: session.Summary()}, http.StatusOK)
}

// HandleCommit takes the session out of the store and creates a run for every
// valid row. A second commit of the same session finds nothing and gets a 404,
// so rows are never imported twice.
func (h *ImportHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.import.commit")
	defer span.End()

	id := mux.Vars(r)["id"]
	session, err := h.sessions.Take(ctx, id)
	if err != nil {
		log.Errorf("import commit, take session %s: %s", id, err)
		http.Error(w, "import session not found", sessionErrorStatus(err))
		return
	}

	start := time.Now()
	result := importer.ImportBatch(ctx, session.Rows, h.runs)
	h.metricsManager.HistImportBatchDuration.Observe(time.Since(start).Seconds())
	h.metricsManager.CounterRunsImported.WithLabelValues("success").Add(float64(result.Success))
	h.metricsManager.CounterRunsImported.WithLabelValues("failed").Add(float64(result.Failed))
	h.metricsManager.CounterRunsImported.WithLabelValues("skipped").Add(float64(result.Skipped))
	h.metricsManager.CounterRunsImported.WithLabelValues("canceled").Add(float64(result.Canceled))

	span.SetAttributes(
		attribute.Int("import.success", result.Success),
		attribute.Int("import.failed", result.Failed),
	)
	log.Infof(
		"import session %s committed: %d created, %d failed, %d skipped, %d canceled",
		id, result.Success, result.Failed, result.Skipped, result.Canceled,
	)

	resp := CommitResponse{Result: result}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (h *ImportHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.import.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := h.sessions.Delete(ctx, id); err != nil {
		log.Errorf("import delete session %s: %s", id, err)
		http.Error(w, "import session not deleted", sessionErrorStatus(err))
		return
	}

	pkg.WriteJSON(w, map[string]string{"deletedId": id}, http.StatusOK)
}
