package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/duration"
	"github.com/2beens/runlog/internal/runstats/runs"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=runs_handler_mocks_test.go -package=handlers_test

type runsRepo interface {
	Add(ctx context.Context, run runs.Run) (*runs.Run, error)
	Get(ctx context.Context, id int) (*runs.Run, error)
	ApplyPatch(ctx context.Context, id int, patch runs.Patch) (*runs.Run, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, page, size int) ([]runs.Run, int, error)
}

// AddRunRequest is the body of POST /runs. Duration is the typed text ("45:30");
// when given it wins over DurationSeconds.
type AddRunRequest struct {
	Date            datekey.CalendarDate `json:"date"`
	RouteID         *int                 `json:"routeId"`
	DistanceKm      float64              `json:"distanceKm"`
	Duration        string               `json:"duration"`
	DurationSeconds int                  `json:"durationSeconds"`
	Effort          int                  `json:"effort"`
	Notes           string               `json:"notes"`
}

func (req AddRunRequest) run() (runs.Run, error) {
	run := runs.Run{
		Date:            req.Date,
		RouteID:         req.RouteID,
		DistanceKm:      req.DistanceKm,
		DurationSeconds: req.DurationSeconds,
		Effort:          req.Effort,
		Notes:           req.Notes,
	}
	if req.Duration != "" {
		seconds, err := duration.Parse(req.Duration)
		if err != nil {
			return runs.Run{}, err
		}
		run.DurationSeconds = seconds
		run.DurationText = req.Duration
	}
	return run, run.Validate()
}

type DeleteRunResponse struct {
	DeletedID int `json:"deletedId"`
}

type RunsListResponse struct {
	Runs  []runs.Run `json:"runs"`
	Total int        `json:"total"`
}

type RunsHandler struct {
	repo           runsRepo
	metricsManager *metrics.Manager
}

func NewRunsHandler(repo runsRepo, metricsManager *metrics.Manager) *RunsHandler {
	return &RunsHandler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (h *RunsHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.HandleAdd).Methods("POST", "OPTIONS").Name("add-run")
	router.HandleFunc("/list/page/{page}/size/{size}", h.HandleList).Methods("GET", "OPTIONS").Name("list-runs")
	router.HandleFunc("/{id}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-run")
	router.HandleFunc("/{id}", h.HandlePatch).Methods("PATCH", "OPTIONS").Name("patch-run")
	router.HandleFunc("/{id}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-run")
}

// runErrorStatus maps repo errors to a response status. A foreign key violation
// means the run points at a route that does not exist.
func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, runs.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, runs.ErrInvalidRun), pkg.IsForeignKeyViolationError(err), pkg.IsCheckViolationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *RunsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.runs.add")
	defer span.End()

	if !isJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add run, unmarshal json params: %s", err)
		http.Error(w, "add run failed, invalid json", http.StatusBadRequest)
		return
	}

	run, err := req.run()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	added, err := h.repo.Add(ctx, run)
	if err != nil {
		log.Errorf("failed to add run [%s] %.2f km: %s", run.Date, run.DistanceKm, err)
		http.Error(w, "error, failed to add run", runErrorStatus(err))
		return
	}

	span.SetAttributes(attribute.Int("run.id", added.ID))
	h.metricsManager.CounterRunsAdded.Inc()
	log.Debugf("new run added: %d [%s] %.2f km", added.ID, added.Date, added.DistanceKm)

	pkg.WriteJSON(w, added, http.StatusCreated)
}

func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.runs.get")
	defer span.End()

	id, err := intVar(r, "id")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.repo.Get(ctx, id)
	if err != nil {
		log.Errorf("failed to get run %d: %s", id, err)
		http.Error(w, "run not found", runErrorStatus(err))
		return
	}

	pkg.WriteJSON(w, run, http.StatusOK)
}

func (h *RunsHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.runs.patch")
	defer span.End()

	id, err := intVar(r, "id")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}
	if !isJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var patch runs.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Errorf("patch run %d, unmarshal json params: %s", id, err)
		http.Error(w, "patch run failed, invalid json", http.StatusBadRequest)
		return
	}
	if patch.IsEmpty() {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.ApplyPatch(ctx, id, patch)
	if err != nil {
		log.Errorf("failed to patch run %d: %s", id, err)
		status := runErrorStatus(err)
		msg := "error, failed to update run"
		if errors.Is(err, runs.ErrInvalidRun) {
			msg = err.Error()
		}
		http.Error(w, msg, status)
		return
	}

	pkg.WriteJSON(w, updated, http.StatusOK)
}

func (h *RunsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.runs.delete")
	defer span.End()

	id, err := intVar(r, "id")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		log.Errorf("failed to delete run %d: %s", id, err)
		http.Error(w, "run not deleted", runErrorStatus(err))
		return
	}

	pkg.WriteJSON(w, DeleteRunResponse{DeletedID: id}, http.StatusOK)
}

func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.runs.list")
	defer span.End()

	page, err := intVar(r, "page")
	if err != nil {
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := intVar(r, "size")
	if err != nil {
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}
	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 || size > maxPageSize {
		http.Error(w, "invalid size (has to be between 1 and 500)", http.StatusBadRequest)
		return
	}

	log.Tracef("list runs - page %d size %d", page, size)

	list, total, err := h.repo.List(ctx, page, size)
	if err != nil {
		log.Errorf("list runs error: %s", err)
		http.Error(w, "failed to get runs", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []runs.Run{}
	}

	pkg.WriteJSON(w, RunsListResponse{Runs: list, Total: total}, http.StatusOK)
}
