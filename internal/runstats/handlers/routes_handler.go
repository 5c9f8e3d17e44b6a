package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/runlog/internal/runstats/routes"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=routes_handler_mocks_test.go -package=handlers_test

type routesRepo interface {
	Add(ctx context.Context, route routes.Route) (*routes.Route, error)
	Update(ctx context.Context, route *routes.Route) error
	Get(ctx context.Context, id int) (*routes.Route, error)
	List(ctx context.Context) ([]routes.Route, error)
	Delete(ctx context.Context, id int) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type DeleteRouteResponse struct {
	DeletedID    int   `json:"deletedId"`
	UnlinkedRuns int64 `json:"unlinkedRuns"`
}

type DeleteAllRoutesResponse struct {
	Deleted int64 `json:"deleted"`
}

type RoutesHandler struct {
	repo routesRepo
}

func NewRoutesHandler(repo routesRepo) *RoutesHandler {
	return &RoutesHandler{
		repo: repo,
	}
}

func (h *RoutesHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.HandleAdd).Methods("POST", "OPTIONS").Name("add-route")
	router.HandleFunc("", h.HandleList).Methods("GET", "OPTIONS").Name("list-routes")
	router.HandleFunc("", h.HandleDeleteAll).Methods("DELETE", "OPTIONS").Name("delete-all-routes")
	router.HandleFunc("/{id}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-route")
	router.HandleFunc("/{id}", h.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-route")
	router.HandleFunc("/{id}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-route")
}

func routeErrorStatus(err error) int {
	switch {
	case errors.Is(err, routes.ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, routes.ErrInvalidRoute):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *RoutesHandler) decodeRoute(w http.ResponseWriter, r *http.Request) (*routes.Route, bool) {
	if !isJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return nil, false
	}
	var route routes.Route
	if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
		log.Errorf("route, unmarshal json params: %s", err)
		http.Error(w, "invalid route json", http.StatusBadRequest)
		return nil, false
	}
	route.Normalize()
	if err := route.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &route, true
}

func (h *RoutesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routes.add")
	defer span.End()

	route, ok := h.decodeRoute(w, r)
	if !ok {
		return
	}

	added, err := h.repo.Add(ctx, *route)
	if err != nil {
		log.Errorf("failed to add route [%s]: %s", route.Name, err)
		http.Error(w, "error, failed to add route", routeErrorStatus(err))
		return
	}

	log.Debugf("new route added: %d [%s] %.2f km", added.ID, added.Name, added.DistanceKm)
	pkg.WriteJSON(w, added, http.StatusCreated)
}

func (h *RoutesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routes.list")
	defer span.End()

	list, err := h.repo.List(ctx)
	if err != nil {
		log.Errorf("list routes error: %s", err)
		http.Error(w, "failed to get routes", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []routes.Route{}
	}

	pkg.WriteJSON(w, list, http.StatusOK)
}

func (h *RoutesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routes.get")
	defer span.End()

	id, err := intVar(r, "id")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}

	route, err := h.repo.Get(ctx, id)
	if err != nil {
		log.Errorf("failed to get route %d: %s", id, err)
		http.Error(w, "route not found", routeErrorStatus(err))
		return
	}

	pkg.WriteJSON(w, route, http.StatusOK)
}

func (h *RoutesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routes.update")
	defer span.End()

	id, err := intVar(r, "id")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}

	route, ok := h.decodeRoute(w, r)
	if !ok {
		return
	}
	route.ID = id

	if err := h.repo.Update(ctx, route); err != nil {
		log.Errorf("failed to update route %d: %s", id, err)
		http.Error(w, "error, failed to update route", routeErrorStatus(err))
		return
	}

	pkg.WriteJSON(w, route, http.StatusOK)
}

func (h *RoutesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routes.delete")
	defer span.End()

	id, err := intVar(r, "id")
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}

	unlinked, err := h.repo.Delete(ctx, id)
	if err != nil {
		log.Errorf("failed to delete route %d: %s", id, err)
		http.Error(w, "route not deleted", routeErrorStatus(err))
		return
	}

	log.Debugf("route %d deleted, %d runs unlinked", id, unlinked)
	pkg.WriteJSON(w, DeleteRouteResponse{DeletedID: id, UnlinkedRuns: unlinked}, http.StatusOK)
}

func (h *RoutesHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routes.delete-all")
	defer span.End()

	deleted, err := h.repo.DeleteAll(ctx)
	if err != nil {
		log.Errorf("failed to delete all routes: %s", err)
		http.Error(w, "routes not deleted", http.StatusInternalServerError)
		return
	}

	log.Infof("all routes deleted: %d", deleted)
	pkg.WriteJSON(w, DeleteAllRoutesResponse{Deleted: deleted}, http.StatusOK)
}
