package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/runlog/internal/cache"
	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/runs"
	"github.com/2beens/runlog/internal/runstats/stats"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=stats_handler_mocks_test.go -package=handlers_test

type runsLister interface {
	ListAll(ctx context.Context, params runs.ListParams) ([]runs.Run, error)
}

type WeeksResponse struct {
	Range   stats.DateRange    `json:"range"`
	Weeks   []stats.WeekBucket `json:"weeks"`
	Skipped stats.Skipped      `json:"skipped"`
}

// TrendResponse has a nil Trend when there are no runs in the range.
type TrendResponse struct {
	Range   stats.DateRange `json:"range"`
	Trend   *stats.Trend    `json:"trend"`
	Skipped stats.Skipped   `json:"skipped"`
}

type SummaryResponse struct {
	Summary stats.Summary `json:"summary"`
	Skipped stats.Skipped `json:"skipped"`
}

type StatsHandler struct {
	repo           runsLister
	cache          cache.Cache
	cacheTTL       time.Duration
	location       *time.Location
	metricsManager *metrics.Manager
	// injectable for tests
	NowFunc func() time.Time
}

// NewStatsHandler creates the stats handler. "Today", used for the date range
// cutoffs, is taken in location.
func NewStatsHandler(
	repo runsLister,
	statsCache cache.Cache,
	cacheTTL time.Duration,
	location *time.Location,
	metricsManager *metrics.Manager,
) *StatsHandler {
	if location == nil {
		location = time.UTC
	}
	return &StatsHandler{
		repo:           repo,
		cache:          statsCache,
		cacheTTL:       cacheTTL,
		location:       location,
		metricsManager: metricsManager,
		NowFunc:        time.Now,
	}
}

func (h *StatsHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/weeks", h.HandleWeeks).Methods("GET", "OPTIONS").Name("stats-weeks")
	router.HandleFunc("/trend", h.HandleTrend).Methods("GET", "OPTIONS").Name("stats-trend")
	router.HandleFunc("/summary", h.HandleSummary).Methods("GET", "OPTIONS").Name("stats-summary")
}

func (h *StatsHandler) today() datekey.CalendarDate {
	return datekey.FromTime(h.NowFunc().In(h.location))
}

// serve loads all runs and answers from the cache when the same computation was
// already done over the same runs. compute returns the response value.
func (h *StatsHandler) serve(
	ctx context.Context,
	w http.ResponseWriter,
	endpoint, params string,
	compute func(records []runs.Run) (any, stats.Skipped),
) {
	records, err := h.repo.ListAll(ctx, runs.ListParams{})
	if err != nil {
		log.Errorf("stats %s, list runs: %s", endpoint, err)
		http.Error(w, "failed to get runs", http.StatusInternalServerError)
		return
	}

	key := cache.StatsKey(endpoint, params, cache.RunsDigest(records))
	if h.cache != nil {
		if cached, found := h.cache.Get(key); found {
			log.Tracef("stats %s [%s]: cache hit", endpoint, params)
			pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
			return
		}
	}

	resp, skipped := compute(records)
	if skipped.Count > 0 {
		log.Warnf("stats %s: skipped %d malformed runs %v", endpoint, skipped.Count, skipped.RunIDs)
		h.metricsManager.CounterSkippedRecords.WithLabelValues(endpoint).Add(float64(skipped.Count))
	}

	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("stats %s, marshal response: %s", endpoint, err)
		http.Error(w, "failed to marshal stats", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		h.cache.Set(key, respJson, h.cacheTTL)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (h *StatsHandler) parseRange(w http.ResponseWriter, r *http.Request) (stats.DateRange, bool) {
	dateRange, err := stats.ParseDateRange(r.URL.Query().Get("range"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return dateRange, true
}

// HandleWeeks returns the weekly buckets of the range, oldest first. With
// fill=true, weeks without runs are included as empty buckets.
func (h *StatsHandler) HandleWeeks(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.weeks")
	defer span.End()

	dateRange, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	fill, _ := strconv.ParseBool(r.URL.Query().Get("fill"))
	today := h.today()
	span.SetAttributes(attribute.String("range", string(dateRange)))

	params := string(dateRange) + "|" + today.String() + "|" + strconv.FormatBool(fill)
	h.serve(ctx, w, "weeks", params, func(records []runs.Run) (any, stats.Skipped) {
		buckets, skipped := stats.BucketByWeek(stats.FilterByRange(records, dateRange, today))
		weeks := stats.SortedBuckets(buckets)
		if fill {
			weeks = stats.FillGaps(weeks)
		}
		if weeks == nil {
			weeks = []stats.WeekBucket{}
		}
		return WeeksResponse{Range: dateRange, Weeks: weeks, Skipped: skipped}, skipped
	})
}

func (h *StatsHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.trend")
	defer span.End()

	dateRange, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	today := h.today()
	span.SetAttributes(attribute.String("range", string(dateRange)))

	params := string(dateRange) + "|" + today.String()
	h.serve(ctx, w, "trend", params, func(records []runs.Run) (any, stats.Skipped) {
		trend, skipped := stats.ComputeTrend(stats.FilterByRange(records, dateRange, today))
		return TrendResponse{Range: dateRange, Trend: trend, Skipped: skipped}, skipped
	})
}

func (h *StatsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.summary")
	defer span.End()

	h.serve(ctx, w, "summary", "", func(records []runs.Run) (any, stats.Skipped) {
		summary, skipped := stats.Summarize(records)
		return SummaryResponse{Summary: summary, Skipped: skipped}, skipped
	})
}
