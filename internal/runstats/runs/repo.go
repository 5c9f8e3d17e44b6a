package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/runlog/internal/db"
	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

var ErrRunNotFound = errors.New("run not found")

const selectColumns = `
	id, run_date, COALESCE(route_id, 0), distance_km, duration_seconds,
	COALESCE(duration_text, ''), COALESCE(effort, 0), COALESCE(notes, ''), created_at`

type ListParams struct {
	From *datekey.CalendarDate
	To   *datekey.CalendarDate
}

type Repo struct {
	db db.Querier
}

func NewRepo(db db.Querier) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, run Run) (_ *Run, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := run.Validate(); err != nil {
		return nil, err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO run
				(run_date, route_id, distance_km, duration_seconds, duration_text, effort, notes, created_at)
				VALUES ($1::date, NULLIF($2, 0), $3, $4, NULLIF($5, ''), NULLIF($6, 0), NULLIF($7, ''), $8)
			RETURNING id;`,
		run.Date.String(), routeIDArg(run.RouteID), run.DistanceKm, run.DurationSeconds,
		run.DurationText, run.Effort, run.Notes, run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("run.id", id))

	run.ID = id
	return &run, nil
}

func (r *Repo) Update(ctx context.Context, run *Run) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", run.ID))

	if err := run.Validate(); err != nil {
		return err
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE run SET
				run_date = $1::date, route_id = NULLIF($2, 0), distance_km = $3, duration_seconds = $4,
				duration_text = NULLIF($5, ''), effort = NULLIF($6, 0), notes = NULLIF($7, '')
			WHERE id = $8;`,
		run.Date.String(), routeIDArg(run.RouteID), run.DistanceKm, run.DurationSeconds,
		run.DurationText, run.Effort, run.Notes, run.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// ApplyPatch loads the run, applies the patch and stores the result.
func (r *Repo) ApplyPatch(ctx context.Context, id int, patch Patch) (_ *Run, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.patch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	if err := r.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM run WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Run, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+selectColumns+` FROM run WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := rows2runs(rows)
	if err != nil {
		return nil, err
	}

	if len(runs) != 1 {
		return nil, ErrRunNotFound
	}

	return &runs[0], nil
}

// ListAll returns all runs within the optional date bounds (both inclusive),
// oldest first. This is the snapshot the stats are computed from.
func (r *Repo) ListAll(ctx context.Context, params ListParams) (_ []Run, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var from, to *string
	if params.From != nil {
		s := params.From.String()
		from = &s
		span.SetAttributes(attribute.String("from", s))
	}
	if params.To != nil {
		s := params.To.String()
		to = &s
		span.SetAttributes(attribute.String("to", s))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+selectColumns+` FROM run
			WHERE ($1::date IS NULL OR run_date >= $1::date)
			AND ($2::date IS NULL OR run_date <= $2::date)
			ORDER BY run_date ASC, id ASC;`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	runs, err := rows2runs(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2runs: %w", err)
	}
	return runs, nil
}

// List returns the given page of runs, newest first, together with the total count.
func (r *Repo) List(ctx context.Context, page, size int) (_ []Run, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))

	if page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	total, err = r.Count(ctx)
	if err != nil {
		return nil, -1, fmt.Errorf("count: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+selectColumns+` FROM run
			ORDER BY run_date DESC, id DESC
			LIMIT $1 OFFSET $2;`,
		size, (page-1)*size,
	)
	if err != nil {
		return nil, -1, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	runs, err := rows2runs(rows)
	if err != nil {
		return nil, -1, fmt.Errorf("rows2runs: %w", err)
	}
	return runs, total, nil
}

func (r *Repo) Count(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.runs.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM run;`).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func rows2runs(rows pgx.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var (
			run     Run
			runDate time.Time
			routeID int
		)
		if err := rows.Scan(
			&run.ID, &runDate, &routeID, &run.DistanceKm, &run.DurationSeconds,
			&run.DurationText, &run.Effort, &run.Notes, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		// DATE columns come back as UTC midnight
		run.Date = datekey.FromTime(runDate.UTC())
		if routeID > 0 {
			run.RouteID = &routeID
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func routeIDArg(routeID *int) int {
	if routeID == nil {
		return 0
	}
	return *routeID
}
