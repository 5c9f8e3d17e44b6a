package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/runlog/internal/db"
	"github.com/2beens/runlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrRouteNotFound = errors.New("route not found")

const selectColumns = `
	id, name, distance_km, COALESCE(map_link, ''), COALESCE(coordinates::text, ''),
	COALESCE(location, ''), created_at`

type Repo struct {
	db db.Querier
}

func NewRepo(db db.Querier) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, route Route) (_ *Route, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routes.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	route.Normalize()
	if err := route.Validate(); err != nil {
		return nil, err
	}
	if route.CreatedAt.IsZero() {
		route.CreatedAt = time.Now()
	}

	coordinates, err := coordinatesArg(route.Coordinates)
	if err != nil {
		return nil, err
	}

	var id int
	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO route (name, distance_km, map_link, coordinates, location, created_at)
			VALUES ($1, $2, NULLIF($3, ''), $4::jsonb, NULLIF($5, ''), $6)
			RETURNING id;`,
		route.Name, route.DistanceKm, route.MapLink, coordinates, route.Location, route.CreatedAt,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert route: %w", err)
	}

	span.SetAttributes(attribute.Int("route.id", id))
	route.ID = id
	return &route, nil
}

func (r *Repo) Update(ctx context.Context, route *Route) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routes.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", route.ID))

	route.Normalize()
	if err := route.Validate(); err != nil {
		return err
	}

	coordinates, err := coordinatesArg(route.Coordinates)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE route SET name = $1, distance_km = $2, map_link = NULLIF($3, ''),
				coordinates = $4::jsonb, location = NULLIF($5, '')
			WHERE id = $6;`,
		route.Name, route.DistanceKm, route.MapLink, coordinates, route.Location, route.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Route, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routes.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM route WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes, err := rows2routes(rows)
	if err != nil {
		return nil, err
	}
	if len(routes) != 1 {
		return nil, ErrRouteNotFound
	}
	return &routes[0], nil
}

// List returns all routes, newest first.
func (r *Repo) List(ctx context.Context) (_ []Route, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routes.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM route ORDER BY created_at DESC, id DESC;`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return rows2routes(rows)
}

// Delete removes the route. Runs pointing at it are unlinked in the same
// transaction, never deleted.
func (r *Repo) Delete(ctx context.Context, id int) (unlinked int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routes.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE run SET route_id = NULL WHERE route_id = $1;`, id)
		if err != nil {
			return fmt.Errorf("unlink runs: %w", err)
		}
		unlinked = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM route WHERE id = $1;`, id)
		if err != nil {
			return fmt.Errorf("delete route: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrRouteNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int64("unlinked_runs", unlinked))
	return unlinked, nil
}

// DeleteAll removes every route and clears the route of every run.
func (r *Repo) DeleteAll(ctx context.Context) (deleted int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routes.deleteall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE run SET route_id = NULL WHERE route_id IS NOT NULL;`); err != nil {
			return fmt.Errorf("unlink runs: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM route;`)
		if err != nil {
			return fmt.Errorf("delete routes: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *Repo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Errorf("rollback tx: %s", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func rows2routes(rows pgx.Rows) ([]Route, error) {
	var routes []Route
	for rows.Next() {
		var (
			route       Route
			coordinates string
		)
		if err := rows.Scan(
			&route.ID, &route.Name, &route.DistanceKm, &route.MapLink,
			&coordinates, &route.Location, &route.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if coordinates != "" {
			if err := json.Unmarshal([]byte(coordinates), &route.Coordinates); err != nil {
				return nil, fmt.Errorf("unmarshal coordinates of route %d: %w", route.ID, err)
			}
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}

// coordinatesArg returns the JSON text for the jsonb column, or nil for NULL.
func coordinatesArg(points []Point) (*string, error) {
	if len(points) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("marshal coordinates: %w", err)
	}
	s := string(b)
	return &s, nil
}
