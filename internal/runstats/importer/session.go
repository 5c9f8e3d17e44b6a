package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/runlog/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultSessionTTL = time.Hour
	sessionKeyPrefix  = "runlog-import-session||"
	maxUpdateRetries  = 5
)

var (
	ErrSessionNotFound = errors.New("import session not found")
	ErrSessionConflict = errors.New("import session changed concurrently")
	ErrRowOutOfRange   = errors.New("import row out of range")
)

// Session is an import under review: the parsed rows waiting to be edited and
// committed.
type Session struct {
	ID        string      `json:"id"`
	Format    DateFormat  `json:"format"`
	Columns   ColumnMap   `json:"columns"`
	Headers   []string    `json:"headers"`
	Rows      []ImportRow `json:"rows"`
	CreatedAt time.Time   `json:"createdAt"`
}

type SessionSummary struct {
	ID      string `json:"id"`
	Total   int    `json:"total"`
	Valid   int    `json:"valid"`
	Invalid int    `json:"invalid"`
}

func (s *Session) Summary() SessionSummary {
	valid, invalid := Counts(s.Rows)
	return SessionSummary{
		ID:      s.ID,
		Total:   len(s.Rows),
		Valid:   valid,
		Invalid: invalid,
	}
}

// EditRow revalidates one cell of a row in place.
func (s *Session) EditRow(index int, field Field, value string) (ImportRow, error) {
	if index < 0 || index >= len(s.Rows) {
		return ImportRow{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, index)
	}
	row, err := Revalidate(s.Rows[index], field, value, s.Format)
	if err != nil {
		return ImportRow{}, err
	}
	s.Rows[index] = row
	return row, nil
}

// SessionStore keeps import sessions in redis, as JSON, until they are
// committed, deleted, or expire.
type SessionStore struct {
	redisClient *redis.Client
	ttl         time.Duration
	// injectable for tests
	NewIDFunc func() string
	NowFunc   func() time.Time
}

func NewSessionStore(redisClient *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		redisClient: redisClient,
		ttl:         ttl,
		NewIDFunc:   uuid.NewString,
		NowFunc:     time.Now,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (ss *SessionStore) Create(
	ctx context.Context,
	headers []string,
	columns ColumnMap,
	format DateFormat,
	rows []RawRow,
) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.session.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session := &Session{
		ID:        ss.NewIDFunc(),
		Format:    format,
		Columns:   columns,
		Headers:   headers,
		Rows:      ResolveBatch(rows, columns, format),
		CreatedAt: ss.NowFunc().UTC(),
	}
	span.SetAttributes(attribute.Int("import.rows", len(session.Rows)))

	if err := ss.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (ss *SessionStore) Save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := ss.redisClient.Set(ctx, sessionKey(session.ID), payload, ss.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// Update loads the session, applies fn and stores the result in one optimistic
// transaction. When another writer touches the session in between, the whole
// read-modify-write is retried; fn must therefore be safe to call more than once.
// An error from fn aborts the update and is returned as is.
func (ss *SessionStore) Update(ctx context.Context, id string, fn func(*Session) error) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.session.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	key := sessionKey(id)
	var session *Session
	txf := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session %s: %w", id, err)
		}

		session = &Session{}
		if err := json.Unmarshal(payload, session); err != nil {
			return fmt.Errorf("unmarshal session %s: %w", id, err)
		}
		if err := fn(session); err != nil {
			return err
		}

		updated, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, ss.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		err = ss.redisClient.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		span.SetAttributes(attribute.Int("import.update.attempt", attempt))
	}
	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("%w: %s", ErrSessionConflict, id)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (ss *SessionStore) Get(ctx context.Context, id string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.session.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	payload, err := ss.redisClient.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

// Take removes the session and returns what it held. Of two callers taking the
// same session only one gets it; the other sees ErrSessionNotFound.
func (ss *SessionStore) Take(ctx context.Context, id string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.session.take")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	payload, err := ss.redisClient.GetDel(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take session %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

func (ss *SessionStore) Delete(ctx context.Context, id string) error {
	deleted, err := ss.redisClient.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if deleted == 0 {
		return ErrSessionNotFound
	}
	return nil
}
