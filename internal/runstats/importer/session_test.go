package importer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/2beens/runlog/internal/runstats/importer"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

const testSessionID = "5f0c9d2e-8d3a-4b43-9d8e-3a1c2b7f6e10"

var testSessionTime = time.Date(2025, 12, 8, 7, 30, 0, 0, time.UTC)

func newTestSessionStore(t *testing.T) (*importer.SessionStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		db.Close()
	})

	store := importer.NewSessionStore(db, 30*time.Minute)
	store.NewIDFunc = func() string { return testSessionID }
	store.NowFunc = func() time.Time { return testSessionTime }
	return store, mock
}

func TestSessionStore_Create(t *testing.T) {
	store, mock := newTestSessionStore(t)

	headers := []string{"Date", "Distance", "Duration"}
	raw := []importer.RawRow{
		{"Date": "12/01/2025", "Distance": "5", "Duration": "25:00"},
		{"Date": "13/01/2025", "Distance": "5", "Duration": "25:00"},
	}
	cm := importer.GuessColumnMap(headers)

	expected := &importer.Session{
		ID:        testSessionID,
		Format:    importer.FormatUS,
		Columns:   cm,
		Headers:   headers,
		Rows:      importer.ResolveBatch(raw, cm, importer.FormatUS),
		CreatedAt: testSessionTime,
	}
	payload, err := json.Marshal(expected)
	require.NoError(t, err)
	mock.ExpectSet("runlog-import-session||"+testSessionID, payload, 30*time.Minute).SetVal("OK")

	session, err := store.Create(context.Background(), headers, cm, importer.FormatUS, raw)
	require.NoError(t, err)
	assert.Equal(t, expected, session)
	assert.Equal(t, importer.SessionSummary{ID: testSessionID, Total: 2, Valid: 1, Invalid: 1}, session.Summary())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Get(t *testing.T) {
	store, mock := newTestSessionStore(t)

	stored := importer.Session{
		ID:     testSessionID,
		Format: importer.FormatISO,
		Rows: importer.ResolveBatch(
			[]importer.RawRow{{"Date": "2025-12-01", "Distance": "5"}},
			testColumns,
			importer.FormatISO,
		),
		CreatedAt: testSessionTime,
	}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet("runlog-import-session||" + testSessionID).SetVal(string(payload))
	mock.ExpectGet("runlog-import-session||missing").RedisNil()
	mock.ExpectGet("runlog-import-session||broken").SetErr(errors.New("conn refused"))

	session, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	require.Len(t, session.Rows, 1)
	assert.True(t, session.Rows[0].Valid())
	assert.Equal(t, "2025-12-01", session.Rows[0].Date.String())
	assert.Equal(t, importer.FormatISO, session.Format)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)

	_, err = store.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, importer.ErrSessionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Delete(t *testing.T) {
	store, mock := newTestSessionStore(t)

	mock.ExpectDel("runlog-import-session||" + testSessionID).SetVal(1)
	mock.ExpectDel("runlog-import-session||gone").SetVal(0)

	require.NoError(t, store.Delete(context.Background(), testSessionID))
	assert.ErrorIs(t, store.Delete(context.Background(), "gone"), importer.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func storedTestSession(t *testing.T) (importer.Session, []byte) {
	t.Helper()
	stored := importer.Session{
		ID:     testSessionID,
		Format: importer.FormatEU,
		Rows: importer.ResolveBatch(
			[]importer.RawRow{
				{"Date": "01/13/2025", "Distance": "5"},
				{"Date": "14/01/2025", "Distance": "6"},
			},
			testColumns,
			importer.FormatEU,
		),
		CreatedAt: testSessionTime,
	}
	// what the store reads back, so a re-marshal gives the same bytes
	payload, err := json.Marshal(stored)
	require.NoError(t, err)
	var loaded importer.Session
	require.NoError(t, json.Unmarshal(payload, &loaded))
	payload, err = json.Marshal(loaded)
	require.NoError(t, err)
	return loaded, payload
}

func TestSessionStore_Take(t *testing.T) {
	store, mock := newTestSessionStore(t)
	_, payload := storedTestSession(t)

	mock.ExpectGetDel("runlog-import-session||" + testSessionID).SetVal(string(payload))
	mock.ExpectGetDel("runlog-import-session||" + testSessionID).RedisNil()
	mock.ExpectGetDel("runlog-import-session||broken").SetErr(errors.New("conn refused"))

	session, err := store.Take(context.Background(), testSessionID)
	require.NoError(t, err)
	require.Len(t, session.Rows, 2)
	assert.Equal(t, testSessionID, session.ID)

	// taken once, gone for everyone after
	_, err = store.Take(context.Background(), testSessionID)
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)

	_, err = store.Take(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, importer.ErrSessionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Update(t *testing.T) {
	store, mock := newTestSessionStore(t)
	key := "runlog-import-session||" + testSessionID
	stored, payload := storedTestSession(t)

	_, err := stored.EditRow(0, importer.FieldDate, "13/01/2025")
	require.NoError(t, err)
	updated, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectWatch(key)
	mock.ExpectGet(key).SetVal(string(payload))
	mock.ExpectTxPipeline()
	mock.ExpectSet(key, updated, 30*time.Minute).SetVal("OK")
	mock.ExpectTxPipelineExec()

	session, err := store.Update(context.Background(), testSessionID, func(s *importer.Session) error {
		_, err := s.EditRow(0, importer.FieldDate, "13/01/2025")
		return err
	})
	require.NoError(t, err)
	assert.True(t, session.Rows[0].Valid())
	assert.True(t, session.Rows[1].Valid())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Update_Errors(t *testing.T) {
	store, mock := newTestSessionStore(t)
	key := "runlog-import-session||" + testSessionID
	_, payload := storedTestSession(t)

	mock.ExpectWatch("runlog-import-session||gone")
	mock.ExpectGet("runlog-import-session||gone").RedisNil()
	_, err := store.Update(context.Background(), "gone", func(*importer.Session) error {
		t.Fatal("nothing to update")
		return nil
	})
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)

	// an error from the edit leaves the stored session untouched
	mock.ExpectWatch(key)
	mock.ExpectGet(key).SetVal(string(payload))
	_, err = store.Update(context.Background(), testSessionID, func(s *importer.Session) error {
		_, err := s.EditRow(7, importer.FieldDate, "13/01/2025")
		return err
	})
	assert.ErrorIs(t, err, importer.ErrRowOutOfRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Update_Conflict(t *testing.T) {
	store, mock := newTestSessionStore(t)
	key := "runlog-import-session||" + testSessionID
	_, payload := storedTestSession(t)

	// every attempt loses the race against another writer
	calls := 0
	for i := 0; i < 5; i++ {
		mock.ExpectWatch(key)
		mock.ExpectGet(key).SetVal(string(payload))
		mock.ExpectTxPipeline()
		mock.ExpectSet(key, payload, 30*time.Minute).SetVal("OK")
		mock.ExpectTxPipelineExec().SetErr(redis.TxFailedErr)
	}

	_, err := store.Update(context.Background(), testSessionID, func(*importer.Session) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, importer.ErrSessionConflict)
	assert.Equal(t, 5, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Update_RetriesAfterConflict(t *testing.T) {
	store, mock := newTestSessionStore(t)
	key := "runlog-import-session||" + testSessionID
	_, payload := storedTestSession(t)

	mock.ExpectWatch(key)
	mock.ExpectGet(key).SetVal(string(payload))
	mock.ExpectTxPipeline()
	mock.ExpectSet(key, payload, 30*time.Minute).SetVal("OK")
	mock.ExpectTxPipelineExec().SetErr(redis.TxFailedErr)

	mock.ExpectWatch(key)
	mock.ExpectGet(key).SetVal(string(payload))
	mock.ExpectTxPipeline()
	mock.ExpectSet(key, payload, 30*time.Minute).SetVal("OK")
	mock.ExpectTxPipelineExec()

	calls := 0
	_, err := store.Update(context.Background(), testSessionID, func(*importer.Session) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_EditRow(t *testing.T) {
	session := &importer.Session{
		ID:     testSessionID,
		Format: importer.FormatEU,
		Rows: importer.ResolveBatch(
			[]importer.RawRow{{"Date": "01/13/2025", "Distance": "5"}},
			testColumns,
			importer.FormatEU,
		),
	}
	require.False(t, session.Rows[0].Valid())

	row, err := session.EditRow(0, importer.FieldDate, "13/01/2025")
	require.NoError(t, err)
	assert.True(t, row.Valid())
	assert.True(t, session.Rows[0].Valid())
	assert.Equal(t, "2025-01-13", session.Rows[0].Date.String())

	_, err = session.EditRow(1, importer.FieldDate, "13/01/2025")
	assert.ErrorIs(t, err, importer.ErrRowOutOfRange)
	_, err = session.EditRow(-1, importer.FieldDate, "13/01/2025")
	assert.ErrorIs(t, err, importer.ErrRowOutOfRange)
}
