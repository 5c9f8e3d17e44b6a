//go:build integration_test || all_tests

package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/runstats/handlers"
	"github.com/2beens/runlog/internal/runstats/importer"
	"github.com/2beens/runlog/internal/runstats/routes"
	"github.com/2beens/runlog/internal/runstats/runs"
)

func (s *IntegrationTestSuite) TestLogin() {
	ctx := context.Background()

	resp, _ := s.do(ctx, http.MethodPost, "/a/login", auth.Credentials{
		Username: testUsername,
		Password: "bad-password",
	}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(ctx, http.MethodGet, "/stats/summary", nil, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	token := s.login(ctx)
	resp, _ = s.do(ctx, http.MethodGet, "/stats/summary", nil, token)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.do(ctx, http.MethodGet, "/a/logout", nil, token)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.do(ctx, http.MethodGet, "/stats/summary", nil, token)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestRunsCRUD() {
	ctx := context.Background()

	resp, body := s.doAuthed(ctx, http.MethodPost, "/runs", map[string]any{
		"date":       "2025-12-01",
		"distanceKm": 5,
		"duration":   "25:00",
		"effort":     3,
		"notes":      "easy",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var added map[string]any
	s.decode(body, &added)
	s.Equal("5:00", added["pace"])
	s.Equal("Moderate", added["effortLabel"])
	runID := int(added["id"].(float64))

	resp, body = s.doAuthed(ctx, http.MethodPost, "/runs", map[string]any{
		"date":       "2025-12-01",
		"distanceKm": -1,
		"duration":   "25:00",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = s.doAuthed(ctx, http.MethodPatch, fmt.Sprintf("/runs/%d", runID), map[string]any{
		"distanceKm": 6,
		"notes":      "tempo",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var patched runs.Run
	s.decode(body, &patched)
	s.Equal(6.0, patched.DistanceKm)
	s.Equal("tempo", patched.Notes)
	s.Equal(1500, patched.DurationSeconds)

	resp, body = s.doAuthed(ctx, http.MethodGet, "/runs/list/page/1/size/10", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var list handlers.RunsListResponse
	s.decode(body, &list)
	s.Equal(1, list.Total)
	s.Require().Len(list.Runs, 1)

	resp, _ = s.doAuthed(ctx, http.MethodDelete, fmt.Sprintf("/runs/%d", runID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.doAuthed(ctx, http.MethodGet, fmt.Sprintf("/runs/%d", runID), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestRouteDeleteUnlinksRuns() {
	ctx := context.Background()

	resp, body := s.doAuthed(ctx, http.MethodPost, "/routes", routes.Route{
		Name:        "park loop",
		Coordinates: []routes.Point{{44.8125, 20.4612}, {44.8206, 20.4522}},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var route routes.Route
	s.decode(body, &route)
	s.Greater(route.DistanceKm, 0.0)

	resp, body = s.doAuthed(ctx, http.MethodPost, "/runs", map[string]any{
		"date":       "2025-12-02",
		"distanceKm": 4,
		"duration":   "22:00",
		"routeId":    route.ID,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var run runs.Run
	s.decode(body, &run)

	resp, body = s.doAuthed(ctx, http.MethodDelete, fmt.Sprintf("/routes/%d", route.ID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var deleted handlers.DeleteRouteResponse
	s.decode(body, &deleted)
	s.Equal(int64(1), deleted.UnlinkedRuns)

	resp, body = s.doAuthed(ctx, http.MethodGet, fmt.Sprintf("/runs/%d", run.ID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var got runs.Run
	s.decode(body, &got)
	s.Nil(got.RouteID)
}

func (s *IntegrationTestSuite) TestStats() {
	ctx := context.Background()

	for _, r := range []map[string]any{
		{"date": "2025-12-01", "distanceKm": 5, "duration": "25:00"},
		{"date": "2025-12-03", "distanceKm": 10, "duration": "55:00"},
		{"date": "2025-12-08", "distanceKm": 8, "duration": "40:00"},
	} {
		resp, body := s.doAuthed(ctx, http.MethodPost, "/runs", r)
		s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := s.doAuthed(ctx, http.MethodGet, "/stats/weeks?range=all", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var weeks handlers.WeeksResponse
	s.decode(body, &weeks)
	s.Require().Len(weeks.Weeks, 2)
	s.Equal("2025-W49", weeks.Weeks[0].WeekID)
	s.Equal(2, weeks.Weeks[0].Runs)
	s.Equal(15.0, weeks.Weeks[0].TotalDistanceKm)
	s.Equal("2025-W50", weeks.Weeks[1].WeekID)

	// served from the cache until the runs change
	resp, cachedBody := s.doAuthed(ctx, http.MethodGet, "/stats/weeks?range=all", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(body, cachedBody)

	resp, body = s.doAuthed(ctx, http.MethodPost, "/runs", map[string]any{
		"date": "2025-12-09", "distanceKm": 3, "duration": "18:00",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.doAuthed(ctx, http.MethodGet, "/stats/weeks?range=all", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decode(body, &weeks)
	s.Require().Len(weeks.Weeks, 2)
	s.Equal(2, weeks.Weeks[1].Runs)

	resp, body = s.doAuthed(ctx, http.MethodGet, "/stats/summary", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var summary handlers.SummaryResponse
	s.decode(body, &summary)
	s.Equal(4, summary.Summary.TotalRuns)
	s.Equal(26.0, summary.Summary.TotalDistanceKm)
	s.Equal(10.0, summary.Summary.LongestRunKm)

	resp, body = s.doAuthed(ctx, http.MethodGet, "/stats/trend?range=all", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var trend handlers.TrendResponse
	s.decode(body, &trend)
	s.Require().NotNil(trend.Trend)
	s.Equal("2025-W50", trend.Trend.CurrentWeekID)
	s.Equal("2025-W49", trend.Trend.PreviousWeekID)

	resp, _ = s.doAuthed(ctx, http.MethodGet, "/stats/weeks?range=fortnight", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestImportSessionFlow() {
	ctx := context.Background()

	resp, body := s.doAuthed(ctx, http.MethodPost, "/import/sessions", handlers.CreateSessionRequest{
		Headers: []string{"Date", "Distance", "Duration"},
		Rows: []importer.RawRow{
			{"Date": "12/01/2025", "Distance": "5", "Duration": "25:00"},
			{"Date": "31/12/2025", "Distance": "8", "Duration": "40:00"},
			{"Date": "12/05/2025", "Distance": "x", "Duration": "30:00"},
		},
		Format: string(importer.FormatUS),
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var created handlers.SessionResponse
	s.decode(body, &created)
	s.Equal(3, created.Summary.Total)
	s.Equal(1, created.Summary.Valid)
	sessionID := created.Session.ID

	resp, body = s.doAuthed(ctx, http.MethodPut, fmt.Sprintf("/import/sessions/%s/rows/1", sessionID), handlers.EditRowRequest{
		Field: importer.FieldDate,
		Value: "12/31/2025",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var edited handlers.EditRowResponse
	s.decode(body, &edited)
	s.True(edited.Row.Valid())
	s.Equal(2, edited.Summary.Valid)

	resp, body = s.doAuthed(ctx, http.MethodPost, fmt.Sprintf("/import/sessions/%s/commit", sessionID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var committed handlers.CommitResponse
	s.decode(body, &committed)
	s.Equal(2, committed.Success)
	s.Equal(1, committed.Skipped)
	s.Empty(committed.Error)

	resp, _ = s.doAuthed(ctx, http.MethodGet, "/import/sessions/"+sessionID, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	// committing again must not store the rows a second time
	resp, _ = s.doAuthed(ctx, http.MethodPost, fmt.Sprintf("/import/sessions/%s/commit", sessionID), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, body = s.doAuthed(ctx, http.MethodGet, "/runs/list/page/1/size/10", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var list handlers.RunsListResponse
	s.decode(body, &list)
	s.Equal(2, list.Total)
	s.True(strings.HasPrefix(list.Runs[0].Date.String(), "2025-12-31"))
}
