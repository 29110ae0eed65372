package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/metrics"
)

func newTestSource(t *testing.T, token string, handler http.HandlerFunc) (*IssueSource, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.JiraConfig{BaseURL: srv.URL, APIKey: token}, WithHTTPClient(srv.Client()))
	return NewIssueSource(client, "PROJ", 2, 10), srv
}

func issueJSON(key, created string, histories ...History) Issue {
	return Issue{
		Key:       key,
		Fields:    IssueFields{Created: created, Summary: "summary " + key},
		Changelog: Changelog{Histories: histories},
	}
}

func TestFetchIssues_PaginatesAndConverts(t *testing.T) {
	pages := map[int][]Issue{
		0: {
			issueJSON("PROJ-1", "2025-01-01T09:00:00.000+0000",
				History{Created: "2025-01-03T10:00:00.000+0000", Items: []HistoryItem{{Field: "status", FromString: "To Do", ToString: "In Progress"}}},
				History{Created: "2025-01-10T18:30:00.000+0000", Items: []HistoryItem{{Field: "status", FromString: "In Progress", ToString: "Done"}}},
			),
			issueJSON("PROJ-2", "2024-12-30T09:00:00.000+0000"),
		},
		2: {issueJSON("PROJ-3", "2025-01-05T00:00:00.000+0000")},
	}

	var starts []int
	src, _ := newTestSource(t, "pat-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, searchPath, r.URL.Path)
		assert.Equal(t, "Bearer pat-123", r.Header.Get("Authorization"))
		assert.Equal(t, `project = PROJ AND updated >= "2025-01-01" ORDER BY updated DESC`, r.URL.Query().Get("jql"))
		assert.Equal(t, "changelog", r.URL.Query().Get("expand"))
		assert.Equal(t, "2", r.URL.Query().Get("maxResults"))

		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		starts = append(starts, startAt)
		_ = json.NewEncoder(w).Encode(SearchResult{StartAt: startAt, MaxResults: 2, Total: 3, Issues: pages[startAt]})
	})

	issues, err := src.FetchIssues(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, starts)

	require.Len(t, issues, 2, "PROJ-2 was created before the start date")
	assert.Equal(t, "PROJ-1", issues[0].Key)
	assert.Equal(t, "PROJ-3", issues[1].Key)

	first := issues[0]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), first.Created)
	assert.Empty(t, first.Assignee)
	require.Len(t, first.History, 2)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), first.History[1].Created)
	assert.Equal(t, metrics.FieldChange{Field: "status", From: "In Progress", To: "Done"}, first.History[1].Items[0])

	metric, ok, err := metrics.DeriveIssueMetric(first)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, metric.CycleTime)
	assert.Equal(t, 9, metric.LeadTime)
}

func TestFetchIssues_ServerLowersMaxResults(t *testing.T) {
	all := []Issue{
		issueJSON("PROJ-1", "2025-01-02T09:00:00.000+0000"),
		issueJSON("PROJ-2", "2025-01-02T09:00:00.000+0000"),
		issueJSON("PROJ-3", "2025-01-03T09:00:00.000+0000"),
		issueJSON("PROJ-4", "2025-01-04T09:00:00.000+0000"),
		issueJSON("PROJ-5", "2025-01-05T09:00:00.000+0000"),
	}
	const serverMax = 2

	var starts []int
	src, _ := newTestSource(t, "pat-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		starts = append(starts, startAt)

		end := min(startAt+serverMax, len(all))
		_ = json.NewEncoder(w).Encode(SearchResult{StartAt: startAt, MaxResults: serverMax, Total: len(all), Issues: all[startAt:end]})
	})
	src.PageLimit = 5

	issues, err := src.FetchIssues(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, starts)
	require.Len(t, issues, 5)
	assert.Equal(t, "PROJ-5", issues[4].Key)
}

func TestFetchIssues_MissingTokenIsAuthFailure(t *testing.T) {
	called := false
	src, _ := newTestSource(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	issues, err := src.FetchIssues(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrUnauthorized)
	assert.Empty(t, issues)
	assert.False(t, called, "no request should be sent without credentials")
}

func TestFetchIssues_Rejected(t *testing.T) {
	src, _ := newTestSource(t, "bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errorMessages":["unauthorized"]}`)
	})

	_, err := src.FetchIssues(context.Background(), time.Now())
	assert.ErrorIs(t, err, fetch.ErrUnauthorized)
}

func TestFetchIssues_PartialOnLaterPageError(t *testing.T) {
	src, _ := newTestSource(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startAt") != "0" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(SearchResult{Issues: []Issue{
			issueJSON("PROJ-1", "2025-01-02T00:00:00.000+0000"),
			issueJSON("PROJ-2", "2025-01-02T00:00:00.000+0000"),
		}})
	})

	issues, err := src.FetchIssues(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.NotErrorIs(t, err, fetch.ErrUnauthorized)
	assert.Len(t, issues, 2)
}

func TestToRawIssue_AssigneeAndMalformedDates(t *testing.T) {
	issue := issueJSON("PROJ-9", "garbage", History{Created: "", Items: []HistoryItem{{Field: "status", ToString: "Done"}}})
	issue.Fields.Assignee = &User{DisplayName: "Linus"}

	raw := toRawIssue(issue)
	assert.Equal(t, "Linus", raw.Assignee)
	assert.True(t, raw.Created.IsZero())
	assert.True(t, raw.History[0].Created.IsZero())
}

func TestMyself(t *testing.T) {
	src, _ := newTestSource(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, myselfPath, r.URL.Path)
		fmt.Fprint(w, `{"name":"jdoe","displayName":"Jane Doe","emailAddress":"jane@example.com"}`)
	})

	user, err := src.Client.Myself(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.DisplayName)
}
