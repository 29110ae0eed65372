// Package jira fetches issues and their status histories from Jira.
package jira

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/metrics"
)

const dateLayout = "2006-01-02"

// IssueSource pages through the issues of one project.
type IssueSource struct {
	Client     *Client
	ProjectKey string
	PageLimit  int
	MaxPages   int
	Logger     *slog.Logger
}

func NewIssueSource(client *Client, projectKey string, pageLimit, maxPages int) *IssueSource {
	return &IssueSource{
		Client:     client,
		ProjectKey: projectKey,
		PageLimit:  pageLimit,
		MaxPages:   maxPages,
		Logger:     slog.Default(),
	}
}

func (s *IssueSource) Name() string {
	return "Jira"
}

// JQL selects the project's issues updated on or after start.
func (s *IssueSource) JQL(start time.Time) string {
	return fmt.Sprintf(`project = %s AND updated >= "%s" ORDER BY updated DESC`, s.ProjectKey, start.Format(dateLayout))
}

// FetchIssues returns every issue updated since start that was also created
// on or after start. If paging fails part way, the issues read so far are
// returned along with the error.
func (s *IssueSource) FetchIssues(ctx context.Context, start time.Time) ([]metrics.RawIssue, error) {
	jql := s.JQL(start)
	s.Logger.InfoContext(ctx, "searching issues", "jql", jql)

	// Jira may lower maxResults below the request when changelogs are expanded.
	issues, err := fetch.PaginateSized(ctx, s.PageLimit, s.MaxPages, func(ctx context.Context, startAt, limit int) ([]Issue, int, error) {
		result, err := s.Client.SearchIssues(ctx, jql, startAt, limit)
		if err != nil {
			return nil, 0, err
		}
		s.Logger.DebugContext(ctx, "issue page fetched", "start_at", startAt, "count", len(result.Issues), "max_results", result.MaxResults, "total", result.Total)
		return result.Issues, result.MaxResults, nil
	})

	raw := make([]metrics.RawIssue, 0, len(issues))
	for _, issue := range issues {
		raw = append(raw, toRawIssue(issue))
	}

	raw = fetch.FilterCreated(raw, start, func(i metrics.RawIssue) time.Time { return i.Created })
	if err != nil {
		return raw, fmt.Errorf("searching jira issues: %w", err)
	}
	return raw, nil
}

func toRawIssue(issue Issue) metrics.RawIssue {
	raw := metrics.RawIssue{
		Key:     issue.Key,
		Summary: issue.Fields.Summary,
		Created: parseDay(issue.Fields.Created),
	}
	if issue.Fields.Assignee != nil {
		raw.Assignee = issue.Fields.Assignee.DisplayName
	}

	for _, h := range issue.Changelog.Histories {
		entry := metrics.HistoryEntry{Created: parseDay(h.Created)}
		for _, item := range h.Items {
			entry.Items = append(entry.Items, metrics.FieldChange{
				Field: item.Field,
				From:  item.FromString,
				To:    item.ToString,
			})
		}
		raw.History = append(raw.History, entry)
	}

	return raw
}

// parseDay reads the calendar date from a Jira timestamp such as
// 2025-01-03T10:15:30.000+0000. Unparseable values yield the zero time.
func parseDay(s string) time.Time {
	if len(s) < len(dateLayout) {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return time.Time{}
	}
	return t
}
