// Package bitbucket fetches pull requests and their activity streams from
// Bitbucket Server.
package bitbucket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/metrics"
)

// PullRequestSource pages through the pull requests of one repository.
type PullRequestSource struct {
	Client    *Client
	PageLimit int
	MaxPages  int
	Logger    *slog.Logger
}

var _ metrics.ActivityFetcher = (*PullRequestSource)(nil)

func NewPullRequestSource(client *Client, pageLimit, maxPages int) *PullRequestSource {
	return &PullRequestSource{
		Client:    client,
		PageLimit: pageLimit,
		MaxPages:  maxPages,
		Logger:    slog.Default(),
	}
}

func (s *PullRequestSource) Name() string {
	return "Bitbucket"
}

// FetchPullRequests returns the pull requests created on or after start. If
// paging fails part way, the pull requests read so far are returned along
// with the error.
func (s *PullRequestSource) FetchPullRequests(ctx context.Context, start time.Time) ([]metrics.RawPullRequest, error) {
	prs, err := fetch.Paginate(ctx, s.PageLimit, s.MaxPages, func(ctx context.Context, offset, limit int) ([]PullRequest, error) {
		page, err := s.Client.PullRequests(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		s.Logger.DebugContext(ctx, "pull request page fetched", "start", offset, "count", len(page))
		return page, nil
	})

	raw := make([]metrics.RawPullRequest, 0, len(prs))
	for _, pr := range prs {
		raw = append(raw, toRawPullRequest(pr))
	}

	raw = fetch.FilterCreated(raw, start, func(pr metrics.RawPullRequest) time.Time { return pr.Created })
	if err != nil {
		return raw, fmt.Errorf("listing bitbucket pull requests: %w", err)
	}
	return raw, nil
}

// Activities fetches the full activity stream of pr.
func (s *PullRequestSource) Activities(ctx context.Context, pr metrics.RawPullRequest) ([]metrics.Activity, error) {
	activities, err := fetch.Paginate(ctx, s.PageLimit, s.MaxPages, func(ctx context.Context, offset, limit int) ([]Activity, error) {
		return s.Client.PullRequestActivities(ctx, pr.ID, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	out := make([]metrics.Activity, 0, len(activities))
	for _, a := range activities {
		out = append(out, metrics.Activity{
			Action:  a.Action,
			Actor:   a.User.DisplayName,
			Created: fromMillis(a.CreatedDate),
		})
	}
	return out, nil
}

func toRawPullRequest(pr PullRequest) metrics.RawPullRequest {
	return metrics.RawPullRequest{
		ID:      pr.ID,
		Title:   pr.Title,
		Author:  pr.Author.User.DisplayName,
		Created: metrics.TruncateDay(fromMillis(pr.CreatedDate)),
		Updated: metrics.TruncateDay(fromMillis(pr.UpdatedDate)),
		State:   metrics.PullRequestState(pr.State),
	}
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
