package metrics

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ActivityFetcher returns the activity stream of a single pull request.
type ActivityFetcher interface {
	Activities(ctx context.Context, pr RawPullRequest) ([]Activity, error)
}

// ActivityFetcherFunc adapts a function to ActivityFetcher.
type ActivityFetcherFunc func(ctx context.Context, pr RawPullRequest) ([]Activity, error)

func (f ActivityFetcherFunc) Activities(ctx context.Context, pr RawPullRequest) ([]Activity, error) {
	return f(ctx, pr)
}

// DerivePullRequestMetric computes review time and activity counts. A negative
// review time is kept as is.
func DerivePullRequestMetric(pr RawPullRequest, activities []Activity) PullRequestMetric {
	created := TruncateDay(pr.Created)
	updated := TruncateDay(pr.Updated)

	var comments, approvals int
	for _, a := range activities {
		switch a.Action {
		case ActionCommented:
			comments++
		case ActionApproved:
			approvals++
		}
	}

	return PullRequestMetric{
		ID:            pr.ID,
		Author:        pr.Author,
		Created:       created,
		Updated:       updated,
		ReviewTime:    Days(created, updated),
		CommentCount:  comments,
		ApprovalCount: approvals,
		State:         pr.State,
	}
}

// DerivePullRequestMetrics fetches the activities of each pull request and
// derives its metric. A pull request whose activities cannot be fetched is
// skipped and its error collected; a cancelled context stops the batch.
func DerivePullRequestMetrics(ctx context.Context, prs []RawPullRequest, fetcher ActivityFetcher) ([]PullRequestMetric, error) {
	var result *multierror.Error
	out := make([]PullRequestMetric, 0, len(prs))

	for _, pr := range prs {
		if err := ctx.Err(); err != nil {
			return out, multierror.Append(result, err)
		}

		activities, err := fetcher.Activities(ctx, pr)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("pull request %d: fetching activities: %w", pr.ID, err))
			continue
		}

		out = append(out, DerivePullRequestMetric(pr, activities))
	}

	return out, result.ErrorOrNil()
}
