package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actions(names ...string) []Activity {
	out := make([]Activity, len(names))
	for i, n := range names {
		out[i] = Activity{Action: n}
	}
	return out
}

func TestDerivePullRequestMetric(t *testing.T) {
	pr := RawPullRequest{
		ID:      42,
		Author:  "Grace Hopper",
		Created: day("2025-02-01"),
		Updated: day("2025-02-03"),
		State:   StateMerged,
	}

	got := DerivePullRequestMetric(pr, actions(ActionCommented, ActionCommented, ActionApproved))

	assert.Equal(t, PullRequestMetric{
		ID:            42,
		Author:        "Grace Hopper",
		Created:       day("2025-02-01"),
		Updated:       day("2025-02-03"),
		ReviewTime:    2,
		CommentCount:  2,
		ApprovalCount: 1,
		State:         StateMerged,
	}, got)
}

func TestDerivePullRequestMetric_CountsAreOrderIndependent(t *testing.T) {
	pr := RawPullRequest{ID: 1, Created: day("2025-02-01"), Updated: day("2025-02-01")}

	a := DerivePullRequestMetric(pr, actions("OPENED", ActionCommented, "RESCOPED", ActionApproved, ActionCommented, "MERGED"))
	b := DerivePullRequestMetric(pr, actions(ActionCommented, "MERGED", ActionCommented, ActionApproved, "RESCOPED", "OPENED"))

	assert.Equal(t, 2, a.CommentCount)
	assert.Equal(t, 1, a.ApprovalCount)
	assert.Equal(t, a, b)
	assert.Equal(t, 0, a.ReviewTime)
}

func TestDerivePullRequestMetric_NegativeReviewTimePassesThrough(t *testing.T) {
	pr := RawPullRequest{ID: 7, Created: day("2025-02-05"), Updated: day("2025-02-03")}

	got := DerivePullRequestMetric(pr, nil)
	assert.Equal(t, -2, got.ReviewTime)
}

func TestDerivePullRequestMetrics_SkipsFailedActivityFetch(t *testing.T) {
	prs := []RawPullRequest{
		{ID: 1, Created: day("2025-02-01"), Updated: day("2025-02-02")},
		{ID: 2, Created: day("2025-02-01"), Updated: day("2025-02-04")},
		{ID: 3, Created: day("2025-02-01"), Updated: day("2025-02-05")},
	}
	boom := errors.New("boom")

	fetcher := ActivityFetcherFunc(func(_ context.Context, pr RawPullRequest) ([]Activity, error) {
		if pr.ID == 2 {
			return nil, boom
		}
		return actions(ActionApproved), nil
	})

	got, err := DerivePullRequestMetrics(context.Background(), prs, fetcher)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "pull request 2")

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
	assert.Equal(t, 1, got[1].ApprovalCount)
}

func TestDerivePullRequestMetrics_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prs := []RawPullRequest{{ID: 1}, {ID: 2}}

	calls := 0
	fetcher := ActivityFetcherFunc(func(_ context.Context, _ RawPullRequest) ([]Activity, error) {
		calls++
		cancel()
		return nil, nil
	})

	got, err := DerivePullRequestMetrics(ctx, prs, fetcher)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, calls)
}
