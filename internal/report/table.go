package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

const dateLayout = "2006-01-02"

// table is the shape every writer (xlsx, csv, html) renders.
type table struct {
	Headers []string
	Rows    [][]any
}

func issueTable(items []metrics.IssueMetric) table {
	t := table{Headers: []string{"issue_key", "assignee", "created_date", "completion_date", "cycle_time", "lead_time"}}
	for _, m := range items {
		t.Rows = append(t.Rows, []any{
			m.IssueKey,
			m.Assignee,
			m.Created.Format(dateLayout),
			m.CompletionDate.Format(dateLayout),
			m.CycleTime,
			m.LeadTime,
		})
	}
	return t
}

func pullRequestTable(items []metrics.PullRequestMetric) table {
	t := table{Headers: []string{"pr_id", "author", "created_date", "completion_date", "review_time_days", "comment_count", "approval_count", "state"}}
	for _, m := range items {
		t.Rows = append(t.Rows, []any{
			m.ID,
			m.Author,
			m.Created.Format(dateLayout),
			m.Updated.Format(dateLayout),
			m.ReviewTime,
			m.CommentCount,
			m.ApprovalCount,
			string(m.State),
		})
	}
	return t
}

func issueSummaryTable(s IssueSummary) table {
	return table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Total Issues", s.Total},
			{"Average Cycle Time (days)", round2(s.AvgCycleTime)},
			{"Average Lead Time (days)", round2(s.AvgLeadTime)},
		},
	}
}

func pullRequestSummaryTable(s PullRequestSummary) table {
	return table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Total PRs", s.Total},
			{"Average Review Time (days)", round2(s.AvgReviewTime)},
			{"Average Comments per PR", round2(s.AvgComments)},
			{"Average Approvals per PR", round2(s.AvgApprovals)},
			{"Approval Rate (%)", round2(s.ApprovalRate)},
		},
	}
}

func contributorTable(s IssueSummary) table {
	t := table{Headers: []string{"assignee", "completed", "avg_cycle_time"}}
	for _, c := range s.Contributors {
		t.Rows = append(t.Rows, []any{c.Name, c.Completed, round2(c.AvgCycleTime)})
	}
	return t
}

func throughputTable(buckets []ThroughputBucket, period string) table {
	t := table{Headers: []string{period, "completed"}}
	for _, b := range buckets {
		t.Rows = append(t.Rows, []any{b.Label, b.Count})
	}
	return t
}

func authorTable(s PullRequestSummary) table {
	t := table{Headers: []string{"author", "pull_requests", "avg_review_time"}}
	for _, a := range s.Authors {
		t.Rows = append(t.Rows, []any{a.Name, a.PullRequests, round2(a.AvgReviewTime)})
	}
	return t
}

func stateTable(s PullRequestSummary) table {
	states := make([]string, 0, len(s.ByState))
	for st := range s.ByState {
		states = append(states, string(st))
	}
	sort.Strings(states)

	t := table{Headers: []string{"state", "pull_requests"}}
	for _, st := range states {
		t.Rows = append(t.Rows, []any{st, s.ByState[metrics.PullRequestState(st)]})
	}
	return t
}

func (t table) stringRows() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		out = append(out, cells)
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
