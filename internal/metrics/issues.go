package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

var ErrMissingCreated = errors.New("issue has no creation date")

// DeriveIssueMetric scans the status transitions of one issue. The first move
// into In Progress marks the start of work and the last move into Done marks
// completion, so reopened issues report their final completion. ok is false
// when the issue never reached Done.
func DeriveIssueMetric(issue RawIssue) (metric IssueMetric, ok bool, err error) {
	if issue.Created.IsZero() {
		return IssueMetric{}, false, fmt.Errorf("issue %s: %w", issue.Key, ErrMissingCreated)
	}

	created := TruncateDay(issue.Created)

	var start, completion *time.Time
	for _, entry := range issue.History {
		if entry.Created.IsZero() {
			continue
		}
		date := TruncateDay(entry.Created)

		for _, item := range entry.Items {
			if item.Field != fieldStatus {
				continue
			}
			switch item.To {
			case StatusInProgress:
				if start == nil {
					start = &date
				}
			case StatusDone:
				completion = &date
			}
		}
	}

	if completion == nil {
		return IssueMetric{}, false, nil
	}

	workStart := created
	if start != nil && start.After(created) {
		workStart = *start
	}

	assignee := issue.Assignee
	if assignee == "" {
		assignee = Unassigned
	}

	return IssueMetric{
		IssueKey:       issue.Key,
		Assignee:       assignee,
		Created:        created,
		CompletionDate: *completion,
		CycleTime:      Days(workStart, *completion),
		LeadTime:       Days(created, *completion),
	}, true, nil
}

// DeriveIssueMetrics derives every completed issue in the batch. Issues that
// fail are left out and their errors are returned together with the rest of
// the batch.
func DeriveIssueMetrics(issues []RawIssue) ([]IssueMetric, error) {
	var result *multierror.Error
	out := make([]IssueMetric, 0, len(issues))

	for _, issue := range issues {
		metric, ok, err := DeriveIssueMetric(issue)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if ok {
			out = append(out, metric)
		}
	}

	return out, result.ErrorOrNil()
}
