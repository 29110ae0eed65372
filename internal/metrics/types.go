// Package metrics derives per-item timing and activity figures from issue
// change histories and pull request activity streams.
package metrics

import "time"

// Unassigned is the assignee recorded for issues nobody owns.
const Unassigned = "Unassigned"

// Status transition targets that drive the issue deriver.
const (
	StatusInProgress = "In Progress"
	StatusDone       = "Done"

	fieldStatus = "status"
)

// Activity actions counted by the pull request deriver.
const (
	ActionCommented = "COMMENTED"
	ActionApproved  = "APPROVED"
)

type PullRequestState string

const (
	StateOpen       PullRequestState = "OPEN"
	StateMerged     PullRequestState = "MERGED"
	StateDeclined   PullRequestState = "DECLINED"
	StateSuperseded PullRequestState = "SUPERSEDED"
)

// RawIssue is an issue as fetched from the tracker, dates already truncated
// to the day.
type RawIssue struct {
	Key      string
	Summary  string
	Created  time.Time
	Assignee string // empty when nobody is assigned
	History  []HistoryEntry
}

type HistoryEntry struct {
	Created time.Time
	Items   []FieldChange
}

type FieldChange struct {
	Field string
	From  string
	To    string
}

// RawPullRequest is a pull request as listed by the code-review service.
type RawPullRequest struct {
	ID      int
	Title   string
	Author  string
	Created time.Time
	Updated time.Time
	State   PullRequestState
}

type Activity struct {
	Action  string
	Actor   string
	Created time.Time
}

// IssueMetric is one completed issue. CycleTime and LeadTime are whole days.
type IssueMetric struct {
	IssueKey       string    `json:"issue_key"`
	Assignee       string    `json:"assignee"`
	Created        time.Time `json:"created_date"`
	CompletionDate time.Time `json:"completion_date"`
	CycleTime      int       `json:"cycle_time"`
	LeadTime       int       `json:"lead_time"`
}

// PullRequestMetric is one pull request. Updated stands in for the
// completion date.
type PullRequestMetric struct {
	ID            int              `json:"pr_id"`
	Author        string           `json:"author"`
	Created       time.Time        `json:"created_date"`
	Updated       time.Time        `json:"completion_date"`
	ReviewTime    int              `json:"review_time_days"`
	CommentCount  int              `json:"comment_count"`
	ApprovalCount int              `json:"approval_count"`
	State         PullRequestState `json:"state"`
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days returns the whole number of calendar days from a to b.
func Days(a, b time.Time) int {
	return int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
}
