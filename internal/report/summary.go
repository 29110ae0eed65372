package report

import (
	"sort"
	"time"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

type IssueSummary struct {
	Total        int
	AvgCycleTime float64
	AvgLeadTime  float64
	Contributors []ContributorStats
	Weekly       []ThroughputBucket
	Monthly      []ThroughputBucket
}

// ContributorStats groups completed issues by assignee.
type ContributorStats struct {
	Name         string
	Completed    int
	AvgCycleTime float64
}

// ThroughputBucket counts issues completed in the period ending at End.
type ThroughputBucket struct {
	Label string
	End   time.Time
	Count int
}

type PullRequestSummary struct {
	Total         int
	AvgReviewTime float64
	AvgComments   float64
	AvgApprovals  float64
	ApprovalRate  float64 // percent of pull requests that were merged
	Authors       []AuthorStats
	ByState       map[metrics.PullRequestState]int
}

type AuthorStats struct {
	Name          string
	PullRequests  int
	AvgReviewTime float64
}

// SummarizeIssues aggregates completed issue metrics.
func SummarizeIssues(items []metrics.IssueMetric) IssueSummary {
	s := IssueSummary{Total: len(items)}
	if len(items) == 0 {
		return s
	}

	type acc struct {
		count int
		cycle int
	}
	byAssignee := make(map[string]*acc)

	var cycle, lead int
	for _, m := range items {
		cycle += m.CycleTime
		lead += m.LeadTime

		a := byAssignee[m.Assignee]
		if a == nil {
			a = &acc{}
			byAssignee[m.Assignee] = a
		}
		a.count++
		a.cycle += m.CycleTime
	}

	s.AvgCycleTime = mean(cycle, len(items))
	s.AvgLeadTime = mean(lead, len(items))

	for name, a := range byAssignee {
		s.Contributors = append(s.Contributors, ContributorStats{
			Name:         name,
			Completed:    a.count,
			AvgCycleTime: mean(a.cycle, a.count),
		})
	}
	sort.Slice(s.Contributors, func(i, j int) bool {
		return s.Contributors[i].Name < s.Contributors[j].Name
	})

	s.Weekly = WeeklyThroughput(items)
	s.Monthly = MonthlyThroughput(items)
	return s
}

// SummarizePullRequests aggregates pull request metrics.
func SummarizePullRequests(items []metrics.PullRequestMetric) PullRequestSummary {
	s := PullRequestSummary{
		Total:   len(items),
		ByState: make(map[metrics.PullRequestState]int),
	}
	if len(items) == 0 {
		return s
	}

	type acc struct {
		count  int
		review int
	}
	byAuthor := make(map[string]*acc)

	var review, comments, approvals int
	for _, m := range items {
		review += m.ReviewTime
		comments += m.CommentCount
		approvals += m.ApprovalCount
		s.ByState[m.State]++

		a := byAuthor[m.Author]
		if a == nil {
			a = &acc{}
			byAuthor[m.Author] = a
		}
		a.count++
		a.review += m.ReviewTime
	}

	s.AvgReviewTime = mean(review, len(items))
	s.AvgComments = mean(comments, len(items))
	s.AvgApprovals = mean(approvals, len(items))
	s.ApprovalRate = float64(s.ByState[metrics.StateMerged]) / float64(len(items)) * 100

	for name, a := range byAuthor {
		s.Authors = append(s.Authors, AuthorStats{
			Name:          name,
			PullRequests:  a.count,
			AvgReviewTime: mean(a.review, a.count),
		})
	}
	// most active first
	sort.Slice(s.Authors, func(i, j int) bool {
		if s.Authors[i].PullRequests != s.Authors[j].PullRequests {
			return s.Authors[i].PullRequests > s.Authors[j].PullRequests
		}
		return s.Authors[i].Name < s.Authors[j].Name
	})

	return s
}

// WeeklyThroughput counts completions per week, weeks ending on Sunday.
// Weeks without completions between the first and last are included.
func WeeklyThroughput(items []metrics.IssueMetric) []ThroughputBucket {
	return throughput(items, weekEnd, func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }, "2006-01-02")
}

// MonthlyThroughput counts completions per calendar month.
func MonthlyThroughput(items []metrics.IssueMetric) []ThroughputBucket {
	return throughput(items, monthEnd, func(t time.Time) time.Time { return monthEnd(t.AddDate(0, 0, 1)) }, "2006-01")
}

func throughput(items []metrics.IssueMetric, bucket func(time.Time) time.Time, next func(time.Time) time.Time, layout string) []ThroughputBucket {
	if len(items) == 0 {
		return nil
	}

	counts := make(map[time.Time]int)
	first, last := time.Time{}, time.Time{}
	for _, m := range items {
		end := bucket(metrics.TruncateDay(m.CompletionDate))
		counts[end]++
		if first.IsZero() || end.Before(first) {
			first = end
		}
		if end.After(last) {
			last = end
		}
	}

	var out []ThroughputBucket
	for end := first; !end.After(last); end = next(end) {
		out = append(out, ThroughputBucket{
			Label: end.Format(layout),
			End:   end,
			Count: counts[end],
		})
	}
	return out
}

func weekEnd(t time.Time) time.Time {
	return t.AddDate(0, 0, (7-int(t.Weekday()))%7)
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func mean(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
