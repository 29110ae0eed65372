package devmetrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"

	"github.com/Afrawles/devmetrics/internal/fetch"
	"github.com/Afrawles/devmetrics/internal/metrics"
	"github.com/Afrawles/devmetrics/internal/report"
)

type IssueFetcher interface {
	Name() string
	FetchIssues(ctx context.Context, start time.Time) ([]metrics.RawIssue, error)
}

type PullRequestFetcher interface {
	metrics.ActivityFetcher
	Name() string
	FetchPullRequests(ctx context.Context, start time.Time) ([]metrics.RawPullRequest, error)
}

type IssuePipeline struct {
	Source   IssueFetcher
	Exporter *report.Exporter
	Out      io.Writer
}

var _ Pipeline = (*IssuePipeline)(nil)

func (p *IssuePipeline) Name() string {
	return p.Source.Name()
}

func (p *IssuePipeline) Run(ctx context.Context, start time.Time, logger *slog.Logger) (Result, error) {
	fmt.Fprintf(p.Out, "Fetching issues since %s...\n", start.Format(time.DateOnly))

	bar := newSpinner(p.Out, "Fetching issues")
	issues, err := p.Source.FetchIssues(ctx, start)
	finishBar(bar)
	if err := fetchFailure(logger, ctx, len(issues), err); err != nil {
		return Result{}, err
	}

	res := Result{Fetched: len(issues)}
	if len(issues) == 0 {
		fmt.Fprintln(p.Out, "\nNo issues found for the specified period.")
		return res, nil
	}

	fmt.Fprintf(p.Out, "\nCalculating metrics for %d issues...\n", len(issues))
	derived, err := metrics.DeriveIssueMetrics(issues)
	res.Derived = len(derived)
	res.Skipped = logRecordErrors(logger, ctx, "issue", err)

	if len(derived) == 0 {
		fmt.Fprintln(p.Out, "No completed issues found for the specified period.")
		return res, nil
	}

	fmt.Fprintln(p.Out, "Generating visualizations and saving data...")
	files, err := p.Exporter.ExportIssues(derived)
	res.Files = files
	printFiles(p.Out, files)
	if err != nil {
		return res, fmt.Errorf("exporting issue reports: %w", err)
	}

	summary := report.SummarizeIssues(derived)
	fmt.Fprintf(p.Out, "\nSummary Statistics:\n")
	fmt.Fprintf(p.Out, "  Total Issues: %d\n", summary.Total)
	fmt.Fprintf(p.Out, "  Average Cycle Time: %.2f days\n", summary.AvgCycleTime)
	fmt.Fprintf(p.Out, "  Average Lead Time: %.2f days\n", summary.AvgLeadTime)

	return res, nil
}

type PullRequestPipeline struct {
	Source   PullRequestFetcher
	Exporter *report.Exporter
	Out      io.Writer
}

var _ Pipeline = (*PullRequestPipeline)(nil)

func (p *PullRequestPipeline) Name() string {
	return p.Source.Name()
}

func (p *PullRequestPipeline) Run(ctx context.Context, start time.Time, logger *slog.Logger) (Result, error) {
	fmt.Fprintf(p.Out, "Fetching pull requests since %s...\n", start.Format(time.DateOnly))

	bar := newSpinner(p.Out, "Fetching pull requests")
	prs, err := p.Source.FetchPullRequests(ctx, start)
	finishBar(bar)
	if err := fetchFailure(logger, ctx, len(prs), err); err != nil {
		return Result{}, err
	}

	res := Result{Fetched: len(prs)}
	if len(prs) == 0 {
		fmt.Fprintln(p.Out, "\nNo pull requests found for the specified period.")
		return res, nil
	}

	fmt.Fprintf(p.Out, "\nCalculating metrics for %d pull requests...\n", len(prs))
	activityBar := progressbar.NewOptions(len(prs),
		progressbar.OptionSetWriter(p.Out),
		progressbar.OptionSetDescription("Fetching activity"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)
	fetcher := metrics.ActivityFetcherFunc(func(ctx context.Context, pr metrics.RawPullRequest) ([]metrics.Activity, error) {
		defer func() { _ = activityBar.Add(1) }()
		return p.Source.Activities(ctx, pr)
	})

	derived, err := metrics.DerivePullRequestMetrics(ctx, prs, fetcher)
	finishBar(activityBar)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	res.Derived = len(derived)
	res.Skipped = logRecordErrors(logger, ctx, "pull request", err)

	if len(derived) == 0 {
		if allUnauthorized(err) {
			return res, fmt.Errorf("fetching pull request activity: %w", err)
		}
		fmt.Fprintln(p.Out, "No pull request metrics could be derived for the specified period.")
		return res, nil
	}

	fmt.Fprintln(p.Out, "Generating visualizations and saving data...")
	files, err := p.Exporter.ExportPullRequests(derived)
	res.Files = files
	printFiles(p.Out, files)
	if err != nil {
		return res, fmt.Errorf("exporting pull request reports: %w", err)
	}

	summary := report.SummarizePullRequests(derived)
	fmt.Fprintf(p.Out, "\nSummary Statistics:\n")
	fmt.Fprintf(p.Out, "  Total PRs: %d\n", summary.Total)
	fmt.Fprintf(p.Out, "  Average Review Time: %.2f days\n", summary.AvgReviewTime)
	fmt.Fprintf(p.Out, "  Average Comments per PR: %.2f\n", summary.AvgComments)
	fmt.Fprintf(p.Out, "  Approval Rate: %.1f%%\n", summary.ApprovalRate)

	return res, nil
}

// fetchFailure decides whether a fetch error ends the pipeline. Auth failures
// and failures before any record arrived do; a later paging failure keeps
// the partial result.
func fetchFailure(logger *slog.Logger, ctx context.Context, fetched int, err error) error {
	if err == nil {
		return nil
	}
	if fetched == 0 || errors.Is(err, fetch.ErrUnauthorized) || ctx.Err() != nil {
		return err
	}
	logger.WarnContext(ctx, "fetch stopped early, continuing with partial results", "fetched", fetched, "error", err)
	return nil
}

// logRecordErrors logs per-record derivation failures and returns how many
// records were dropped.
func logRecordErrors(logger *slog.Logger, ctx context.Context, kind string, err error) int {
	if err == nil {
		return 0
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		logger.WarnContext(ctx, kind+" skipped", "error", err)
		return 1
	}
	for _, e := range merr.Errors {
		logger.WarnContext(ctx, kind+" skipped", "error", e)
	}
	return len(merr.Errors)
}

// allUnauthorized reports whether err holds at least one record error and
// every one of them is an authentication failure.
func allUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return errors.Is(err, fetch.ErrUnauthorized)
	}
	if len(merr.Errors) == 0 {
		return false
	}
	for _, e := range merr.Errors {
		if !errors.Is(e, fetch.ErrUnauthorized) {
			return false
		}
	}
	return true
}

func printFiles(w io.Writer, files []string) {
	for _, f := range files {
		fmt.Fprintf(w, "  -> %s\n", f)
	}
}

func (app *Application) httpClient(insecureSkipVerify bool) *http.Client {
	return &http.Client{
		Timeout:   app.Config.Fetch.Timeout,
		Transport: fetch.NewTransport(insecureSkipVerify),
	}
}

func newSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
