// Package devmetrics wires the issue and pull request pipelines together.
package devmetrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/Afrawles/devmetrics/internal/bitbucket"
	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/jira"
	"github.com/Afrawles/devmetrics/internal/report"
)

// Pipeline is one fetch, derive, report run against a single service. Run
// logs through the logger it is given, which carries the run's ID.
type Pipeline interface {
	Name() string
	Run(ctx context.Context, start time.Time, logger *slog.Logger) (Result, error)
}

// Result describes what a pipeline produced.
type Result struct {
	Fetched int
	Derived int
	Skipped int
	Files   []string
}

type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
}

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func New(cfg *config.Config, logger *slog.Logger) *Application {
	slog.SetDefault(logger)
	return &Application{
		Config: cfg,
		Logger: logger,
		Out:    os.Stdout,
	}
}

// IssuePipeline builds the Jira pipeline from configuration.
func (app *Application) IssuePipeline(start time.Time) *IssuePipeline {
	cfg := app.Config
	client := jira.NewClient(cfg.Jira,
		jira.WithLogger(app.Logger),
		jira.WithRateLimit(cfg.Fetch.RequestsPerSecond),
		jira.WithHTTPClient(app.httpClient(cfg.Jira.InsecureSkipVerify)),
	)
	source := jira.NewIssueSource(client, cfg.Jira.ProjectKey, cfg.Fetch.PageLimit, cfg.Fetch.MaxPages)
	source.Logger = app.Logger

	return &IssuePipeline{
		Source:   source,
		Exporter: report.NewExporter(cfg.Output.Directory, start, cfg.Output.Format),
		Out:      app.Out,
	}
}

// PullRequestPipeline builds the Bitbucket pipeline from configuration.
func (app *Application) PullRequestPipeline(start time.Time) *PullRequestPipeline {
	cfg := app.Config
	client := bitbucket.NewClient(cfg.Bitbucket,
		bitbucket.WithLogger(app.Logger),
		bitbucket.WithRateLimit(cfg.Fetch.RequestsPerSecond),
		bitbucket.WithHTTPClient(app.httpClient(cfg.Bitbucket.InsecureSkipVerify)),
	)
	source := bitbucket.NewPullRequestSource(client, cfg.Fetch.PageLimit, cfg.Fetch.MaxPages)
	source.Logger = app.Logger

	return &PullRequestPipeline{
		Source:   source,
		Exporter: report.NewExporter(cfg.Output.Directory, start, cfg.Output.Format),
		Out:      app.Out,
	}
}

// Run executes the pipelines one after another. A failing pipeline is
// reported and does not stop the others; the failures are returned together.
func (app *Application) Run(ctx context.Context, start time.Time, pipelines ...Pipeline) error {
	var result *multierror.Error

	for _, p := range pipelines {
		select {
		case <-ctx.Done():
			return multierror.Append(result, ctx.Err())
		default:
		}

		runID := uuid.NewString()
		logger := app.Logger.With("pipeline", p.Name(), "run_id", runID)
		logger.InfoContext(ctx, "pipeline starting", "start", start.Format(time.DateOnly))

		began := time.Now()
		res, err := p.Run(ctx, start, logger)
		if err != nil {
			logger.ErrorContext(ctx, "pipeline failed", "error", err)
			fmt.Fprintf(app.Out, "\n%s failed: %v\n", p.Name(), err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		logger.InfoContext(ctx, "pipeline complete",
			"fetched", res.Fetched,
			"derived", res.Derived,
			"skipped", res.Skipped,
			"files", len(res.Files),
			"elapsed", time.Since(began),
		)
	}

	return result.ErrorOrNil()
}
