package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

//go:embed "templates"
var templateFS embed.FS

// Exporter writes report files named {start_date}_{name} into OutputDir.
type Exporter struct {
	OutputDir string
	StartDate string
	Formats   []string
}

func NewExporter(outputDir string, start time.Time, formats []string) *Exporter {
	return &Exporter{
		OutputDir: outputDir,
		StartDate: start.Format(dateLayout),
		Formats:   formats,
	}
}

// FileName returns the output path for a logical report name.
func (e *Exporter) FileName(name string) string {
	return filepath.Join(e.OutputDir, fmt.Sprintf("%s_%s", e.StartDate, name))
}

func (e *Exporter) enabled(format string) bool {
	return slices.Contains(e.Formats, format)
}

// artifact is one file a pipeline may produce.
type artifact struct {
	format string
	name   string
	write  func(path string) error
}

// ExportIssues writes every enabled issue report. It keeps going when one
// file fails and returns the paths written plus the collected errors.
func (e *Exporter) ExportIssues(items []metrics.IssueMetric) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	summary := SummarizeIssues(items)

	charts := []string{"cycle_time_distribution.png", "weekly_throughput.png", "contributor_metrics.png"}
	return e.export([]artifact{
		{"xlsx", "issue_metrics.xlsx", func(p string) error { return writeIssueWorkbook(p, items, summary) }},
		{"png", charts[0], func(p string) error { return cycleTimeChart(p, items) }},
		{"png", charts[1], func(p string) error { return weeklyThroughputChart(p, summary.Weekly) }},
		{"png", charts[2], func(p string) error { return contributorChart(p, summary.Contributors) }},
		{"csv", "issue_metrics.csv", func(p string) error { return writeCSV(p, issueTable(items)) }},
		{"json", "issue_metrics.json", func(p string) error { return writeJSON(p, items) }},
		{"html", "issue_metrics.html", func(p string) error {
			return e.writeHTML(p, htmlReport{
				Title:   "Issue Metrics",
				Summary: issueSummaryTable(summary),
				Groups:  []htmlTable{{"Contributors", contributorTable(summary)}, {"Weekly Throughput", throughputTable(summary.Weekly, "week")}},
				Records: issueTable(items),
				Charts:  e.chartNames(charts),
			})
		}},
	})
}

// ExportPullRequests writes every enabled pull request report.
func (e *Exporter) ExportPullRequests(items []metrics.PullRequestMetric) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	summary := SummarizePullRequests(items)

	charts := []string{"prs_per_contributor.png", "review_time_distribution.png", "pr_approval_rate.png"}
	return e.export([]artifact{
		{"xlsx", "pr_metrics.xlsx", func(p string) error { return writePullRequestWorkbook(p, items, summary) }},
		{"png", charts[0], func(p string) error { return authorChart(p, summary.Authors) }},
		{"png", charts[1], func(p string) error { return reviewTimeChart(p, items) }},
		{"png", charts[2], func(p string) error { return approvalRateChart(p, summary.ApprovalRate) }},
		{"csv", "pr_metrics.csv", func(p string) error { return writeCSV(p, pullRequestTable(items)) }},
		{"json", "pr_metrics.json", func(p string) error { return writeJSON(p, items) }},
		{"html", "pr_metrics.html", func(p string) error {
			return e.writeHTML(p, htmlReport{
				Title:   "Pull Request Metrics",
				Summary: pullRequestSummaryTable(summary),
				Groups:  []htmlTable{{"Authors", authorTable(summary)}, {"States", stateTable(summary)}},
				Records: pullRequestTable(items),
				Charts:  e.chartNames(charts),
			})
		}},
	})
}

func (e *Exporter) export(artifacts []artifact) ([]string, error) {
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	var result *multierror.Error
	for _, a := range artifacts {
		if !e.enabled(a.format) {
			continue
		}
		path := e.FileName(a.name)
		if err := a.write(path); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to export %s: %w", a.name, err))
			continue
		}
		written = append(written, path)
	}
	return written, result.ErrorOrNil()
}

func (e *Exporter) chartNames(names []string) []string {
	if !e.enabled("png") {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Base(e.FileName(n))
	}
	return out
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type htmlTable struct {
	Name  string
	Table table
}

type htmlReport struct {
	Title   string
	Summary table
	Groups  []htmlTable
	Records table
	Charts  []string
}

func (e *Exporter) writeHTML(path string, r htmlReport) error {
	caser := cases.Title(language.English)
	funcMap := template.FuncMap{
		"title": func(s string) string { return caser.String(strings.ReplaceAll(s, "_", " ")) },
		"cells": func(t table) [][]string { return t.stringRows() },
	}
	tmpl, err := template.New("summary.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/summary.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML file: %w", err)
	}
	defer f.Close()

	data := map[string]any{
		"Title":     r.Title,
		"StartDate": e.StartDate,
		"Generated": time.Now().Format("2006-01-02 15:04:05"),
		"Summary":   r.Summary,
		"Groups":    r.Groups,
		"Records":   r.Records,
		"Charts":    r.Charts,
	}

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	return nil
}
