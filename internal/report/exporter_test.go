package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

var allFormats = []string{"xlsx", "png", "csv", "json", "html"}

func TestFileName(t *testing.T) {
	e := NewExporter("out", date("2025-01-01"), nil)
	assert.Equal(t, filepath.Join("out", "2025-01-01_pr_metrics.xlsx"), e.FileName("pr_metrics.xlsx"))
}

func TestExportIssues_AllFormats(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, date("2025-01-01"), allFormats)

	files, err := e.ExportIssues(sampleIssues())
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), f)
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"2025-01-01_issue_metrics.xlsx",
		"2025-01-01_cycle_time_distribution.png",
		"2025-01-01_weekly_throughput.png",
		"2025-01-01_contributor_metrics.png",
		"2025-01-01_issue_metrics.csv",
		"2025-01-01_issue_metrics.json",
		"2025-01-01_issue_metrics.html",
	}, names)

	wb, err := excelize.OpenFile(filepath.Join(dir, "2025-01-01_issue_metrics.xlsx"))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{sheetIssueMetrics, sheetSummary, sheetContributors, sheetThroughput, "Monthly Throughput"}, wb.GetSheetList())

	rows, err := wb.GetRows(sheetIssueMetrics)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"issue_key", "assignee", "created_date", "completion_date", "cycle_time", "lead_time"}, rows[0])
	assert.Equal(t, []string{"P-1", "Ada", "2025-01-01", "2025-01-10", "7", "9"}, rows[1])

	summary, err := wb.GetRows(sheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total Issues", "3"}, summary[1])
	assert.Equal(t, []string{"Average Cycle Time (days)", "5"}, summary[2])

	html, err := os.ReadFile(filepath.Join(dir, "2025-01-01_issue_metrics.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "2025-01-01_weekly_throughput.png")
	assert.Contains(t, string(html), "Issue Key")
}

func TestExportPullRequests_SpreadsheetAndCSV(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, date("2025-02-01"), []string{"xlsx", "csv", "json"})

	files, err := e.ExportPullRequests(samplePullRequests())
	require.NoError(t, err)
	assert.Len(t, files, 3)

	wb, err := excelize.OpenFile(filepath.Join(dir, "2025-02-01_pr_metrics.xlsx"))
	require.NoError(t, err)
	defer wb.Close()

	summary, err := wb.GetRows(sheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, summary[0])
	assert.Equal(t, []string{"Total PRs", "4"}, summary[1])
	assert.Equal(t, []string{"Average Comments per PR", "1.75"}, summary[3])
	assert.Equal(t, []string{"Approval Rate (%)", "50"}, summary[5])

	f, err := os.Open(filepath.Join(dir, "2025-02-01_pr_metrics.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"1", "Ada", "2025-02-01", "2025-02-03", "2", "2", "1", "MERGED"}, records[1])

	raw, err := os.ReadFile(filepath.Join(dir, "2025-02-01_pr_metrics.json"))
	require.NoError(t, err)
	var decoded []metrics.PullRequestMetric
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, samplePullRequests(), decoded)
}

func TestExportPullRequests_Charts(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, date("2025-02-01"), []string{"png"})

	files, err := e.ExportPullRequests(samplePullRequests())
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.True(t, strings.HasSuffix(f, ".png"))
		assert.FileExists(t, f)
	}
}

func TestExport_EmptyWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	e := NewExporter(dir, date("2025-01-01"), allFormats)

	files, err := e.ExportIssues(nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = e.ExportPullRequests(nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.NoDirExists(t, dir)
}
