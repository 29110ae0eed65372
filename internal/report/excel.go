package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

const (
	sheetIssueMetrics = "Issue Metrics"
	sheetPRMetrics    = "PR Metrics"
	sheetSummary      = "Summary"
	sheetContributors = "Contributors"
	sheetThroughput   = "Throughput"
	sheetAuthors      = "Authors"
	sheetStates       = "States"
)

// sheet is one worksheet of a workbook, optionally with a column chart over
// its first two columns.
type sheet struct {
	name       string
	table      table
	chartTitle string
	chartType  excelize.ChartType
}

func writeIssueWorkbook(path string, items []metrics.IssueMetric, s IssueSummary) error {
	weekly := throughputTable(s.Weekly, "week_ending")
	monthly := throughputTable(s.Monthly, "month")

	return writeWorkbook(path, []sheet{
		{name: sheetIssueMetrics, table: issueTable(items)},
		{name: sheetSummary, table: issueSummaryTable(s)},
		{name: sheetContributors, table: contributorTable(s), chartTitle: "Tasks Completed per Contributor", chartType: excelize.Col},
		{name: sheetThroughput, table: weekly, chartTitle: "Weekly Throughput Trend", chartType: excelize.Line},
		{name: "Monthly Throughput", table: monthly},
	})
}

func writePullRequestWorkbook(path string, items []metrics.PullRequestMetric, s PullRequestSummary) error {
	return writeWorkbook(path, []sheet{
		{name: sheetPRMetrics, table: pullRequestTable(items)},
		{name: sheetSummary, table: pullRequestSummaryTable(s)},
		{name: sheetAuthors, table: authorTable(s), chartTitle: "Pull Requests per Contributor", chartType: excelize.Col},
		{name: sheetStates, table: stateTable(s)},
	})
}

func writeWorkbook(path string, sheets []sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return err
		}

		if err := writeSheet(f, sh, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sh.name, err)
		}
	}

	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	for col, header := range sh.table.Headers {
		cell := cellName(col+1, 1)
		if err := f.SetCellValue(sh.name, cell, header); err != nil {
			return err
		}
	}
	last := cellName(len(sh.table.Headers), 1)
	if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range sh.table.Rows {
		for col, v := range row {
			if err := f.SetCellValue(sh.name, cellName(col+1, i+2), v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sh.name, "A", columnLetter(len(sh.table.Headers)), 18); err != nil {
		return err
	}

	if err := f.SetPanes(sh.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if sh.chartTitle == "" || len(sh.table.Rows) == 0 {
		return nil
	}

	n := len(sh.table.Rows) + 1
	return f.AddChart(sh.name, cellName(len(sh.table.Headers)+2, 2), &excelize.Chart{
		Type: sh.chartType,
		Series: []excelize.ChartSeries{{
			Name:       sheetRef(sh.name, "B", 1, 1),
			Categories: sheetRef(sh.name, "A", 2, n),
			Values:     sheetRef(sh.name, "B", 2, n),
		}},
		Title:  []excelize.RichTextRun{{Text: sh.chartTitle}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}

func sheetRef(name, col string, from, to int) string {
	if strings.ContainsAny(name, " -") {
		name = "'" + name + "'"
	}
	if from == to {
		return fmt.Sprintf("%s!$%s$%d", name, col, from)
	}
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", name, col, from, col, to)
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
