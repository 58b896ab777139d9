package report

import (
	"fmt"
	"strings"

	"github.com/Afrawles/devmetrics/internal/chart"
	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes a workbook with a Summary sheet and one sheet per
// weekly series.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

func (e *ExcelExporter) Export(r *StatsReport, series []chart.Series, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.createSummarySheet(f, "Summary", r); err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}

	for _, s := range series {
		if err := e.createSeriesSheet(f, sanitizeSheetName(s.Title), s); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", s.Name, err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex("Summary"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}
	return nil
}

func (e *ExcelExporter) createSummarySheet(f *excelize.File, sheetName string, r *StatsReport) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, err := headerCellStyle(f)
	if err != nil {
		return err
	}

	rows := [][]any{
		{"Repository", r.Repository},
		{"Date From:", r.Window.StartDate},
		{"Date To:", r.Window.EndDate},
		{},
		{"Metric", "Value"},
		{"Total commits (last year)", r.CommitStats.TotalCommitsLastYear},
		{"Average commits per week", r.CommitStats.AverageCommitsPerWeek},
		{"Total pull requests", r.PRStats.TotalPRs},
		{"Merged pull requests", r.PRStats.MergedPRs},
		{"Merge rate (%)", r.PRStats.PRMergeRate},
		{"Average pull requests per week", r.PRStats.AveragePRsPerWeek},
		{"Pull requests (last month)", r.PRStats.RecentPRCount},
		{"Bug pull requests", r.PRStats.BugPRs.TotalBugPRs},
		{"Merged bug pull requests", r.PRStats.BugPRs.MergedBugPRs},
		{"Bug merge rate (%)", r.PRStats.BugPRs.BugPRMergeRate},
		{"Total deployments", r.DeploymentStats.TotalDeployments},
		{"Average deployments per week", r.DeploymentStats.AverageDeploymentsPerWeek},
		{"Deployments (last month)", r.DeploymentStats.RecentDeploymentCount},
	}
	if r.TaskStats != nil {
		rows = append(rows,
			[]any{"Completed tasks", r.TaskStats.TotalTasks},
			[]any{"Bugs", r.TaskStats.TotalBugs},
			[]any{"Bug rate (%)", r.TaskStats.BugRate},
		)
	}
	if len(r.DegradedSources) > 0 {
		rows = append(rows, []any{"Degraded sources", strings.Join(r.DegradedSources, ", ")})
	}

	for i, row := range rows {
		cell := cellName(1, i+1)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, "A5", "B5", headerStyle); err != nil {
		return err
	}

	f.SetColWidth(sheetName, "A", "A", 34)
	f.SetColWidth(sheetName, "B", "B", 30)
	return nil
}

func (e *ExcelExporter) createSeriesSheet(f *excelize.File, sheetName string, s chart.Series) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, err := headerCellStyle(f)
	if err != nil {
		return err
	}

	weeks, labels, values := pivot(s)

	headers := append([]string{"Week"}, labels...)
	for col, header := range headers {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, week := range weeks {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), week)
		for j, label := range labels {
			f.SetCellValue(sheetName, cellName(j+2, row), values[label][week])
		}
	}

	f.SetColWidth(sheetName, "A", "A", 14)
	if len(labels) > 0 {
		f.SetColWidth(sheetName, "B", columnLetter(len(labels)+1), 14)
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

func headerCellStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
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

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")
	name = strings.ReplaceAll(name, ":", "")

	if len(name) > 31 {
		name = name[:31]
	}

	return name
}
