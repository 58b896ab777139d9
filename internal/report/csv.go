package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/Afrawles/devmetrics/internal/chart"
)

// ExportSeriesCSV writes one row per week and one column per series label.
func ExportSeriesCSV(s chart.Series, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	weeks, labels, values := pivot(s)

	header := append([]string{"week"}, labels...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, week := range weeks {
		row := []string{week}
		for _, label := range labels {
			row = append(row, strconv.FormatFloat(values[label][week], 'f', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// pivot turns the long point list of s into week rows and label columns.
func pivot(s chart.Series) ([]string, []string, map[string]map[string]float64) {
	var weeks []string
	seen := make(map[string]bool)
	values := make(map[string]map[string]float64)

	for _, p := range s.Points {
		if !seen[p.X] {
			seen[p.X] = true
			weeks = append(weeks, p.X)
		}
		if values[p.Series] == nil {
			values[p.Series] = make(map[string]float64)
		}
		values[p.Series][p.X] = p.Y
	}

	return weeks, s.Labels(), values
}
