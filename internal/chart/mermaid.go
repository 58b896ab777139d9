package chart

import (
	"fmt"
	"math"
	"strings"
)

// Mermaid renders s as a Mermaid xychart-beta block for Markdown output.
func Mermaid(s Series) string {
	if len(s.Points) == 0 {
		return ""
	}

	var weeks []string
	seenWeek := make(map[string]bool)
	byLabel := make(map[string]map[string]float64)
	maxY := 0.0

	for _, p := range s.Points {
		if !seenWeek[p.X] {
			seenWeek[p.X] = true
			weeks = append(weeks, p.X)
		}
		if byLabel[p.Series] == nil {
			byLabel[p.Series] = make(map[string]float64)
		}
		byLabel[p.Series][p.X] = p.Y
		maxY = math.Max(maxY, p.Y)
	}

	xs := make([]string, len(weeks))
	for i, w := range weeks {
		xs[i] = fmt.Sprintf("%q", w)
	}

	mark := "line"
	if s.Mark == MarkBar {
		mark = "bar"
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %q\n", s.Title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(xs, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis %q 0 --> %d\n", s.YTitle, int(math.Ceil(maxY*1.2))+1))
	for _, label := range s.Labels() {
		values := make([]string, len(weeks))
		for i, w := range weeks {
			values[i] = formatValue(byLabel[label][w])
		}
		sb.WriteString(fmt.Sprintf("    %s [%s]\n", mark, strings.Join(values, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
