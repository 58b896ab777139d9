package chart

import (
	"encoding/json"
	"fmt"
)

const vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"

const (
	MarkLine = "line"
	MarkBar  = "bar"
)

// Point is one (week, value) pair. Series distinguishes lines that share a
// chart, e.g. "created" and "merged".
type Point struct {
	X      string  `json:"x"`
	Y      float64 `json:"y"`
	Series string  `json:"series"`
}

// Series is the tabular data behind one chart.
type Series struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Mark   string  `json:"mark"`
	YTitle string  `json:"yTitle"`
	Points []Point `json:"points"`
}

// Labels returns the distinct series names in first-seen order.
func (s Series) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range s.Points {
		if !seen[p.Series] {
			seen[p.Series] = true
			labels = append(labels, p.Series)
		}
	}
	return labels
}

type description struct {
	Schema   string   `json:"$schema"`
	Title    string   `json:"title"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Data     data     `json:"data"`
	Mark     mark     `json:"mark"`
	Encoding encoding `json:"encoding"`
}

type data struct {
	Name   string  `json:"name"`
	Values []Point `json:"values"`
}

type mark struct {
	Type    string `json:"type"`
	Point   bool   `json:"point,omitempty"`
	Tooltip bool   `json:"tooltip"`
}

type encoding struct {
	X     channel  `json:"x"`
	Y     channel  `json:"y"`
	Color *channel `json:"color,omitempty"`
}

type channel struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// Describe returns a Vega-Lite description of s: a named "table" data
// source with a temporal x axis and a quantitative y axis.
func Describe(s Series) ([]byte, error) {
	if s.Mark != MarkLine && s.Mark != MarkBar {
		return nil, fmt.Errorf("chart %s: unsupported mark %q", s.Name, s.Mark)
	}

	values := s.Points
	if values == nil {
		values = []Point{}
	}

	d := description{
		Schema: vegaLiteSchema,
		Title:  s.Title,
		Width:  800,
		Height: 400,
		Data:   data{Name: "table", Values: values},
		Mark:   mark{Type: s.Mark, Point: s.Mark == MarkLine, Tooltip: true},
		Encoding: encoding{
			X: channel{Field: "x", Type: "temporal", Title: "Week"},
			Y: channel{Field: "y", Type: "quantitative", Title: s.YTitle},
		},
	}
	if len(s.Labels()) > 1 {
		d.Encoding.Color = &channel{Field: "series", Type: "nominal", Title: "Series"}
	}

	return json.MarshalIndent(d, "", "  ")
}
