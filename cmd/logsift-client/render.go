package main

import (
	"fmt"
	"io"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/logsift/internal/model"
	"github.com/tinytelemetry/logsift/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	barPalette = []lipgloss.Color{"39", "42", "208", "201", "220", "196", "99", "250"}
)

const chartHeight = 10

// fileResult is one file's outcome in structured output.
type fileResult struct {
	File    string             `yaml:"file"`
	Matched bool               `yaml:"matched"`
	Total   int                `yaml:"total"`
	Groups  []model.GroupCount `yaml:"groups,omitempty"`
	Error   string             `yaml:"error,omitempty"`
}

func newFileResult(name string, raw []byte, err error) fileResult {
	res := fileResult{File: name}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if len(raw) == 0 {
		res.Error = "server closed the connection without a response"
		return res
	}
	counts, ok := report.Parse(string(raw))
	if !ok {
		return res
	}
	res.Matched = true
	res.Total = counts.Total()
	res.Groups = report.Sorted(counts)
	return res
}

// resultWriter prints per-file results in one of the output formats.
type resultWriter struct {
	out      io.Writer
	errOut   io.Writer
	format   string
	chartTop int
	yaml     *yaml.Encoder
}

func newResultWriter(out, errOut io.Writer, format string, chartTop int) *resultWriter {
	w := &resultWriter{out: out, errOut: errOut, format: format, chartTop: chartTop}
	if format == outputYAML {
		w.yaml = yaml.NewEncoder(out)
		w.yaml.SetIndent(2)
	}
	return w
}

// Write prints the result for one file. raw is the server's response body.
func (w *resultWriter) Write(name string, raw []byte, err error) error {
	switch w.format {
	case outputYAML:
		return w.yaml.Encode(newFileResult(name, raw, err))
	case outputChart:
		return w.writeChart(name, raw, err)
	default:
		return w.writeText(name, raw, err)
	}
}

// Close flushes any buffered structured output.
func (w *resultWriter) Close() error {
	if w.yaml != nil {
		return w.yaml.Close()
	}
	return nil
}

func (w *resultWriter) writeText(name string, raw []byte, err error) error {
	if err != nil {
		fmt.Fprintln(w.errOut, errorStyle.Render(fmt.Sprintf("[ERROR] %s: %v", name, err)))
		return nil
	}
	fmt.Fprintf(w.out, "\n%s\n", headerStyle.Render("=== Analysis Result for "+name+" ==="))
	if _, werr := w.out.Write(raw); werr != nil {
		return werr
	}
	fmt.Fprintf(w.out, "%s\n", footerStyle.Render("=== End of "+name+" ==="))
	return nil
}

func (w *resultWriter) writeChart(name string, raw []byte, err error) error {
	res := newFileResult(name, raw, err)
	fmt.Fprintf(w.out, "\n%s\n", headerStyle.Render("=== "+name+" ==="))
	if res.Error != "" {
		fmt.Fprintln(w.out, errorStyle.Render("[ERROR] "+res.Error))
		return nil
	}
	if !res.Matched {
		fmt.Fprint(w.out, report.NoMatchesLine)
		return nil
	}
	fmt.Fprintln(w.out, renderBarChart(res.Groups, w.chartTop))
	return nil
}

// renderBarChart draws the largest groups as bars with a colour-keyed legend.
func renderBarChart(groups []model.GroupCount, top int) string {
	if top > 0 && len(groups) > top {
		groups = groups[:top]
	}
	if len(groups) == 0 {
		return ""
	}

	const barWidth, barGap = 3, 1
	width := len(groups)*(barWidth+barGap) + 1
	if width < 20 {
		width = 20
	}

	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(barGap),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)

	var legend []string
	for i, g := range groups {
		color := barPalette[i%len(barPalette)]
		style := lipgloss.NewStyle().Foreground(color).Background(color)
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: g.Key, Value: float64(g.Count), Style: style},
			},
		})
		swatch := lipgloss.NewStyle().Foreground(color).Render("■")
		legend = append(legend, fmt.Sprintf("%s %-24s %8d", swatch, truncate(g.Key, 24), g.Count))
	}

	bc.Draw()
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{bc.View(), ""}, legend...)...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
