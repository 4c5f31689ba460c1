// Package report renders a finished assessment for printing and builds the
// share payload.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"bodycheck/internal/models"
)

//go:embed templates/report.html
var templateFS embed.FS

// View is what the report page shows: the report plus the full-size images
// captured in the current session.
type View struct {
	Report models.BodyReport
	Images []models.CapturedImage
}

var tmpl = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"statusClass": StatusClass,
	"stepLabel":   StepLabel,
	"radar":       func(m []models.PostureMetric) Radar { return BuildRadar(m, 150, 150, 110) },
	"date":        formatDate,
	"num":         formatNumber,
	"safeURL":     safeImageURL,
}).ParseFS(templateFS, "templates/report.html"))

// Render writes the printable HTML report.
func Render(w io.Writer, v View) error {
	return tmpl.Execute(w, v)
}

// StatusClass maps a posture status to its badge class.
func StatusClass(s models.PostureStatus) string {
	switch s {
	case models.PostureGood:
		return "status-good"
	case models.PostureFair:
		return "status-fair"
	case models.PosturePoor:
		return "status-poor"
	default:
		return "status-unknown"
	}
}

// StepLabel is the short caption under a captured image.
func StepLabel(s models.Step) string {
	r := strings.NewReplacer("POSTURE_", "자세:", "STRENGTH_", "근력:", "_TEST", "", "_ANALYSIS", "")
	return r.Replace(s.String())
}

type RadarAxis struct {
	Label string
	X, Y  float64
}

// Radar is an SVG polygon of posture scores over a full-mark grid.
type Radar struct {
	Points string
	Grid   string
	Axes   []RadarAxis
}

// BuildRadar places each metric on its own spoke, scaled by score/100.
func BuildRadar(metrics []models.PostureMetric, cx, cy, r float64) Radar {
	var radar Radar
	n := len(metrics)
	if n == 0 {
		return radar
	}
	var pts, grid []string
	for i, m := range metrics {
		angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		value := math.Max(0, math.Min(m.Score, 100)) / 100
		x := cx + r*value*math.Cos(angle)
		y := cy + r*value*math.Sin(angle)
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, y))
		gx := cx + r*math.Cos(angle)
		gy := cy + r*math.Sin(angle)
		grid = append(grid, fmt.Sprintf("%.1f,%.1f", gx, gy))
		radar.Axes = append(radar.Axes, RadarAxis{Label: m.Name, X: round1(gx), Y: round1(gy)})
	}
	radar.Points = strings.Join(pts, " ")
	radar.Grid = strings.Join(grid, " ")
	return radar
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006. 1. 2.")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// safeImageURL lets captured data URLs through html/template's URL filter.
// Anything else is dropped.
func safeImageURL(s string) template.URL {
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return ""
}
