package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/mhelwig/odefit/internal/analysis"
)

// Series is one named curve for plotting.
type Series struct {
	Label string
	X, Y  []float64
}

// Point is a single scatter marker (measured data).
type Point struct {
	X, Y float64
}

var seriesColors = []string{"#00ccff", "#ff00ff", "#00ff88", "#ffaa00"}

// FitSVG renders simulated trajectories as lines and measurements as
// circles into a standalone SVG file.
func FitSVG(path string, series []Series, points []Point, width, height int) error {
	minX, maxX, minY, maxY := bounds(series, points)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	px := func(x float64) float64 { return (x - minX) / (maxX - minX) * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-minY)/(maxY-minY)*float64(height) }

	for i, s := range series {
		if len(s.X) < 2 {
			continue
		}
		color := seriesColors[i%len(seriesColors)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for j := range s.X {
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(s.X[j]), py(s.Y[j])))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(s.X[j]), py(s.Y[j])))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for _, p := range points {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="#ffffff"/>
`, px(p.X), py(p.Y)))
	}

	sb.WriteString("</svg>\n")
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// ProfileSVG renders a likelihood profile curve.
func ProfileSVG(path string, points []analysis.ProfilePoint, width, height int) error {
	s := Series{Label: "llh", X: make([]float64, 0, len(points)), Y: make([]float64, 0, len(points))}
	for _, p := range points {
		s.X = append(s.X, p.Value)
		s.Y = append(s.Y, p.LLH)
	}
	return FitSVG(path, []Series{s}, nil, width, height)
}

func bounds(series []Series, points []Point) (minX, maxX, minY, maxY float64) {
	first := true
	see := func(x, y float64) {
		if first {
			minX, maxX, minY, maxY = x, x, y, y
			first = false
			return
		}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	for _, s := range series {
		for i := range s.X {
			see(s.X[i], s.Y[i])
		}
	}
	for _, p := range points {
		see(p.X, p.Y)
	}
	if first {
		return 0, 1, 0, 1
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	return minX, maxX, minY, maxY
}
