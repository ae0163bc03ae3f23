// Package geometry draws the wheel. Sector i spans [i*360/n, (i+1)*360/n)
// degrees clockwise from 12 o'clock; the spin engine resolves winners with
// SectorAt so the wedge under the pointer is always the winner.
package geometry

import (
	"math"
	"strconv"
	"strings"
)

// Palette cycles across segments.
var Palette = []string{"#FF0000", "#0066FF", "#00AA00", "#FFD700"}

// Point is an SVG coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PolarToCartesian converts a wheel angle (0 at the top, clockwise) to SVG
// coordinates.
func PolarToCartesian(cx, cy, radius, angleDeg float64) Point {
	rad := (angleDeg - 90) * math.Pi / 180.0
	return Point{
		X: cx + radius*math.Cos(rad),
		Y: cy + radius*math.Sin(rad),
	}
}

// SegmentAngle is the angular span of one sector.
func SegmentAngle(total int) float64 {
	if total <= 0 {
		return 0
	}
	return 360 / float64(total)
}

// SectorBounds returns the start and end angle of sector index.
func SectorBounds(index, total int) (start, end float64) {
	span := SegmentAngle(total)
	return float64(index) * span, float64(index+1) * span
}

// SectorAt returns the sector containing angle. Angles outside [0,360) wrap.
// It returns -1 when total is not positive.
func SectorAt(angle float64, total int) int {
	if total <= 0 {
		return -1
	}
	pos := math.Mod(angle/SegmentAngle(total), float64(total))
	if pos < 0 {
		pos += float64(total)
	}
	idx := int(math.Floor(pos))
	if idx >= total {
		idx = total - 1
	}
	return idx
}

// SegmentPath returns the SVG path of a wedge. The large-arc flag is set only
// when the wedge spans more than 180 degrees. A single segment is the whole
// disc; its start and end points coincide, so it is drawn as two half arcs.
func SegmentPath(index, total int, cx, cy, radius float64) string {
	span := SegmentAngle(total)
	startAngle, endAngle := SectorBounds(index, total)
	start := PolarToCartesian(cx, cy, radius, startAngle)
	end := PolarToCartesian(cx, cy, radius, endAngle)

	var b strings.Builder
	b.WriteString("M ")
	b.WriteString(num(cx))
	b.WriteString(" ")
	b.WriteString(num(cy))
	b.WriteString(" L ")
	b.WriteString(num(start.X))
	b.WriteString(" ")
	b.WriteString(num(start.Y))
	if total == 1 {
		mid := PolarToCartesian(cx, cy, radius, startAngle+180)
		writeArc(&b, radius, false, mid)
		writeArc(&b, radius, false, end)
	} else {
		writeArc(&b, radius, span > 180, end)
	}
	b.WriteString(" Z")
	return b.String()
}

func writeArc(b *strings.Builder, radius float64, large bool, to Point) {
	flag := "0"
	if large {
		flag = "1"
	}
	b.WriteString(" A ")
	b.WriteString(num(radius))
	b.WriteString(" ")
	b.WriteString(num(radius))
	b.WriteString(" 0 ")
	b.WriteString(flag)
	b.WriteString(" 1 ")
	b.WriteString(num(to.X))
	b.WriteString(" ")
	b.WriteString(num(to.Y))
}

// LabelPosition is where a segment's name is anchored, and the rotation the
// label is drawn at.
func LabelPosition(index, total int, cx, cy, radius float64) (Point, float64) {
	span := SegmentAngle(total)
	mid := float64(index)*span + span/2
	return PolarToCartesian(cx, cy, radius, mid), mid
}

// DistributeColors assigns palette colours in a repeating pattern.
func DistributeColors(n int) []string {
	colors := make([]string, 0, n)
	for i := 0; i < n; i++ {
		colors = append(colors, Palette[i%len(Palette)])
	}
	return colors
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
