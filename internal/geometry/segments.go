package geometry

// Layout sizes the wheel in SVG units.
type Layout struct {
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	Radius      float64 `json:"radius"`
	LabelRadius float64 `json:"label_radius"`
}

// DefaultLayout matches a 600x600 viewBox.
var DefaultLayout = Layout{CenterX: 300, CenterY: 300, Radius: 290, LabelRadius: 270}

// Segment is one render-ready wedge.
type Segment struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Path       string  `json:"path"`
	Color      string  `json:"color"`
	LabelAt    Point   `json:"label_at"`
	LabelAngle float64 `json:"label_angle"`
}

// Segments lays out one wedge per label, in order.
func Segments(labels []string, l Layout) []Segment {
	colors := DistributeColors(len(labels))
	out := make([]Segment, len(labels))
	for i, label := range labels {
		at, angle := LabelPosition(i, len(labels), l.CenterX, l.CenterY, l.LabelRadius)
		out[i] = Segment{
			Index:      i,
			Label:      label,
			Path:       SegmentPath(i, len(labels), l.CenterX, l.CenterY, l.Radius),
			Color:      colors[i],
			LabelAt:    at,
			LabelAngle: angle,
		}
	}
	return out
}
