package card

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/page"
)

// specialParser builds a typed record from a structured attribute value.
// resolve evaluates bindings nested in the value.
type specialParser func(v *jsonvalue.Value, resolve func(string) string) page.Special

var specialAttrs = map[string]specialParser{
	"clockconfig": clockConfig,
	"config":      badgeConfig,
	"datasets":    chartDatasets,
	"options":     chartOptions,
	"segments":    progressSegments,
}

// attributes resolves the plain attributes of node and parses the
// structured ones.
func (d *Document) attributes(node *jsonvalue.Value, sc scope) ([]page.Pair, []page.Special) {
	var (
		attrs    []page.Pair
		specials []page.Special
	)
	resolve := func(s string) string { return d.resolve(s, sc) }
	for _, f := range node.Get("attr").Fields() {
		raw := f.Value.Text()
		if parse, ok := specialAttrs[f.Key]; ok {
			src := raw
			if isVariable(src) {
				src = d.resolveVariable(src, sc)
			}
			specials = append(specials, parse(jsonvalue.ParseString(src), resolve))
			continue
		}
		value := d.resolve(raw, sc)
		if f.Key == "fontFamily" {
			d.registerFont(value)
		}
		attrs = append(attrs, page.Pair{Key: f.Key, Value: value})
	}
	return attrs, specials
}

var clockText = map[string]func(*page.ClockConfig, string){
	"digitColor":       func(c *page.ClockConfig, s string) { c.DigitColor = s },
	"digitColorNight":  func(c *page.ClockConfig, s string) { c.DigitColorNight = s },
	"digitRadiusRatio": func(c *page.ClockConfig, s string) { c.DigitRadiusRatio = cast.ToFloat64(s) },
	"digitSizeRatio":   func(c *page.ClockConfig, s string) { c.DigitSizeRatio = cast.ToFloat64(s) },
}

// clockSources are image sources; their values may be bindings.
var clockSources = map[string]func(*page.ClockConfig) *string{
	"face":            func(c *page.ClockConfig) *string { return &c.Face },
	"faceNight":       func(c *page.ClockConfig) *string { return &c.FaceNight },
	"hourHand":        func(c *page.ClockConfig) *string { return &c.HourHand },
	"hourHandNight":   func(c *page.ClockConfig) *string { return &c.HourHandNight },
	"minuteHand":      func(c *page.ClockConfig) *string { return &c.MinuteHand },
	"minuteHandNight": func(c *page.ClockConfig) *string { return &c.MinuteHandNight },
	"secondHand":      func(c *page.ClockConfig) *string { return &c.SecondHand },
	"secondHandNight": func(c *page.ClockConfig) *string { return &c.SecondHandNight },
}

func clockConfig(v *jsonvalue.Value, resolve func(string) string) page.Special {
	var c page.ClockConfig
	for _, f := range v.Fields() {
		s := f.Value.Text()
		if set, ok := clockText[f.Key]; ok {
			set(&c, s)
		} else if field, ok := clockSources[f.Key]; ok {
			*field(&c) = resolve(s)
		}
	}
	return c
}

func badgeConfig(v *jsonvalue.Value, _ func(string) string) page.Special {
	var b page.BadgeConfig
	for _, f := range v.Fields() {
		s := f.Value.Text()
		switch f.Key {
		case "badgeColor":
			b.BadgeColor = s
		case "badgeSize":
			b.BadgeSize = s
		case "textColor":
			b.TextColor = s
		case "textSize":
			b.TextSize = s
		}
	}
	return b
}

func chartOptions(v *jsonvalue.Value, _ func(string) string) page.Special {
	var o page.ChartOptions
	for _, f := range v.Fields() {
		switch f.Key {
		case "series":
			seriesOptions(f.Value, &o)
		case "xAxis":
			a := axisOptions(f.Value)
			o.XAxis = &a
		case "yAxis":
			a := axisOptions(f.Value)
			o.YAxis = &a
		}
	}
	return o
}

func seriesOptions(v *jsonvalue.Value, o *page.ChartOptions) {
	for _, f := range v.Fields() {
		if !f.Value.IsObject() {
			continue
		}
		switch f.Key {
		case "lineStyle":
			for _, ls := range f.Value.Fields() {
				switch ls.Key {
				case "smooth":
					o.Smooth = ls.Value.Bool()
				case "width":
					o.LineWidth = cast.ToFloat64(ls.Value.Text())
				}
			}
		case "topPoint":
			p := chartPoint(f.Value)
			o.TopPoint = &p
		case "bottomPoint":
			p := chartPoint(f.Value)
			o.BottomPoint = &p
		case "headPoint":
			p := chartPoint(f.Value)
			o.HeadPoint = &p
		}
	}
}

func chartPoint(v *jsonvalue.Value) page.Point {
	p := page.Point{Display: true}
	applyPointStyle(v, &p)
	return p
}

func applyPointStyle(v *jsonvalue.Value, p *page.Point) {
	for _, f := range v.Fields() {
		switch f.Key {
		case "display":
			p.Display = f.Value.Bool()
		case "fillColor":
			p.FillColor = f.Value.Str()
		case "shape":
			switch f.Value.Str() {
			case "circle":
				p.Shape = page.ShapeCircle
			case "square":
				p.Shape = page.ShapeSquare
			default:
				p.Shape = page.ShapeTriangle
			}
		case "size":
			p.Size = f.Value.Text()
		case "strokeColor":
			p.StrokeColor = f.Value.Str()
		case "strokeWidth":
			p.StrokeWidth = f.Value.Text()
		}
	}
}

func axisOptions(v *jsonvalue.Value) page.Axis {
	var a page.Axis
	for _, f := range v.Fields() {
		switch f.Key {
		case "axisTick":
			a.TickNumber = cast.ToInt(f.Value.Text())
		case "color":
			a.Color = f.Value.Str()
		case "display":
			a.Display = f.Value.Bool()
		case "max":
			a.Max = f.Value.Float()
		case "min":
			a.Min = f.Value.Float()
		}
	}
	return a
}

func chartDatasets(v *jsonvalue.Value, _ func(string) string) page.Special {
	var out page.ChartDatasets
	for _, item := range v.Items() {
		if !item.IsObject() {
			continue
		}
		var ds page.Dataset
		for _, f := range item.Fields() {
			switch f.Key {
			case "gradient":
				ds.Gradient = f.Value.Bool()
			case "strokeColor":
				ds.StrokeColor = f.Value.Str()
			case "fillColor":
				ds.FillColor = f.Value.Str()
			case "data":
				ds.Data = linePoints(f.Value)
			}
		}
		out = append(out, ds)
	}
	return out
}

// linePoints reads chart data given as bare numbers or point objects. The
// x coordinate is the item index.
func linePoints(v *jsonvalue.Value) []page.LinePoint {
	var out []page.LinePoint
	for i, item := range v.Items() {
		var lp page.LinePoint
		switch {
		case item.IsNumber():
			lp.Point = page.Point{X: float64(i), Y: item.Float()}
		case item.IsObject():
			for _, f := range item.Fields() {
				switch f.Key {
				case "description":
					lp.Text.Value = f.Value.Text()
				case "textLocation":
					switch f.Value.Str() {
					case "top":
						lp.Text.Placement = page.PlaceTop
					case "bottom":
						lp.Text.Placement = page.PlaceBottom
					case "none":
						lp.Text.Placement = page.PlaceNone
					}
				case "lineDash":
					lp.Segment = lineDash(f.Value.Str(), lp.Segment.Color)
				case "lineColor":
					lp.Segment.Color = f.Value.Str()
				case "textColor":
					lp.Text.Color = f.Value.Str()
				case "value":
					lp.Point.X = float64(i)
					lp.Point.Y = f.Value.Float()
				case "pointStyle":
					if f.Value.IsObject() {
						applyPointStyle(f.Value, &lp.Point)
					}
				}
			}
		default:
			continue
		}
		out = append(out, lp)
	}
	return out
}

// lineDash parses "dashed,<solid>,<space>".
func lineDash(s, color string) page.Segment {
	seg := page.Segment{Color: color}
	parts := strings.Split(s, ",")
	seg.Dashed = strings.TrimSpace(parts[0]) == "dashed"
	if len(parts) > 1 {
		seg.SolidWidth = cast.ToFloat64(strings.TrimSpace(parts[1]))
	}
	if len(parts) > 2 {
		seg.SpaceWidth = cast.ToFloat64(strings.TrimSpace(parts[2]))
	}
	return seg
}

func progressSegments(v *jsonvalue.Value, _ func(string) string) page.Special {
	items := v.Items()
	if v.IsObject() {
		items = []*jsonvalue.Value{v}
	}
	var out page.Segments
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		var s page.ProgressSegment
		for _, f := range item.Fields() {
			switch f.Key {
			case "startColor":
				s.StartColor = f.Value.Str()
				s.UseColor = true
			case "endColor":
				s.EndColor = f.Value.Str()
				s.UseColor = true
			case "value":
				s.Value = f.Value.Float()
			case "name":
				s.Name = f.Value.Str()
			}
		}
		out = append(out, s)
	}
	return out
}
