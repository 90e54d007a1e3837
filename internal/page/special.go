package page

// Special is a typed attribute record for components that take structured
// configuration instead of plain attribute strings.
type Special interface {
	SpecialKind() string
}

type ClockConfig struct {
	DigitColor       string  `json:"digitColor,omitempty"`
	DigitColorNight  string  `json:"digitColorNight,omitempty"`
	DigitRadiusRatio float64 `json:"digitRadiusRatio,omitempty"`
	DigitSizeRatio   float64 `json:"digitSizeRatio,omitempty"`
	Face             string  `json:"face,omitempty"`
	FaceNight        string  `json:"faceNight,omitempty"`
	HourHand         string  `json:"hourHand,omitempty"`
	HourHandNight    string  `json:"hourHandNight,omitempty"`
	MinuteHand       string  `json:"minuteHand,omitempty"`
	MinuteHandNight  string  `json:"minuteHandNight,omitempty"`
	SecondHand       string  `json:"secondHand,omitempty"`
	SecondHandNight  string  `json:"secondHandNight,omitempty"`
}

func (ClockConfig) SpecialKind() string { return "clockconfig" }

type BadgeConfig struct {
	BadgeColor string `json:"badgeColor,omitempty"`
	BadgeSize  string `json:"badgeSize,omitempty"`
	TextColor  string `json:"textColor,omitempty"`
	TextSize   string `json:"textSize,omitempty"`
}

func (BadgeConfig) SpecialKind() string { return "config" }

type PointShape string

const (
	ShapeCircle   PointShape = "circle"
	ShapeSquare   PointShape = "square"
	ShapeTriangle PointShape = "triangle"
)

type Point struct {
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Display     bool       `json:"display"`
	FillColor   string     `json:"fillColor,omitempty"`
	Shape       PointShape `json:"shape,omitempty"`
	Size        string     `json:"size,omitempty"`
	StrokeColor string     `json:"strokeColor,omitempty"`
	StrokeWidth string     `json:"strokeWidth,omitempty"`
}

type TextPlacement string

const (
	PlaceTop    TextPlacement = "top"
	PlaceBottom TextPlacement = "bottom"
	PlaceNone   TextPlacement = "none"
)

type Segment struct {
	Dashed     bool    `json:"dashed"`
	SolidWidth float64 `json:"solidWidth,omitempty"`
	SpaceWidth float64 `json:"spaceWidth,omitempty"`
	Color      string  `json:"color,omitempty"`
}

type Text struct {
	Value     string        `json:"value,omitempty"`
	Placement TextPlacement `json:"placement,omitempty"`
	Color     string        `json:"color,omitempty"`
}

type LinePoint struct {
	Point   Point   `json:"point"`
	Text    Text    `json:"text"`
	Segment Segment `json:"segment"`
}

type Dataset struct {
	Gradient    bool        `json:"gradient"`
	StrokeColor string      `json:"strokeColor,omitempty"`
	FillColor   string      `json:"fillColor,omitempty"`
	Data        []LinePoint `json:"data,omitempty"`
}

type ChartDatasets []Dataset

func (ChartDatasets) SpecialKind() string { return "datasets" }

type Axis struct {
	TickNumber int     `json:"axisTick,omitempty"`
	Color      string  `json:"color,omitempty"`
	Display    bool    `json:"display"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

type ChartOptions struct {
	Smooth      bool    `json:"smooth"`
	LineWidth   float64 `json:"lineWidth,omitempty"`
	TopPoint    *Point  `json:"topPoint,omitempty"`
	BottomPoint *Point  `json:"bottomPoint,omitempty"`
	HeadPoint   *Point  `json:"headPoint,omitempty"`
	XAxis       *Axis   `json:"xAxis,omitempty"`
	YAxis       *Axis   `json:"yAxis,omitempty"`
}

func (ChartOptions) SpecialKind() string { return "options" }

type ProgressSegment struct {
	StartColor string  `json:"startColor,omitempty"`
	EndColor   string  `json:"endColor,omitempty"`
	UseColor   bool    `json:"useColor"`
	Value      float64 `json:"value"`
	Name       string  `json:"name,omitempty"`
}

type Segments []ProgressSegment

func (Segments) SpecialKind() string { return "segments" }
