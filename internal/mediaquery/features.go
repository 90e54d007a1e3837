package mediaquery

import (
	"encoding/json"
	"strings"
)

// ColorMode is the system color scheme.
type ColorMode int

const (
	Light ColorMode = iota
	Dark
)

// ParseColorMode maps "dark" to Dark and anything else to Light.
func ParseColorMode(s string) ColorMode {
	if strings.EqualFold(strings.TrimSpace(s), "dark") {
		return Dark
	}
	return Light
}

func (c ColorMode) String() string {
	if c == Dark {
		return "dark"
	}
	return "light"
}

// Device describes the static properties of the rendering device.
type Device struct {
	Type        string  // phone, tablet, tv, car, wearable
	Brand       string
	RoundScreen bool
	Density     float64 // device pixels per logical pixel
}

// Features is the snapshot a condition is evaluated against.
type Features struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect-ratio"`
	Resolution  float64 `json:"resolution"`
	DarkMode    bool    `json:"dark-mode"`
	DeviceType  string  `json:"device-type"`
	DeviceBrand string  `json:"device-brand"`
	Orientation string  `json:"orientation"`
	RoundScreen bool    `json:"round-screen"`
}

func (f Features) key() string {
	b, _ := json.Marshal(f)
	return string(b)
}

func (f Features) number(name string) (float64, bool) {
	switch name {
	case "width":
		return float64(f.Width), true
	case "height":
		return float64(f.Height), true
	case "aspect-ratio":
		return f.AspectRatio, true
	case "resolution":
		return f.Resolution, true
	}
	return 0, false
}
