package card

import (
	"log/slog"

	"github.com/starford/cardbind/internal/mediaquery"
)

// Option is a functional option for configuring a Document.
type Option func(*Document)

// WithLogger sets the logger used for skipped template pieces.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithAssets sets the asset provider used by $r, $t and $tc.
func WithAssets(a Assets) Option {
	return func(d *Document) { d.assets = a }
}

// WithFonts sets the registrar notified about @FONT-FACE usage.
func WithFonts(f FontRegistrar) Option {
	return func(d *Document) { d.fonts = f }
}

// WithLocale sets the locale used for translation lookups.
func WithLocale(l Localizer) Option {
	return func(d *Document) { d.locale = l }
}

// WithMatcher replaces the document's media query matcher.
func WithMatcher(m *mediaquery.Matcher) Option {
	return func(d *Document) {
		if m != nil {
			d.media = m
		}
	}
}

// WithDensity sets the screen density used to pick resource files.
func WithDensity(density float64) Option {
	return func(d *Document) { d.density = density }
}

// WithAPIVersion sets the platform API level that selects apiVersion patches.
func WithAPIVersion(v int) Option {
	return func(d *Document) { d.apiVersion = v }
}

// WithColorMode sets the initial color mode.
func WithColorMode(mode mediaquery.ColorMode) Option {
	return func(d *Document) { d.colorMode = mode }
}
