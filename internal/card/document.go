// Package card binds card data into a declarative template and emits the
// resulting DOM as an ordered stream of page commands.
//
// A Document is built from a card body with four sections: template,
// styles, actions and data. Create walks the template once and emits the
// full tree; Update walks it again after a data, surface or color-mode
// change and emits only attribute, style and event refreshes plus the
// additions and removals of repeated list items.
//
// Attribute values may contain bindings:
//
//	{{title}}                  data lookup
//	{{list[0].name}}           path into data
//	{{flag ? 'on' : 'off'}}    ternary
//	{{a && b}} {{!a}}          logical
//	$f({{n}} of {{total}})     interpolation
//	{{$r('image.icon')}}       resource URL
//	{{$t('strings.hello')}}    translation
//	{{$tc('strings.items', n)}} plural translation
//
// A binding that cannot be resolved is left as literal text.
//
// A Document is not safe for concurrent use.
package card

import (
	"fmt"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/mediaquery"
	"github.com/starford/cardbind/internal/page"
)

// Assets gives read access to the files of a card bundle.
type Assets interface {
	// AssetList returns the bundle-relative paths below prefix.
	AssetList(prefix string) []string
	// AssetContent returns the content of a bundle-relative path.
	AssetContent(path string) (string, bool)
}

// FontRegistrar is notified when a style references a declared font face.
type FontRegistrar interface {
	RegisterFont(family, src string)
}

// Localizer orders translation files and picks plural categories.
type Localizer interface {
	Tag() string
	Fallback(candidates []string) []string
	PluralCategory(n float64) string
}

const (
	rootNodeID      = 1000000
	maxResolveDepth = 32
	maxWalkDepth    = 64
)

// Document is one card instance and its render state.
type Document struct {
	body     *jsonvalue.Value
	template *jsonvalue.Value
	styles   *jsonvalue.Value
	actions  *jsonvalue.Value
	data     *jsonvalue.Value
	// repeat is the scope seen inside repeat blocks: a copy of data plus
	// the current item bindings.
	repeat *jsonvalue.Value

	logger     *slog.Logger
	assets     Assets
	fonts      FontRegistrar
	locale     Localizer
	media      *mediaquery.Matcher
	colorMode  mediaquery.ColorMode
	density    float64
	apiVersion int

	initialized bool
	created     bool

	nodeID    int
	maxNodeID int
	topSeq    int
	records   map[string]*repeatRecord
	frames    []*repeatFrame

	mediaStyles *orderedmap.OrderedMap[string, *jsonvalue.Value]
	imageURLs   map[string]string
	assetCache  map[string]*jsonvalue.Value

	depth     int
	walkDepth int
}

// New creates a Document for a parsed card body. Initialize must succeed
// before the first render.
func New(body *jsonvalue.Value, opts ...Option) *Document {
	d := &Document{
		body:       body,
		logger:     slog.Default(),
		density:    1,
		records:    make(map[string]*repeatRecord),
		imageURLs:  make(map[string]string),
		assetCache: make(map[string]*jsonvalue.Value),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.media == nil {
		d.media = mediaquery.New(mediaquery.Device{Density: d.density})
	}
	d.media.SetColorMode(d.colorMode)
	return d
}

// Initialize validates the card sections, applies apiVersion data patches
// and loads the media-query style blocks.
func (d *Document) Initialize() error {
	sections := []struct {
		name string
		dst  **jsonvalue.Value
	}{
		{"template", &d.template},
		{"styles", &d.styles},
		{"actions", &d.actions},
		{"data", &d.data},
	}
	for _, s := range sections {
		v := d.body.Get(s.name)
		if !v.IsObject() {
			return fmt.Errorf("card: initialize: section %q missing or not an object: %w", s.name, apperr.ErrInvalidCard)
		}
		*s.dst = v
	}

	d.applyVersionPatches()
	d.repeat = d.data.Clone()
	d.loadMediaStyles()
	d.initialized = true
	return nil
}

// Create emits the full DOM of the card and flushes the sink.
func (d *Document) Create(sink page.Sink) error {
	if !d.initialized {
		return fmt.Errorf("card: create: %w", apperr.ErrNotInitialized)
	}
	d.resetPass()
	d.walk(sink, d.template, -1, d.pageScope(), modeCreate)
	d.maxNodeID = max(d.maxNodeID, d.nodeID)
	d.created = true
	sink.FlushCommands()
	return nil
}

// Update re-resolves the card against the current data and state, emits
// the patch and flushes the sink.
func (d *Document) Update(sink page.Sink) error {
	if !d.initialized {
		return fmt.Errorf("card: update: %w", apperr.ErrNotInitialized)
	}
	if !d.created {
		return fmt.Errorf("card: update: %w", apperr.ErrNotCreated)
	}
	d.resetPass()
	d.walk(sink, d.template, -1, d.pageScope(), modeUpdate)
	sink.FlushCommands()
	return nil
}

// UpdateData sets each top-level key of patch in the card data and then
// runs Update.
func (d *Document) UpdateData(patch *jsonvalue.Value, sink page.Sink) error {
	if !patch.IsObject() || patch.Len() == 0 {
		return fmt.Errorf("card: update data: patch must be a non-empty object: %w", apperr.ErrInvalidInput)
	}
	if !d.initialized {
		return fmt.Errorf("card: update data: %w", apperr.ErrNotInitialized)
	}
	for _, f := range patch.Fields() {
		d.data.Put(f.Key, f.Value.Clone())
		d.repeat.Put(f.Key, f.Value.Clone())
	}
	return d.Update(sink)
}

// SetColorMode switches light/dark styling. Cached resource URLs are kept
// per theme. Call Update to re-render.
func (d *Document) SetColorMode(mode mediaquery.ColorMode) {
	d.colorMode = mode
	d.media.SetColorMode(mode)
}

// OnSurfaceChanged records a new surface size for media queries. Call
// Update to re-render.
func (d *Document) OnSurfaceChanged(width, height int) {
	d.media.SetSurfaceSize(width, height)
}

// ColorMode returns the current color mode.
func (d *Document) ColorMode() mediaquery.ColorMode { return d.colorMode }

// NodeCount returns the number of node ids allocated so far.
func (d *Document) NodeCount() int { return d.maxNodeID }

func (d *Document) resetPass() {
	d.nodeID = 0
	d.topSeq = 0
	d.frames = d.frames[:0]
}
