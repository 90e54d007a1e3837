package card

import (
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/page"
)

// loadMediaStyles collects the "@MEDIA" blocks of the page styles keyed by
// condition. Blocks with the same condition are merged.
func (d *Document) loadMediaStyles() {
	d.mediaStyles = orderedmap.New[string, *jsonvalue.Value]()
	for _, block := range d.styles.Get("@MEDIA").Items() {
		cond := block.Get("condition").Str()
		if cond == "" {
			d.logger.Debug("card: media block without condition")
			continue
		}
		merged, ok := d.mediaStyles.Get(cond)
		if !ok {
			merged = jsonvalue.NewObject()
			d.mediaStyles.Set(cond, merged)
		}
		for _, f := range block.Fields() {
			if f.Key != "condition" {
				merged.Put(f.Key, f.Value)
			}
		}
	}
}

// nodeStyles resolves the style list of node: pending styles, classes,
// id, then inline styles. Every class and id is followed by the entries of
// the media blocks that currently match.
func (d *Document) nodeStyles(node *jsonvalue.Value, sc scope, pending []page.Pair) []page.Pair {
	out := append([]page.Pair(nil), pending...)

	classes := node.Get("classList").Items()
	if cl := node.Get("classList"); cl.IsString() {
		for _, name := range strings.Fields(cl.Str()) {
			classes = append(classes, jsonvalue.NewString(name))
		}
	}
	for _, c := range classes {
		selector := "." + d.resolve(c.Text(), sc)
		out = d.selectStyle(out, selector, sc.styles)
		out = d.selectMediaStyle(out, selector)
	}

	if id := node.Get("id"); id.IsValid() {
		selector := "#" + d.resolve(id.Text(), sc)
		out = d.selectStyle(out, selector, sc.styles)
		out = d.selectMediaStyle(out, selector)
	}

	for _, f := range node.Get("style").Fields() {
		value := d.resolve(f.Value.Text(), sc)
		if f.Key == "fontFamily" {
			d.registerFont(value)
		}
		out = append(out, page.Pair{Key: f.Key, Value: value})
	}
	return out
}

// selectStyle appends the declarations of selector. Values are taken as
// written.
func (d *Document) selectStyle(out []page.Pair, selector string, styles *jsonvalue.Value) []page.Pair {
	for _, f := range styles.Get(selector).Fields() {
		value := f.Value.Text()
		if f.Key == "fontFamily" {
			d.registerFont(value)
		}
		out = append(out, page.Pair{Key: f.Key, Value: value})
	}
	return out
}

func (d *Document) selectMediaStyle(out []page.Pair, selector string) []page.Pair {
	if d.mediaStyles == nil {
		return out
	}
	for pair := d.mediaStyles.Oldest(); pair != nil; pair = pair.Next() {
		if d.media.MatchCondition(pair.Key) {
			out = d.selectStyle(out, selector, pair.Value)
		}
	}
	return out
}

// registerFont passes the @FONT-FACE source declared for family to the
// font registrar.
func (d *Document) registerFont(family string) {
	if d.fonts == nil || family == "" {
		return
	}
	faces := d.styles.Get("@FONT-FACE")
	candidates := faces.Items()
	if faces.IsObject() {
		for _, f := range faces.Fields() {
			candidates = append(candidates, f.Value)
		}
	}
	for _, face := range candidates {
		if face.Get("fontFamily").Str() != family {
			continue
		}
		src := strings.TrimSpace(face.Get("src").Str())
		src = strings.TrimSuffix(strings.TrimPrefix(src, "url("), ")")
		src = strings.Trim(src, `"'`)
		if src == "" {
			d.logger.Debug("card: font face without source", slog.String("family", family))
			return
		}
		d.fonts.RegisterFont(family, src)
		return
	}
}
