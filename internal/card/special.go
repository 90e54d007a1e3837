package card

import (
	"log/slog"
	"path"
	"strings"

	"github.com/spf13/cast"

	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/mediaquery"
)

const (
	i18nDir      = "i18n/"
	resourcesDir = "resources/"
)

// special handles the $r, $t and $tc forms.
func (d *Document) special(expr string, sc scope) (string, bool) {
	switch {
	case len(expr) >= 6 && strings.HasPrefix(expr, "$r('") && strings.HasSuffix(expr, "')"):
		return d.resourceURL(expr[4 : len(expr)-2])
	case len(expr) >= 6 && strings.HasPrefix(expr, "$t('") && strings.HasSuffix(expr, "')"):
		return d.translate(expr[4 : len(expr)-2])
	case len(expr) >= 5 && strings.HasPrefix(expr, "$tc(") && strings.HasSuffix(expr, ")"):
		return d.plural(expr[4:len(expr)-1], sc)
	}
	return "", false
}

// densityBucket maps a screen density to its resource qualifier.
func densityBucket(density float64) string {
	switch {
	case density <= 0:
		return "mdpi"
	case density < 0.875:
		return "ldpi"
	case density < 1.25:
		return "mdpi"
	case density < 1.75:
		return "hdpi"
	case density < 2.5:
		return "xhdpi"
	case density < 3.5:
		return "xxhdpi"
	}
	return "xxxhdpi"
}

func (d *Document) resourceURL(key string) (string, bool) {
	theme := ""
	if d.colorMode == mediaquery.Dark {
		theme = "dark"
	}
	cacheKey := key + theme
	if u, ok := d.imageURLs[cacheKey]; ok {
		return u, true
	}

	dpi := densityBucket(d.density)
	files := []string{"res-" + dpi + ".json", "res-defaults.json"}
	if theme != "" {
		files = []string{
			"res-" + theme + "-" + dpi + ".json",
			"res-" + theme + "-defaults.json",
			"res-" + theme + ".json",
			"res-defaults.json",
		}
	}
	keys := splitKeys(key)
	for _, f := range files {
		if u := lookup(keys, d.assetJSON(resourcesDir+f)).Str(); u != "" {
			d.imageURLs[cacheKey] = u
			return u, true
		}
	}
	d.logger.Debug("card: resource not found", slog.String("key", key), slog.String("theme", theme))
	return "", false
}

func (d *Document) translate(key string) (string, bool) {
	if d.assets == nil || d.locale == nil {
		return "", false
	}
	var names []string
	for _, f := range d.assets.AssetList(i18nDir) {
		if name, ok := strings.CutSuffix(path.Base(f), ".json"); ok {
			names = append(names, name)
		}
	}
	keys := splitKeys(key)
	for _, name := range d.locale.Fallback(names) {
		if v := lookup(keys, d.assetJSON(i18nDir+name+".json")); v.IsValid() {
			return v.Text(), true
		}
	}
	d.logger.Debug("card: translation not found", slog.String("key", key), slog.String("locale", d.locale.Tag()))
	return "", false
}

// plural resolves $tc('key', n): the plural object found under key is
// indexed by the CLDR category of n.
func (d *Document) plural(args string, sc scope) (string, bool) {
	parts := splitTrim(args, ",")
	if len(parts) != 2 || len(parts[0]) < 2 || parts[0][0] != '\'' || parts[0][len(parts[0])-1] != '\'' {
		return "", false
	}
	text, ok := d.translate(parts[0][1 : len(parts[0])-1])
	if !ok {
		return "", false
	}
	count := parts[1]
	if v, ok := d.operand(count, sc); ok {
		count = v
	}
	n, err := cast.ToFloat64E(count)
	if err != nil {
		return "", false
	}
	forms := jsonvalue.ParseString(text)
	if v := forms.Get(d.locale.PluralCategory(n)); v.IsString() {
		return v.Str(), true
	}
	if v := forms.Get("other"); v.IsString() {
		return v.Str(), true
	}
	return "", false
}

// assetJSON parses and caches a bundle JSON file. Missing or malformed
// files are cached as nil.
func (d *Document) assetJSON(name string) *jsonvalue.Value {
	if v, ok := d.assetCache[name]; ok {
		return v
	}
	var v *jsonvalue.Value
	if d.assets != nil {
		if content, ok := d.assets.AssetContent(name); ok {
			v = jsonvalue.ParseString(content)
			if v == nil {
				d.logger.Warn("card: malformed asset json", slog.String("path", name))
			}
		}
	}
	d.assetCache[name] = v
	return v
}
