// Package locale orders translation files for a locale and selects CLDR
// plural categories.
package locale

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

// DefaultFallback is tried after every locale-derived candidate.
var DefaultFallback = []string{"en-US", "en"}

// Locale is a parsed BCP 47 tag.
type Locale struct {
	tag language.Tag
}

// New parses tag. Underscore separators ("zh_CN") are accepted.
func New(tag string) (*Locale, error) {
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return nil, fmt.Errorf("locale: parse %q: %w", tag, err)
	}
	return &Locale{tag: t}, nil
}

// Tag returns the canonical tag string.
func (l *Locale) Tag() string { return l.tag.String() }

// Fallback orders candidates (file base names such as "zh-CN", "en") from
// the most to the least specific match for this locale. Candidates that do
// not relate to the locale are dropped, except the defaults.
func (l *Locale) Fallback(candidates []string) []string {
	byNorm := make(map[string]string, len(candidates))
	for _, c := range candidates {
		byNorm[normalize(c)] = c
	}

	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		orig, ok := byNorm[normalize(name)]
		if !ok || seen[orig] {
			return
		}
		seen[orig] = true
		out = append(out, orig)
	}

	base, script, region := l.tag.Raw()
	b := base.String()
	var s, r string
	if script != (language.Script{}) {
		s = script.String()
	}
	if region != (language.Region{}) {
		r = region.String()
	}
	add(l.tag.String())
	if s != "" && r != "" {
		add(b + "-" + s + "-" + r)
	}
	if r != "" {
		add(b + "-" + r)
	}
	if s != "" {
		add(b + "-" + s)
	}
	add(b)

	// Closest remaining candidate by CLDR distance, e.g. zh-HK → zh-TW.
	var rest []language.Tag
	var restNames []string
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		t, err := language.Parse(normalize(c))
		if err != nil {
			continue
		}
		rest = append(rest, t)
		restNames = append(restNames, c)
	}
	if len(rest) > 0 {
		_, idx, conf := language.NewMatcher(rest).Match(l.tag)
		if conf >= language.High {
			add(restNames[idx])
		}
	}

	for _, d := range DefaultFallback {
		add(d)
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

// PluralCategory returns the CLDR cardinal category of n: zero, one, two,
// few, many or other.
func (l *Locale) PluralCategory(n float64) string {
	i, v, w, f, t := operands(n)
	switch plural.Cardinal.MatchPlural(l.tag, i, v, w, f, t) {
	case plural.Zero:
		return "zero"
	case plural.One:
		return "one"
	case plural.Two:
		return "two"
	case plural.Few:
		return "few"
	case plural.Many:
		return "many"
	}
	return "other"
}

// operands derives the CLDR plural operands from the decimal form of n.
func operands(n float64) (i, v, w, f, t int) {
	s := strconv.FormatFloat(math.Abs(n), 'f', -1, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	i = atoiCapped(intPart)
	v = len(frac)
	f = atoiCapped(frac)
	trimmed := strings.TrimRight(frac, "0")
	w = len(trimmed)
	t = atoiCapped(trimmed)
	return i, v, w, f, t
}

func atoiCapped(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return math.MaxInt32
	}
	return n
}
