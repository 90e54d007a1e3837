// Package mediaquery evaluates CSS-style media conditions against the
// current surface and device.
//
// A condition is one or more alternatives separated by "," or "or". Each
// alternative is an optional "only screen" / "not screen" prefix followed by
// parenthesized clauses joined with "and":
//
//	screen and (min-width: 600) and (orientation: landscape)
//	(round-screen: true) or (device-type: wearable)
//	(400 < width <= 800), (dark-mode: true)
//
// Malformed conditions never match. Results are memoized per condition string
// and recomputed only when the feature snapshot changes.
package mediaquery

import (
	"errors"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

var errSyntax = errors.New("mediaquery: syntax error")

type memoEntry struct {
	snapshot string
	result   bool
}

// Matcher holds the live surface state and the query memo. It is not safe
// for concurrent use.
type Matcher struct {
	width, height int
	colorMode     ColorMode
	device        Device

	memo        map[string]memoEntry
	evaluations int
}

// New creates a Matcher for device with a zero surface in light mode.
func New(device Device) *Matcher {
	return &Matcher{device: device, memo: make(map[string]memoEntry)}
}

// SetSurfaceSize records the surface size in logical pixels.
func (m *Matcher) SetSurfaceSize(width, height int) {
	m.width, m.height = width, height
}

// SetColorMode switches between light and dark.
func (m *Matcher) SetColorMode(mode ColorMode) { m.colorMode = mode }

// SetDevice replaces the device description.
func (m *Matcher) SetDevice(d Device) { m.device = d }

// Features builds a snapshot of the live state.
func (m *Matcher) Features() Features {
	f := Features{
		Width:       m.width,
		Height:      m.height,
		Resolution:  m.device.Density,
		DarkMode:    m.colorMode == Dark,
		DeviceType:  m.device.Type,
		DeviceBrand: m.device.Brand,
		RoundScreen: m.device.RoundScreen,
		Orientation: "portrait",
	}
	if m.height > 0 {
		f.AspectRatio = float64(m.width) / float64(m.height)
	}
	if m.width > m.height {
		f.Orientation = "landscape"
	}
	return f
}

// MatchCondition evaluates condition against the live state.
func (m *Matcher) MatchCondition(condition string) bool {
	return m.Match(condition, m.Features())
}

// Match evaluates condition against f.
func (m *Matcher) Match(condition string, f Features) bool {
	if strings.TrimSpace(condition) == "" {
		return false
	}
	lower := strings.ToLower(condition)
	// Surface not laid out yet.
	if f.Width == 0 && (strings.Contains(lower, "width") || strings.Contains(lower, "height")) {
		return false
	}
	key := f.key()
	if e, ok := m.memo[condition]; ok && e.snapshot == key {
		return e.result
	}
	m.evaluations++
	result := evaluate(lower, f)
	m.memo[condition] = memoEntry{snapshot: key, result: result}
	return result
}

type clause func(Features) bool

type query struct {
	negate  bool
	clauses []clause
}

func (q query) match(f Features) bool {
	ok := true
	for _, c := range q.clauses {
		if !c(f) {
			ok = false
			break
		}
	}
	return ok != q.negate
}

func evaluate(condition string, f Features) bool {
	alts := splitAlternatives(condition)
	queries := make([]query, 0, len(alts))
	for _, alt := range alts {
		q, err := parseQuery(alt)
		if err != nil {
			return false
		}
		queries = append(queries, q)
	}
	for _, q := range queries {
		if q.match(f) {
			return true
		}
	}
	return false
}

// splitAlternatives splits on "," and the "or" keyword outside parentheses.
func splitAlternatives(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && c == ',':
			out = append(out, s[start:i])
			start = i + 1
		case depth == 0 && isSpace(c) && strings.HasPrefix(s[i+1:], "or") &&
			i+3 < len(s) && (isSpace(s[i+3]) || s[i+3] == '('):
			out = append(out, s[start:i])
			start = i + 3
			i += 2
		}
	}
	return append(out, s[start:])
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' }

var prefixRe = regexp.MustCompile(`^(?:(only|not)\s+)?screen\b`)

func parseQuery(alt string) (query, error) {
	var q query
	rest := strings.TrimSpace(alt)
	if rest == "" {
		return q, errSyntax
	}
	if m := prefixRe.FindStringSubmatch(rest); m != nil {
		q.negate = m[1] == "not"
		rest = strings.TrimSpace(rest[len(m[0]):])
		if rest == "" {
			return q, nil
		}
		if !strings.HasPrefix(rest, "and") {
			return q, errSyntax
		}
	}
	for rest != "" {
		if strings.HasPrefix(rest, "and") {
			rest = strings.TrimSpace(rest[3:])
		}
		if !strings.HasPrefix(rest, "(") {
			return q, errSyntax
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return q, errSyntax
		}
		c, err := parseClause(rest[:end+1])
		if err != nil {
			return q, err
		}
		q.clauses = append(q.clauses, c)
		rest = strings.TrimSpace(rest[end+1:])
	}
	if len(q.clauses) == 0 {
		return q, errSyntax
	}
	return q, nil
}

const (
	numPat  = `(\d*\.?\d+)\s*(px|dpi|dpcm)?`
	opPat   = `(<=|>=|<|>|=)`
	featPat = `([a-z][a-z-]*)`
)

var (
	rangeRe  = regexp.MustCompile(`^\(\s*` + numPat + `\s*` + opPat + `\s*` + featPat + `\s*` + opPat + `\s*` + numPat + `\s*\)$`)
	leftRe   = regexp.MustCompile(`^\(\s*` + featPat + `\s*` + opPat + `\s*` + numPat + `\s*\)$`)
	rightRe  = regexp.MustCompile(`^\(\s*` + numPat + `\s*` + opPat + `\s*` + featPat + `\s*\)$`)
	minMaxRe = regexp.MustCompile(`^\(\s*(min|max)-` + featPat + `\s*:\s*` + numPat + `\s*\)$`)
	exactRe  = regexp.MustCompile(`^\(\s*(orientation|device-type|device-brand|round-screen|dark-mode)\s*:\s*([a-z0-9_-]+)\s*\)$`)
)

func parseClause(text string) (clause, error) {
	if m := rangeRe.FindStringSubmatch(text); m != nil {
		lo, hi := cast.ToFloat64(m[1]), cast.ToFloat64(m[6])
		loUnit, opLo, feat, opHi, hiUnit := m[2], m[3], m[4], m[5], m[7]
		return func(f Features) bool {
			a, ok := deviceValue(f, feat, loUnit)
			b, ok2 := deviceValue(f, feat, hiUnit)
			return ok && ok2 && compare(lo, opLo, a) && compare(b, opHi, hi)
		}, nil
	}
	if m := leftRe.FindStringSubmatch(text); m != nil {
		feat, op, n, unit := m[1], m[2], cast.ToFloat64(m[3]), m[4]
		return func(f Features) bool {
			v, ok := deviceValue(f, feat, unit)
			return ok && compare(v, op, n)
		}, nil
	}
	if m := rightRe.FindStringSubmatch(text); m != nil {
		n, unit, op, feat := cast.ToFloat64(m[1]), m[2], m[3], m[4]
		return func(f Features) bool {
			v, ok := deviceValue(f, feat, unit)
			return ok && compare(n, op, v)
		}, nil
	}
	if m := minMaxRe.FindStringSubmatch(text); m != nil {
		op := ">="
		if m[1] == "max" {
			op = "<="
		}
		feat, n, unit := m[2], cast.ToFloat64(m[3]), m[4]
		return func(f Features) bool {
			v, ok := deviceValue(f, feat, unit)
			return ok && compare(v, op, n)
		}, nil
	}
	if m := exactRe.FindStringSubmatch(text); m != nil {
		return exactClause(m[1], m[2])
	}
	return nil, errSyntax
}

func exactClause(feat, want string) (clause, error) {
	switch feat {
	case "orientation":
		return func(f Features) bool { return f.Orientation == want }, nil
	case "device-type":
		return func(f Features) bool { return strings.EqualFold(f.DeviceType, want) }, nil
	case "device-brand":
		return func(f Features) bool { return strings.EqualFold(f.DeviceBrand, want) }, nil
	}
	if want != "true" && want != "false" {
		return nil, errSyntax
	}
	flag := want == "true"
	if feat == "round-screen" {
		return func(f Features) bool { return f.RoundScreen == flag }, nil
	}
	return func(f Features) bool { return f.DarkMode == flag }, nil
}

// deviceValue rescales the snapshot value into the unit used by the condition.
func deviceValue(f Features, feat, unit string) (float64, bool) {
	v, ok := f.number(feat)
	if !ok {
		return 0, false
	}
	switch unit {
	case "dpi":
		v *= 96
	case "dpcm":
		v *= 36
	}
	return v, true
}

func compare(a float64, op string, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "=":
		return a == b
	}
	return false
}
