package card

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/page"
)

// scope is the lexical environment of a template node. Inside a custom
// component data, props, styles and actions come from the component.
type scope struct {
	data    *jsonvalue.Value
	props   *jsonvalue.Value
	styles  *jsonvalue.Value
	actions *jsonvalue.Value
	// proxies maps a component method to the action bound by its invoker.
	proxies map[string]string
	carry   *carry
}

// carry holds what a component invocation hands to the root node of its
// expansion. It is consumed by the first element that takes it.
type carry struct {
	styles   []page.Pair
	shown    bool
	hasShown bool
	used     bool
}

func (s scope) take() (styles []page.Pair, shown, hasShown bool) {
	if s.carry == nil || s.carry.used {
		return nil, true, false
	}
	s.carry.used = true
	return s.carry.styles, s.carry.shown, s.carry.hasShown
}

func (d *Document) pageScope() scope {
	return scope{data: d.data, styles: d.styles, actions: d.actions}
}

// roots returns the objects plain variables and paths are looked up in.
// Inside a repeat only the repeat scope counts, plus the data of the
// component being expanded.
func (d *Document) roots(sc scope) []*jsonvalue.Value {
	if len(d.frames) == 0 {
		return []*jsonvalue.Value{sc.data}
	}
	if sc.data != d.data && sc.data.IsObject() {
		return []*jsonvalue.Value{d.repeat, sc.data}
	}
	return []*jsonvalue.Value{d.repeat}
}

func isVariable(s string) bool {
	return len(s) >= 4 && strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}")
}

func isMultiVariable(s string) bool {
	return len(s) >= 4 && strings.HasPrefix(s, "$f(") && strings.HasSuffix(s, ")")
}

// Resolve evaluates value against the page data. Text that is not a
// binding, or a binding that cannot be resolved, is returned unchanged.
func (d *Document) Resolve(value string) string {
	return d.resolve(value, d.pageScope())
}

func (d *Document) resolve(value string, sc scope) string {
	switch {
	case isVariable(value):
		return d.resolveVariable(value, sc)
	case isMultiVariable(value):
		return d.resolveMulti(value, sc)
	}
	return value
}

func (d *Document) resolveVariable(value string, sc scope) string {
	if d.depth >= maxResolveDepth {
		d.logger.Warn("card: binding nested too deep", slog.String("expr", value))
		return value
	}
	d.depth++
	defer func() { d.depth-- }()

	expr := strings.TrimSpace(value[2 : len(value)-2])
	for _, eval := range []func(string, scope) (string, bool){
		d.propValue,
		d.pathValue,
		d.variable,
		d.special,
		d.ternary,
		d.logical,
	} {
		out, ok := eval(expr, sc)
		if !ok {
			continue
		}
		if isVariable(out) {
			return d.resolveVariable(out, sc)
		}
		return out
	}
	return value
}

// resolveMulti splices every {{...}} span of a $f(...) value.
func (d *Document) resolveMulti(value string, sc scope) string {
	rest := value[3 : len(value)-1]
	var b strings.Builder
	for {
		start := strings.Index(rest, "{{")
		end := strings.Index(rest, "}}")
		if start < 0 || end < start {
			break
		}
		b.WriteString(rest[:start])
		b.WriteString(d.resolveVariable(rest[start:end+2], sc))
		rest = rest[end+2:]
	}
	b.WriteString(rest)
	return b.String()
}

// propValue resolves a component prop. The prop's value is reset to its
// default afterwards, so an invocation value is seen once.
func (d *Document) propValue(expr string, sc scope) (string, bool) {
	if !sc.props.IsObject() {
		return "", false
	}
	if name, _, ok := strings.Cut(expr, "["); ok && name != "" {
		prop := sc.props.Get(name)
		if !prop.IsObject() {
			return "", false
		}
		scratch := jsonvalue.NewObject()
		scratch.Put(name, propSource(prop))
		out, ok := walkPath(expr, scratch)
		if !ok {
			return "", false
		}
		resetProp(prop)
		return out, true
	}

	prop := sc.props.Get(expr)
	if !prop.IsObject() {
		return "", false
	}
	out := propSource(prop).Text()
	resetProp(prop)
	return out, true
}

func propSource(prop *jsonvalue.Value) *jsonvalue.Value {
	if v := prop.Get("value"); v.IsValid() {
		return v
	}
	return prop.Get("default")
}

func resetProp(prop *jsonvalue.Value) {
	def := prop.Get("default")
	if !def.IsValid() {
		return
	}
	prop.Replace("value", jsonvalue.NewString(def.Text()))
}

func (d *Document) pathValue(expr string, sc scope) (string, bool) {
	if !strings.ContainsAny(expr, "[.") {
		return "", false
	}
	for _, root := range d.roots(sc) {
		if out, ok := walkPath(expr, root); ok {
			return out, true
		}
	}
	return "", false
}

func (d *Document) variable(expr string, sc scope) (string, bool) {
	for _, root := range d.roots(sc) {
		if v := root.Get(expr); v.IsValid() {
			return v.Text(), true
		}
	}
	return "", false
}

// operand resolves a ternary or logical operand: a prop or a variable.
// A value that is itself a binding is resolved before use.
func (d *Document) operand(expr string, sc scope) (string, bool) {
	out, ok := d.propValue(expr, sc)
	if !ok {
		out, ok = d.variable(expr, sc)
	}
	if ok && isVariable(out) {
		out = d.resolveVariable(out, sc)
	}
	return out, ok
}

func (d *Document) ternary(expr string, sc scope) (string, bool) {
	if !strings.Contains(expr, "?") || !strings.Contains(expr, ":") {
		return "", false
	}
	parts := splitTrim(expr, "?")
	if len(parts) != 2 {
		return "", false
	}
	branches := splitTrim(parts[1], ":")
	if len(branches) != 2 {
		return "", false
	}
	flag, _ := d.operand(parts[0], sc)
	branch := branches[1]
	if flag == "true" {
		branch = branches[0]
	}
	branch = unquote(branch)
	if out, ok := d.operand(branch, sc); ok {
		return out, true
	}
	return branch, true
}

// logical handles a single &&, || or ! operator. Longer chains are not
// evaluated.
func (d *Document) logical(expr string, sc scope) (string, bool) {
	switch {
	case strings.Contains(expr, "&&"):
		return d.binary(expr, "&&", func(a, b bool) bool { return a && b }, sc)
	case strings.Contains(expr, "||"):
		return d.binary(expr, "||", func(a, b bool) bool { return a || b }, sc)
	case strings.Contains(expr, "!"):
		parts := splitTrim(expr, "!")
		if len(parts) != 1 {
			return "", false
		}
		v, ok := d.operand(parts[0], sc)
		if !ok {
			return "", false
		}
		return strconv.FormatBool(v != "true"), true
	}
	return "", false
}

func (d *Document) binary(expr, op string, fn func(a, b bool) bool, sc scope) (string, bool) {
	parts := splitTrim(expr, op)
	if len(parts) != 2 {
		return "", false
	}
	a, ok := d.operand(parts[0], sc)
	if !ok {
		return "", false
	}
	b, ok := d.operand(parts[1], sc)
	if !ok {
		return "", false
	}
	return strconv.FormatBool(fn(a == "true", b == "true")), true
}

// shownText evaluates a shown expression: {{x}} and !{{x}} terms joined by
// &&. Any other form is returned unchanged.
func (d *Document) shownText(value string, sc scope) string {
	show := true
	for _, part := range splitTrim(value, "&&") {
		var v bool
		switch {
		case isVariable(part):
			v = d.resolveVariable(part, sc) == "true"
		case strings.HasPrefix(part, "!") && isVariable(part[1:]):
			v = d.resolveVariable(part[1:], sc) != "true"
		default:
			return value
		}
		show = show && v
	}
	return strconv.FormatBool(show)
}

// boolAttr reads a shown-style flag from node[key]. ok reports whether the
// key was present in a usable form.
func (d *Document) boolAttr(node *jsonvalue.Value, key string, sc scope) (value, ok bool) {
	v := node.Get(key)
	switch {
	case v.IsString():
		return d.shownText(v.Str(), sc) == "true", true
	case v.IsBool():
		return v.Bool(), true
	}
	return true, false
}

// shownAttr combines a node's shown flag with the flag written by an
// enclosing block.
func (d *Document) shownAttr(node *jsonvalue.Value, sc scope) (shown, has bool) {
	shown, has = d.boolAttr(node, "shown", sc)
	if block, ok := d.boolAttr(node, blockValueKey, sc); ok {
		shown = shown && block
		has = true
	}
	return shown, has
}

// splitTrim splits s on sep, trims each piece and drops empty ones.
func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
