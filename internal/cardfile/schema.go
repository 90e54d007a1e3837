package cardfile

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/starford/cardbind/internal/jsonvalue"
)

// Card documents the card format. It is only used to publish the schema;
// cards are decoded into jsonvalue trees.
type Card struct {
	Template   Node                      `json:"template" jsonschema:"required" jsonschema_description:"Root template node"`
	Styles     map[string]any            `json:"styles" jsonschema:"required" jsonschema_description:"Class (.name) and id (#name) style tables plus @MEDIA and @FONT-FACE"`
	Actions    map[string]Action         `json:"actions" jsonschema:"required" jsonschema_description:"Named actions referenced by node events"`
	Data       map[string]any            `json:"data" jsonschema:"required" jsonschema_description:"Page data bound by {{...}} expressions"`
	APIVersion map[string]map[string]any `json:"apiVersion,omitempty" jsonschema_description:"Data overrides keyed by minimum host API level"`
}

// Node is one template element.
type Node struct {
	Type      string            `json:"type" jsonschema:"required" jsonschema_description:"Element type, block, or the name of a custom component"`
	ID        string            `json:"id,omitempty" jsonschema_description:"Selects #id styles"`
	ClassList any               `json:"classList,omitempty" jsonschema_description:"Array of class names or a space separated string"`
	Attr      map[string]any    `json:"attr,omitempty" jsonschema_description:"Attributes; string values may be bindings"`
	Style     map[string]string `json:"style,omitempty" jsonschema_description:"Inline styles; values may be bindings"`
	Shown     any               `json:"shown,omitempty" jsonschema_description:"Boolean or {{x}} && !{{y}} expression"`
	Repeat    any               `json:"repeat,omitempty" jsonschema_description:"{{list}}, an array literal, or {exp, key, value}"`
	Events    map[string]string `json:"events,omitempty" jsonschema_description:"Event name to action name"`
	Children  []Node            `json:"children,omitempty"`
}

// Action is a named action.
type Action struct {
	Action string         `json:"action" jsonschema:"required" jsonschema_description:"Action kind, proxy forwards to the invoking node's event"`
	Method string         `json:"method,omitempty" jsonschema_description:"Invoker event forwarded by a proxy action"`
	Params map[string]any `json:"params,omitempty" jsonschema_description:"Parameters; string values may be bindings"`
}

// ComponentTemplate is a custom component declared at the card top level.
type ComponentTemplate struct {
	Template Node              `json:"template" jsonschema:"required"`
	Props    map[string]Prop   `json:"props,omitempty"`
	Styles   map[string]any    `json:"styles,omitempty"`
	Actions  map[string]Action `json:"actions,omitempty"`
	Data     map[string]any    `json:"data,omitempty"`
}

// Prop declares one component property.
type Prop struct {
	Default any `json:"default,omitempty"`
}

// JSONSchema reflects the card format. Custom components appear as extra
// top-level members of the card.
func JSONSchema() ([]byte, error) {
	r := &jsonschema.Reflector{}
	s := r.Reflect(&Card{})
	s.Title = "cardbind card"
	comp := r.Reflect(&ComponentTemplate{})
	for name, def := range comp.Definitions {
		if _, ok := s.Definitions[name]; !ok {
			s.Definitions[name] = def
		}
	}
	if card, ok := s.Definitions["Card"]; ok {
		card.AdditionalProperties = &jsonschema.Schema{Ref: "#/$defs/ComponentTemplate"}
	}
	return json.MarshalIndent(s, "", "  ")
}

// Summary describes what a card binds to.
type Summary struct {
	Components []string `json:"components,omitempty"`
	DataKeys   []string `json:"data_keys"`
	Actions    []string `json:"actions,omitempty"`
	Media      []string `json:"media,omitempty"`
	APILevels  []string `json:"api_levels,omitempty"`
}

var sections = map[string]bool{"template": true, "styles": true, "actions": true, "data": true, "apiVersion": true}

// Inspect summarizes a decoded card.
func Inspect(card *jsonvalue.Value) Summary {
	var s Summary
	for _, f := range card.Fields() {
		if !sections[f.Key] && f.Value.Get("template").IsObject() {
			s.Components = append(s.Components, f.Key)
		}
	}
	for _, f := range card.Get("data").Fields() {
		s.DataKeys = append(s.DataKeys, f.Key)
	}
	for _, f := range card.Get("actions").Fields() {
		s.Actions = append(s.Actions, f.Key)
	}
	for _, m := range card.Get("styles").Get("@MEDIA").Items() {
		if c := m.Get("condition").Str(); c != "" {
			s.Media = append(s.Media, c)
		}
	}
	for _, f := range card.Get("apiVersion").Fields() {
		s.APILevels = append(s.APILevels, f.Key)
	}
	sort.Strings(s.Components)
	if s.DataKeys == nil {
		s.DataKeys = []string{}
	}
	return s
}
