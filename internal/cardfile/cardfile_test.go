package cardfile

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/cardbind/internal/apperr"
)

func TestParse_JSON(t *testing.T) {
	v, err := Parse("card.json", []byte(`{"template":{"type":"text"},"styles":{},"actions":{},"data":{"b":1,"a":2}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Get("template").Get("type").Str(); got != "text" {
		t.Errorf("type = %q, want %q", got, "text")
	}
}

func TestParse_YAMLKeepsOrder(t *testing.T) {
	input := []byte(`
template:
  type: text
  attr:
    zeta: "{{z}}"
    alpha: "{{a}}"
styles: {}
actions: {}
data:
  z: 1.5
  a: true
  n: ~
  list: [x, 2]
`)
	v, err := Parse("card.yaml", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var keys []string
	for _, f := range v.Get("template").Get("attr").Fields() {
		keys = append(keys, f.Key)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha"}, keys); diff != "" {
		t.Errorf("attr order mismatch (-want +got):\n%s", diff)
	}
	if got := v.Get("data").String(); got != `{"z":1.5,"a":true,"n":null,"list":["x",2]}` {
		t.Errorf("data = %s", got)
	}
}

func TestParse_YAMLAlias(t *testing.T) {
	input := []byte("base: &b {color: red}\ntemplate: {type: text}\nstyles: {'.a': *b}\nactions: {}\ndata: {}\n")
	v, err := Parse("card.yml", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Get("styles").Get(".a").Get("color").Str(); got != "red" {
		t.Errorf("aliased color = %q, want red", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"card.json", `{"template":`},
		{"card.json", `[1,2]`},
		{"card.yaml", "- a\n- b\n"},
		{"card.yaml", "a: [\n"},
		{"card.toml", "a = 1"},
	}
	for _, tc := range cases {
		if _, err := Parse(tc.name, []byte(tc.data)); !errors.Is(err, apperr.ErrInvalidCard) {
			t.Errorf("Parse(%s, %q) err = %v, want ErrInvalidCard", tc.name, tc.data, err)
		}
	}
}

func TestFind(t *testing.T) {
	if got, ok := Find([]string{"i18n/en.json", "card.yml", "card.json"}); !ok || got != "card.json" {
		t.Errorf("Find = %q, %v; want card.json", got, ok)
	}
	if _, ok := Find([]string{"resources/res-defaults.json"}); ok {
		t.Error("Find reported a card in a bundle without one")
	}
}

func TestInspect(t *testing.T) {
	v, err := Parse("card.json", []byte(`{
		"template":{"type":"div"},
		"styles":{"@MEDIA":[{"condition":"(dark-mode: true)"}]},
		"actions":{"open":{"action":"router"}},
		"data":{"title":"x"},
		"apiVersion":{"7":{}},
		"zbtn":{"template":{"type":"button"}},
		"abtn":{"template":{"type":"button"}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{
		Components: []string{"abtn", "zbtn"},
		DataKeys:   []string{"title"},
		Actions:    []string{"open"},
		Media:      []string{"(dark-mode: true)"},
		APILevels:  []string{"7"},
	}
	if diff := cmp.Diff(want, Inspect(v)); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONSchema(t *testing.T) {
	raw, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	defs, _ := doc["$defs"].(map[string]any)
	for _, name := range []string{"Card", "Node", "Action", "ComponentTemplate"} {
		if _, ok := defs[name]; !ok {
			t.Errorf("schema missing definition %s", name)
		}
	}
}
