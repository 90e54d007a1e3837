// Package cardfile locates and decodes the card document of a bundle.
//
// A bundle keeps its card in card.json, card.yaml or card.yml at the bundle
// root. YAML cards are converted node by node so mapping order survives,
// which matters for attribute and style emission order.
package cardfile

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/jsonvalue"
)

// Names lists the accepted card file names in lookup order.
var Names = []string{"card.json", "card.yaml", "card.yml"}

// Find picks the card file among bundle-relative paths.
func Find(paths []string) (string, bool) {
	have := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		have[p] = struct{}{}
	}
	for _, n := range Names {
		if _, ok := have[n]; ok {
			return n, true
		}
	}
	return "", false
}

// IsCardFile reports whether a bundle-relative path names a card file.
func IsCardFile(p string) bool {
	for _, n := range Names {
		if p == n {
			return true
		}
	}
	return false
}

// Parse decodes a card document. The format follows the file extension.
func Parse(name string, data []byte) (*jsonvalue.Value, error) {
	var (
		v   *jsonvalue.Value
		err error
	)
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".json":
		v, err = jsonvalue.Parse(data)
	case ".yaml", ".yml":
		v, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("cardfile: unsupported extension %q: %w", ext, apperr.ErrInvalidCard)
	}
	if err != nil {
		return nil, fmt.Errorf("cardfile: parse %s: %w: %w", name, apperr.ErrInvalidCard, err)
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("cardfile: %s is not an object: %w", name, apperr.ErrInvalidCard)
	}
	return v, nil
}

func parseYAML(data []byte) (*jsonvalue.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}
	return fromNode(doc.Content[0], 0)
}

const maxYAMLDepth = 128

func fromNode(n *yaml.Node, depth int) (*jsonvalue.Value, error) {
	if depth > maxYAMLDepth {
		return nil, errors.New("document nested too deep")
	}
	switch n.Kind {
	case yaml.MappingNode:
		obj := jsonvalue.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := fromNode(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			obj.Put(n.Content[i].Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := jsonvalue.NewArray()
		for _, c := range n.Content {
			val, err := fromNode(c, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Append(val)
		}
		return arr, nil
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.ScalarNode:
		return scalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

func scalar(n *yaml.Node) (*jsonvalue.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return jsonvalue.NewNull(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return jsonvalue.NewBool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return jsonvalue.NewNumber(f), nil
	case "!!str":
		return jsonvalue.NewString(n.Value), nil
	}
	return nil, fmt.Errorf("line %d: unsupported tag %s", n.Line, strconv.Quote(n.ShortTag()))
}
