package card

import (
	"log/slog"

	"github.com/starford/cardbind/internal/jsonvalue"
)

type nodeEvent struct {
	name   string
	action string
}

// events resolves the event bindings of node. Each event names an action;
// the action is copied and its parameters are resolved. A proxy action is
// replaced by the action the invoking component bound to its method.
func (d *Document) events(node *jsonvalue.Value, sc scope) []nodeEvent {
	var out []nodeEvent
	for _, f := range node.Get("events").Fields() {
		action := d.actionText(f.Value.Str(), sc)
		if f.Key == "" || action == "" {
			d.logger.Debug("card: skipping unbound event", slog.String("event", f.Key))
			continue
		}
		out = append(out, nodeEvent{name: f.Key, action: action})
	}
	return out
}

func (d *Document) actionText(name string, sc scope) string {
	action := sc.actions.Get(name)
	if !action.IsValid() {
		return ""
	}
	if action.IsObject() && action.Get("action").Str() == "proxy" {
		return sc.proxies[action.Get("method").Str()]
	}
	resolved := action.Clone()
	d.replaceParams(resolved, sc)
	return resolved.String()
}

// bindProxies maps each event of a component invocation to its resolved
// action in the invoking scope.
func (d *Document) bindProxies(node *jsonvalue.Value, sc scope) map[string]string {
	fields := node.Get("events").Fields()
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if action := d.actionText(f.Value.Str(), sc); action != "" {
			out[f.Key] = action
		}
	}
	return out
}

// replaceParams resolves the string leaves of an action in place.
func (d *Document) replaceParams(v *jsonvalue.Value, sc scope) {
	switch {
	case v.IsObject():
		for _, f := range v.Fields() {
			if f.Value.IsString() {
				v.Put(f.Key, jsonvalue.NewString(d.resolve(f.Value.Str(), sc)))
			} else {
				d.replaceParams(f.Value, sc)
			}
		}
	case v.IsArray():
		for i, item := range v.Items() {
			if item.IsString() {
				v.SetIndex(i, jsonvalue.NewString(d.resolve(item.Str(), sc)))
			} else {
				d.replaceParams(item, sc)
			}
		}
	}
}
