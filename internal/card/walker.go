package card

import (
	"log/slog"
	"strconv"

	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/page"
)

type walkMode int

const (
	// modeCreate emits every node with sequential ids.
	modeCreate walkMode = iota
	// modeGrow emits nodes for new repeat items with ids above any used so far.
	modeGrow
	// modeUpdate refreshes existing nodes without creating them.
	modeUpdate
)

const blockValueKey = "blockValue"

// reservedSections are top-level card keys that never name a component.
var reservedSections = map[string]bool{
	"template":   true,
	"styles":     true,
	"actions":    true,
	"data":       true,
	"apiVersion": true,
	"props":      true,
}

func (d *Document) walk(sink page.Sink, node *jsonvalue.Value, parentID int, sc scope, mode walkMode) {
	if !node.IsObject() {
		d.logger.Debug("card: skipping non-object template node")
		return
	}
	if d.walkDepth >= maxWalkDepth {
		d.logger.Warn("card: template nested too deep", slog.String("type", node.Get("type").Str()))
		return
	}
	d.walkDepth++
	defer func() { d.walkDepth-- }()

	if node.Contains("repeat") {
		if f := d.currentFrame(); f == nil || f.node != node {
			d.walkRepeat(sink, node, parentID, sc, mode)
			return
		}
	}

	typ := node.Get("type").Str()
	if typ == "block" {
		d.walkBlock(sink, node, parentID, sc, mode)
		return
	}
	if comp := d.component(typ); comp != nil {
		d.walkComponent(sink, node, comp, parentID, sc, mode)
		return
	}
	d.walkElement(sink, node, typ, parentID, sc, mode)
}

// walkBlock walks the children of a block under the block's parent. The
// block's own shown flag is written onto each child.
func (d *Document) walkBlock(sink page.Sink, node *jsonvalue.Value, parentID int, sc scope, mode walkMode) {
	shown, _ := d.shownAttr(node, sc)
	for _, child := range node.Get("children").Items() {
		child.Put(blockValueKey, jsonvalue.NewString(strconv.FormatBool(shown)))
		d.walk(sink, child, parentID, sc, mode)
	}
}

func (d *Document) component(typ string) *jsonvalue.Value {
	if typ == "" || reservedSections[typ] {
		return nil
	}
	if c := d.body.Get(typ); c.IsObject() && c.Get("template").IsObject() {
		return c
	}
	return nil
}

// walkComponent expands a custom component invocation. The invocation
// itself gets no node; its attributes become prop values and its shown
// flag and styles are handed to the root of the expansion.
func (d *Document) walkComponent(sink page.Sink, node, comp *jsonvalue.Value, parentID int, sc scope, mode walkMode) {
	props := comp.Get("props")
	for _, f := range node.Get("attr").Fields() {
		if prop := props.Get(f.Key); prop.IsObject() {
			prop.Put("value", jsonvalue.NewString(d.resolve(f.Value.Text(), sc)))
		}
	}

	shown, hasShown := d.shownAttr(node, sc)
	pending, pendingShown, hasPending := sc.take()
	if hasPending {
		shown = shown && pendingShown
		hasShown = true
	}

	data := comp.Get("data")
	if !data.IsObject() {
		data = jsonvalue.NewObject()
	}
	inner := scope{
		data:    data,
		props:   props,
		styles:  comp.Get("styles"),
		actions: comp.Get("actions"),
		proxies: d.bindProxies(node, sc),
		carry: &carry{
			styles:   d.nodeStyles(node, sc, pending),
			shown:    shown,
			hasShown: hasShown,
		},
	}
	d.walk(sink, comp.Get("template"), parentID, inner, mode)
}

func (d *Document) walkElement(sink page.Sink, node *jsonvalue.Value, typ string, parentID int, sc scope, mode walkMode) {
	id, ok := d.nextID(parentID, mode)
	if !ok {
		d.logger.Warn("card: no node id recorded for update", slog.String("type", typ))
		return
	}

	shown, hasShown := d.shownAttr(node, sc)
	pending, pendingShown, hasPending := sc.take()
	if hasPending {
		shown = shown && pendingShown
		hasShown = true
	}

	var attrs []page.Pair
	if hasShown && shown {
		attrs = append(attrs, page.Pair{Key: "show", Value: "true"})
	}
	plain, specials := d.attributes(node, sc)
	attrs = append(attrs, plain...)
	if hasShown && !shown {
		attrs = append(attrs, page.Pair{Key: "show", Value: "false"})
	}
	styles := d.nodeStyles(node, sc, pending)
	events := d.events(node, sc)

	if mode != modeUpdate {
		if parentID < 0 {
			sink.CreateRootNode(typ, id)
		} else {
			sink.AddChildNode(typ, id, parentID)
		}
	}
	sink.SetAttributes(id, attrs)
	for _, s := range specials {
		sink.SetSpecial(id, s)
	}
	sink.SetStyles(id, styles)
	for _, e := range events {
		sink.AddEvent(id, e.name, e.action)
	}

	child := sc
	child.carry = nil
	for _, c := range node.Get("children").Items() {
		d.walk(sink, c, id, child, mode)
	}
}

// nextID allocates the id of the next element. Inside a repeat being
// updated the ids recorded on Create are reused in order.
func (d *Document) nextID(parentID int, mode walkMode) (int, bool) {
	f := d.currentFrame()
	var id int
	switch {
	case mode == modeGrow:
		id = d.maxNodeID
		d.maxNodeID++
	case mode == modeUpdate && f != nil:
		return f.nextPrior()
	case parentID < 0:
		id = rootNodeID
		d.nodeID++
	default:
		id = d.nodeID
		d.nodeID++
	}
	if f != nil {
		f.ids = append(f.ids, id)
	}
	return id, true
}
