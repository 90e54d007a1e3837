package card

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/page"
)

const (
	repeatIndex = "$idx"
	repeatItem  = "$item"
)

// repeatRecord holds the node ids emitted for one repeat block. Item i
// owns ids[i*stride : (i+1)*stride].
type repeatRecord struct {
	ids    []int
	stride int
	// consumed is the number of sequential ids the block took during
	// Create, nested blocks included.
	consumed int
}

type binding struct {
	key  string
	prev *jsonvalue.Value
}

// repeatFrame is one active repeat expansion.
type repeatFrame struct {
	node      *jsonvalue.Value
	key       string
	idxAlias  string
	itemAlias string
	item      int
	// seq numbers the nested repeat blocks met inside the current item.
	seq    int
	ids    []int
	prior  []int
	cursor int
	saved  []binding
}

func (f *repeatFrame) nextPrior() (int, bool) {
	if f.cursor >= len(f.prior) {
		return 0, false
	}
	id := f.prior[f.cursor]
	f.cursor++
	return id, true
}

func (d *Document) currentFrame() *repeatFrame {
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

// nextRecordKey names the repeat block about to be walked. Nested keys
// carry the enclosing key and item, so they survive changes to the
// enclosing list.
func (d *Document) nextRecordKey() string {
	if f := d.currentFrame(); f != nil {
		f.seq++
		return f.key + "/" + strconv.Itoa(f.item) + "." + strconv.Itoa(f.seq)
	}
	d.topSeq++
	return strconv.Itoa(d.topSeq)
}

func (d *Document) pushFrame(f *repeatFrame) {
	for _, k := range []string{repeatIndex, repeatItem, f.idxAlias, f.itemAlias} {
		if k != "" {
			f.saved = append(f.saved, binding{key: k, prev: d.repeat.Get(k)})
		}
	}
	d.frames = append(d.frames, f)
}

func (d *Document) popFrame() {
	f := d.frames[len(d.frames)-1]
	d.frames = d.frames[:len(d.frames)-1]
	for i := len(f.saved) - 1; i >= 0; i-- {
		b := f.saved[i]
		if b.prev == nil {
			d.repeat.Delete(b.key)
		} else {
			d.repeat.Put(b.key, b.prev)
		}
	}
}

func (d *Document) bindItem(f *repeatFrame, items *jsonvalue.Value, i int) {
	item := items.Index(i)
	d.repeat.Put(repeatIndex, jsonvalue.NewString(strconv.Itoa(i)))
	d.repeat.Put(repeatItem, item.Clone())
	if f.idxAlias != "" {
		d.repeat.Put(f.idxAlias, jsonvalue.NewString(strconv.Itoa(i)))
	}
	if f.itemAlias != "" {
		d.repeat.Put(f.itemAlias, item.Clone())
	}
	f.item = i
	f.seq = 0
}

// repeatSource reads a repeat value: "{{expr}}", {exp, key, value} or an
// array literal.
func (d *Document) repeatSource(rv *jsonvalue.Value, sc scope) (items *jsonvalue.Value, idxAlias, itemAlias string) {
	exp := rv
	if rv.IsObject() {
		exp = rv.Get("exp")
		idxAlias = rv.Get("key").Str()
		itemAlias = rv.Get("value").Str()
	}
	items = d.repeatArray(exp, sc)
	if !items.IsArray() {
		d.logger.Debug("card: repeat without a bindable array", slog.String("repeat", rv.Text()))
		items = jsonvalue.NewArray()
	}
	return items, idxAlias, itemAlias
}

func (d *Document) repeatArray(exp *jsonvalue.Value, sc scope) *jsonvalue.Value {
	if exp.IsArray() {
		return exp
	}
	text := exp.Str()
	if !isVariable(text) {
		return jsonvalue.ParseString(text)
	}
	key := strings.TrimSpace(text[2 : len(text)-2])
	for _, root := range d.roots(sc) {
		if v := root.Get(key); v.IsArray() {
			return v
		}
	}
	if out, ok := d.pathValue(key, sc); ok {
		if v := jsonvalue.ParseString(out); v.IsArray() {
			return v
		}
	}
	return jsonvalue.ParseString(d.resolve(text, sc))
}

// walkRepeat expands node once per item of its repeat array. On Update an
// existing block is patched: surviving items reuse their ids, new items
// get fresh ids and surplus items are removed.
func (d *Document) walkRepeat(sink page.Sink, node *jsonvalue.Value, parentID int, sc scope, mode walkMode) {
	items, idxAlias, itemAlias := d.repeatSource(node.Get("repeat"), sc)
	topLevel := len(d.frames) == 0
	f := &repeatFrame{node: node, key: d.nextRecordKey(), idxAlias: idxAlias, itemAlias: itemAlias}
	d.pushFrame(f)
	defer d.popFrame()

	rec, ok := d.records[f.key]
	if mode != modeUpdate || !ok {
		if mode == modeUpdate {
			mode = modeGrow
		}
		d.createRepeat(sink, f, items, parentID, sc, mode)
		return
	}
	d.patchRepeat(sink, f, rec, items, parentID, sc)
	if topLevel {
		d.nodeID += rec.consumed
	}
}

func (d *Document) createRepeat(sink page.Sink, f *repeatFrame, items *jsonvalue.Value, parentID int, sc scope, mode walkMode) {
	start := d.nodeID
	n := items.Len()
	for i := 0; i < n; i++ {
		d.bindItem(f, items, i)
		d.walk(sink, f.node, parentID, sc, mode)
	}
	rec := &repeatRecord{ids: f.ids}
	if n > 0 {
		rec.stride = len(f.ids) / n
	}
	if mode == modeCreate {
		rec.consumed = d.nodeID - start
	}
	d.records[f.key] = rec
}

func (d *Document) patchRepeat(sink page.Sink, f *repeatFrame, rec *repeatRecord, items *jsonvalue.Value, parentID int, sc scope) {
	n := items.Len()
	last := 0
	if rec.stride > 0 {
		last = len(rec.ids) / rec.stride
	}

	for i := 0; i < min(last, n); i++ {
		d.bindItem(f, items, i)
		f.prior = rec.ids[i*rec.stride : (i+1)*rec.stride]
		f.cursor = 0
		d.walk(sink, f.node, parentID, sc, modeUpdate)
	}
	f.prior = nil

	switch {
	case n > last:
		f.ids = nil
		for i := last; i < n; i++ {
			d.bindItem(f, items, i)
			d.walk(sink, f.node, parentID, sc, modeGrow)
		}
		if rec.stride == 0 {
			rec.stride = len(f.ids) / (n - last)
		}
		rec.ids = append(rec.ids, f.ids...)
	case n < last:
		d.removeItems(sink, f.key, rec, n)
	}
}

// removeItems removes every node of the items from index n on, including
// the nodes of repeat blocks nested in them, highest id first.
func (d *Document) removeItems(sink page.Sink, key string, rec *repeatRecord, n int) {
	ids := append([]int(nil), rec.ids[n*rec.stride:]...)
	for k, nested := range d.records {
		if nestedItem(k, key) >= n {
			ids = append(ids, nested.ids...)
			delete(d.records, k)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		sink.RemoveNode(id)
	}
	rec.ids = rec.ids[:n*rec.stride]
}

// nestedItem returns the item index of parent that record key k is nested
// in, or -1 when k is not nested in parent.
func nestedItem(k, parent string) int {
	rest, ok := strings.CutPrefix(k, parent+"/")
	if !ok {
		return -1
	}
	item, _, _ := strings.Cut(rest, ".")
	i, err := strconv.Atoi(item)
	if err != nil {
		return -1
	}
	return i
}
