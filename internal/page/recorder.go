package page

// Recorder is a Sink that buffers commands until FlushCommands hands the
// batch to the flush callback. Font registrations are recorded once per
// family.
type Recorder struct {
	pending []Command
	last    []Command
	fonts   map[string]string
	onFlush func([]Command)
}

// NewRecorder creates a Recorder. onFlush may be nil.
func NewRecorder(onFlush func([]Command)) *Recorder {
	return &Recorder{fonts: make(map[string]string), onFlush: onFlush}
}

func (r *Recorder) CreateRootNode(nodeType string, id int) {
	r.pending = append(r.pending, Command{Kind: KindCreateRoot, ID: id, Type: nodeType})
}

func (r *Recorder) AddChildNode(nodeType string, id, parentID int) {
	r.pending = append(r.pending, Command{Kind: KindAddChild, ID: id, Parent: parentID, Type: nodeType})
}

func (r *Recorder) SetAttributes(id int, attrs []Pair) {
	r.pending = append(r.pending, Command{Kind: KindSetAttrs, ID: id, Pairs: attrs})
}

func (r *Recorder) SetSpecial(id int, special Special) {
	if special == nil {
		return
	}
	r.pending = append(r.pending, Command{
		Kind:        KindSetSpecial,
		ID:          id,
		SpecialKind: special.SpecialKind(),
		Special:     special,
	})
}

func (r *Recorder) SetStyles(id int, styles []Pair) {
	r.pending = append(r.pending, Command{Kind: KindSetStyles, ID: id, Pairs: styles})
}

func (r *Recorder) AddEvent(id int, event, action string) {
	r.pending = append(r.pending, Command{Kind: KindAddEvent, ID: id, Event: event, Action: action})
}

func (r *Recorder) RemoveNode(id int) {
	r.pending = append(r.pending, Command{Kind: KindRemove, ID: id})
}

// RegisterFont records a font face. Re-registering the same source is a no-op.
func (r *Recorder) RegisterFont(family, src string) {
	if prev, ok := r.fonts[family]; ok && prev == src {
		return
	}
	r.fonts[family] = src
	r.pending = append(r.pending, Command{Kind: KindRegisterFont, Family: family, Source: src})
}

// FlushCommands closes the current batch.
func (r *Recorder) FlushCommands() {
	batch := r.pending
	r.pending = nil
	r.last = batch
	if r.onFlush != nil && len(batch) > 0 {
		r.onFlush(batch)
	}
}

// Pending returns the commands recorded since the last flush.
func (r *Recorder) Pending() []Command { return r.pending }

// LastBatch returns the batch handed out by the most recent flush.
func (r *Recorder) LastBatch() []Command { return r.last }

// Fonts returns the registered font faces keyed by family.
func (r *Recorder) Fonts() map[string]string {
	out := make(map[string]string, len(r.fonts))
	for k, v := range r.fonts {
		out[k] = v
	}
	return out
}
