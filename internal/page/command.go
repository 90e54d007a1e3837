// Package page defines the DOM mutation stream produced by a card render.
package page

// Sink receives ordered DOM mutation commands.
type Sink interface {
	CreateRootNode(nodeType string, id int)
	AddChildNode(nodeType string, id, parentID int)
	SetAttributes(id int, attrs []Pair)
	SetSpecial(id int, special Special)
	SetStyles(id int, styles []Pair)
	AddEvent(id int, event, action string)
	RemoveNode(id int)
	FlushCommands()
}

// Pair is a resolved attribute or style entry.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type CommandKind string

const (
	KindCreateRoot   CommandKind = "createRoot"
	KindAddChild     CommandKind = "addChild"
	KindSetAttrs     CommandKind = "setAttributes"
	KindSetSpecial   CommandKind = "setSpecial"
	KindSetStyles    CommandKind = "setStyles"
	KindAddEvent     CommandKind = "addEvent"
	KindRemove       CommandKind = "remove"
	KindRegisterFont CommandKind = "registerFont"
)

// Command is one recorded mutation.
type Command struct {
	Kind        CommandKind `json:"kind"`
	ID          int         `json:"id,omitempty"`
	Parent      int         `json:"parent,omitempty"`
	Type        string      `json:"type,omitempty"`
	Pairs       []Pair      `json:"pairs,omitempty"`
	SpecialKind string      `json:"specialKind,omitempty"`
	Special     Special     `json:"special,omitempty"`
	Event       string      `json:"event,omitempty"`
	Action      string      `json:"action,omitempty"`
	Family      string      `json:"family,omitempty"`
	Source      string      `json:"source,omitempty"`
}
