package page

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecorder_FlushHandsOutBatch(t *testing.T) {
	var flushed [][]Command
	r := NewRecorder(func(batch []Command) { flushed = append(flushed, batch) })

	r.CreateRootNode("div", 1000000)
	r.AddChildNode("text", 1, 1000000)
	r.SetAttributes(1, []Pair{{Key: "value", Value: "hi"}})
	r.RemoveNode(2)
	if len(r.Pending()) != 4 {
		t.Fatalf("pending = %d, want 4", len(r.Pending()))
	}
	r.FlushCommands()

	want := []Command{
		{Kind: KindCreateRoot, ID: 1000000, Type: "div"},
		{Kind: KindAddChild, ID: 1, Parent: 1000000, Type: "text"},
		{Kind: KindSetAttrs, ID: 1, Pairs: []Pair{{Key: "value", Value: "hi"}}},
		{Kind: KindRemove, ID: 2},
	}
	if len(flushed) != 1 {
		t.Fatalf("flush count = %d, want 1", len(flushed))
	}
	if diff := cmp.Diff(want, flushed[0]); diff != "" {
		t.Errorf("batch mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, r.LastBatch()); diff != "" {
		t.Errorf("last batch mismatch (-want +got):\n%s", diff)
	}
	if len(r.Pending()) != 0 {
		t.Error("pending not cleared by flush")
	}

	r.FlushCommands()
	if len(flushed) != 1 {
		t.Error("empty flush should not invoke callback")
	}
}

func TestRecorder_RegisterFontOnce(t *testing.T) {
	r := NewRecorder(nil)
	r.RegisterFont("Roboto", "fonts/roboto.ttf")
	r.RegisterFont("Roboto", "fonts/roboto.ttf")
	r.RegisterFont("Roboto", "fonts/roboto-v2.ttf")
	if n := len(r.Pending()); n != 2 {
		t.Fatalf("pending = %d, want 2", n)
	}
	if got := r.Fonts()["Roboto"]; got != "fonts/roboto-v2.ttf" {
		t.Errorf("font src = %q", got)
	}
}

func TestRecorder_SpecialJSON(t *testing.T) {
	r := NewRecorder(nil)
	r.SetSpecial(5, BadgeConfig{BadgeColor: "#ff0000"})
	r.SetSpecial(5, nil)
	cmds := r.Pending()
	if len(cmds) != 1 {
		t.Fatalf("pending = %d, want 1", len(cmds))
	}
	b, err := json.Marshal(cmds[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"specialKind":"config"`) || !strings.Contains(s, `"badgeColor":"#ff0000"`) {
		t.Errorf("unexpected json %s", s)
	}
}
