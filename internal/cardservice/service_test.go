package cardservice

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/index"
	"github.com/starford/cardbind/internal/jsonvalue"
	"github.com/starford/cardbind/internal/page"
	"github.com/starford/cardbind/internal/sse"
	"github.com/starford/cardbind/internal/storage"
	"github.com/starford/cardbind/internal/testutil"
)

const weatherCard = `{
	"template":{"type":"div","classList":["card"],"children":[
		{"type":"text","attr":{"value":"{{city}}"}},
		{"type":"text","attr":{"value":"{{$t('strings.hello')}}"}}
	]},
	"styles":{
		".card":{"color":"black"},
		"@MEDIA":[{"condition":"(dark-mode: true)",".card":{"color":"white"}}]
	},
	"actions":{},
	"data":{"city":"Oslo"}
}`

type capture struct {
	mu      sync.Mutex
	events  []sse.Event
	bundles []string
}

func (c *capture) Publish(e sse.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *capture) PublishBundleEvent(kind, bundle string) {
	c.mu.Lock()
	c.bundles = append(c.bundles, kind+":"+bundle)
	c.mu.Unlock()
}

func (c *capture) batches() []Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Batch
	for _, e := range c.events {
		if b, ok := e.Data.(Batch); ok {
			out = append(out, b)
		}
	}
	return out
}

type env struct {
	svc   *Service
	store *storage.FS
	db    *index.DB
	pub   *capture
}

func newEnv(t *testing.T) *env {
	t.Helper()
	_, store := testutil.TestBundles(t)
	db := testutil.TestDB(t)
	testutil.WriteBundle(t, store, db, "weather", map[string]string{
		"card.json":       weatherCard,
		"i18n/en-US.json": `{"strings":{"hello":"Hello"}}`,
		"i18n/de.json":    `{"strings":{"hello":"Hallo"}}`,
	})
	pub := &capture{}
	svc := New(store, db, WithLogger(testutil.QuietLogger()), WithPublisher(pub))
	return &env{svc: svc, store: store, db: db, pub: pub}
}

func attrValue(cmds []page.Command, id int) string {
	for _, c := range cmds {
		if c.Kind == page.KindSetAttrs && c.ID == id && len(c.Pairs) > 0 {
			return c.Pairs[0].Value
		}
	}
	return ""
}

func TestOpen_RendersAndPersists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.svc.Open(ctx, OpenRequest{Bundle: "weather", Locale: "de-DE"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := attrValue(r.Commands, 1); got != "Oslo" {
		t.Errorf("city = %q, want Oslo", got)
	}
	if got := attrValue(r.Commands, 2); got != "Hallo" {
		t.Errorf("greeting = %q, want Hallo", got)
	}
	if r.Session.NodeCount != 3 {
		t.Errorf("node count = %d, want 3", r.Session.NodeCount)
	}

	row, err := e.db.GetSession(r.Session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if row.Bundle != "weather" || row.Locale != "de-DE" || row.Width != 360 {
		t.Errorf("row = %+v", row)
	}
	batches := e.pub.batches()
	if len(batches) != 1 || batches[0].Seq != 1 || batches[0].Session != r.Session.ID {
		t.Errorf("published batches = %+v", batches)
	}
}

func TestOpen_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.svc.Open(ctx, OpenRequest{Bundle: "missing"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing bundle: err = %v", err)
	}
	if _, err := e.svc.Open(ctx, OpenRequest{Bundle: "weather", Locale: "!!"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad locale: err = %v", err)
	}

	testutil.WriteBundle(t, e.store, e.db, "broken", map[string]string{"card.json": `{"template":{}}`})
	if _, err := e.svc.Open(ctx, OpenRequest{Bundle: "broken"}); !errors.Is(err, apperr.ErrInvalidCard) {
		t.Errorf("broken card: err = %v", err)
	}
}

func TestUpdateData_ColorMode_Resize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, err := e.svc.Open(ctx, OpenRequest{Bundle: "weather"})
	if err != nil {
		t.Fatal(err)
	}
	id := r.Session.ID

	r, err = e.svc.UpdateData(ctx, id, jsonvalue.ParseString(`{"city":"Bergen"}`))
	if err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	if got := attrValue(r.Commands, 1); got != "Bergen" {
		t.Errorf("city = %q, want Bergen", got)
	}
	if _, err := e.svc.UpdateData(ctx, id, jsonvalue.NewObject()); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty patch: err = %v", err)
	}

	r, err = e.svc.SetColorMode(ctx, id, "dark")
	if err != nil {
		t.Fatalf("SetColorMode: %v", err)
	}
	var styles []page.Pair
	for _, c := range r.Commands {
		if c.Kind == page.KindSetStyles && c.ID == 1000000 {
			styles = c.Pairs
		}
	}
	want := []page.Pair{{Key: "color", Value: "black"}, {Key: "color", Value: "white"}}
	if diff := cmp.Diff(want, styles); diff != "" {
		t.Errorf("dark styles (-want +got):\n%s", diff)
	}
	if r.Session.ColorMode != "dark" {
		t.Errorf("session color mode = %q, want dark", r.Session.ColorMode)
	}
	if _, err := e.svc.SetColorMode(ctx, id, "sepia"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad mode: err = %v", err)
	}

	if _, err := e.svc.Resize(ctx, id, 800, 600); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	info, _ := e.svc.Session(ctx, id)
	if info.Width != 800 || info.ColorMode != "dark" || info.Updates != 3 {
		t.Errorf("session = %+v", info)
	}
	if got, _ := e.svc.Evaluate(ctx, id, "{{city}}"); got != "Bergen" {
		t.Errorf("evaluate = %q", got)
	}
}

func TestClose(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, _ := e.svc.Open(ctx, OpenRequest{Bundle: "weather"})
	if err := e.svc.Close(ctx, r.Session.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.svc.Session(ctx, r.Session.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("session after close: err = %v", err)
	}
	if err := e.svc.Close(ctx, r.Session.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double close: err = %v", err)
	}
	rows, _ := e.svc.Sessions(ctx, "")
	if len(rows) != 0 {
		t.Errorf("rows after close = %d", len(rows))
	}
}

func TestSyncBundles_ReloadsSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, _ := e.svc.Open(ctx, OpenRequest{Bundle: "weather"})
	if _, err := e.svc.UpdateData(ctx, r.Session.ID, jsonvalue.ParseString(`{"city":"Tromso"}`)); err != nil {
		t.Fatal(err)
	}

	changed := `{"template":{"type":"text","attr":{"value":"Now: {{city}}","title":"{{city}}"}},"styles":{},"actions":{},"data":{"city":"x"}}`
	if err := e.store.Write("weather/card.json", []byte(changed)); err != nil {
		t.Fatal(err)
	}
	changes, err := e.svc.SyncBundles(ctx)
	if err != nil {
		t.Fatalf("SyncBundles: %v", err)
	}
	if diff := cmp.Diff([]index.Change{{Kind: index.Updated, Bundle: "weather"}}, changes); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}

	batches := e.pub.batches()
	last := batches[len(batches)-1]
	if !last.Reset {
		t.Error("reload batch not marked as reset")
	}
	want := []page.Pair{{Key: "value", Value: "Now: {{city}}"}, {Key: "title", Value: "Tromso"}}
	for _, c := range last.Commands {
		if c.Kind == page.KindSetAttrs {
			if diff := cmp.Diff(want, c.Pairs); diff != "" {
				t.Errorf("reloaded attrs (-want +got):\n%s", diff)
			}
		}
	}
	if diff := cmp.Diff([]string{"updated:weather"}, e.pub.bundles); diff != "" {
		t.Errorf("bundle events (-want +got):\n%s", diff)
	}
}

func TestReloadBundle_DeletedClosesSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, _ := e.svc.Open(ctx, OpenRequest{Bundle: "weather"})
	if err := e.store.Delete("weather/card.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.SyncBundles(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Session(ctx, r.Session.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("session survived bundle deletion: err = %v", err)
	}
}

func TestRender_OneShot(t *testing.T) {
	e := newEnv(t)
	cmds, err := e.svc.Render(context.Background(), OpenRequest{Bundle: "weather", Data: jsonvalue.ParseString(`{"city":"Rome"}`)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := attrValue(cmds, 1); got != "Rome" {
		t.Errorf("city = %q, want Rome", got)
	}
	if len(e.pub.batches()) != 0 {
		t.Error("one-shot render published a batch")
	}
}

func TestMatchMedia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	round := true
	res, err := e.svc.MatchMedia(ctx, MatchRequest{Condition: "(min-width: 500) and (round-screen: true)", Width: 600, Height: 400, RoundScreen: &round})
	if err != nil {
		t.Fatalf("MatchMedia: %v", err)
	}
	if !res.Matches || res.Features.Orientation != "landscape" {
		t.Errorf("result = %+v", res)
	}

	r, _ := e.svc.Open(ctx, OpenRequest{Bundle: "weather", ColorMode: "dark"})
	res, err = e.svc.MatchMedia(ctx, MatchRequest{Condition: "(dark-mode: true)", Session: r.Session.ID})
	if err != nil || !res.Matches {
		t.Errorf("session match = %+v, err = %v", res, err)
	}
	if _, err := e.svc.MatchMedia(ctx, MatchRequest{Condition: " "}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty condition: err = %v", err)
	}
}

func TestOpen_SaveFailureLeavesNoSession(t *testing.T) {
	_, store := testutil.TestBundles(t)
	dbPath := filepath.Join(t.TempDir(), "cardbind-test.db")
	db, err := index.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	testutil.WriteBundle(t, store, db, "weather", map[string]string{"card.json": weatherCard})

	raw, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	if _, err := raw.Exec(`CREATE TRIGGER reject_sessions BEFORE INSERT ON sessions
		BEGIN SELECT RAISE(ABORT, 'sessions are read-only'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	pub := &capture{}
	svc := New(store, db, WithLogger(testutil.QuietLogger()), WithPublisher(pub))
	if _, err := svc.Open(context.Background(), OpenRequest{Bundle: "weather"}); err == nil {
		t.Fatal("Open succeeded with a failing session save")
	}

	if n := len(svc.sessions); n != 0 {
		t.Errorf("live sessions = %d, want 0", n)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	var closed bool
	for _, ev := range pub.events {
		closed = closed || ev.Type == sse.TypeSessionClosed
	}
	if !closed {
		t.Error("no session.closed event after the failed open")
	}
}
