package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/models"
	"github.com/starford/cardbind/internal/page"
	"github.com/starford/cardbind/internal/testutil"
)

const counterCard = `{
	"template":{"type":"div","children":[
		{"type":"text","repeat":"{{items}}","attr":{"value":"{{$item}}"}},
		{"type":"text","attr":{"value":"{{total ? 'some' : 'none'}}"},"shown":"{{visible}}"}
	]},
	"styles":{},"actions":{},
	"data":{"items":["a","b"],"total":"true","visible":true}
}`

// testEnv sets up a temp bundles root with one bundle, a SQLite DB, the
// service and the router. An empty token disables auth.
func testEnv(t *testing.T, token string) http.Handler {
	t.Helper()
	_, store := testutil.TestBundles(t)
	db := testutil.TestDB(t)
	testutil.WriteBundle(t, store, db, "counter", map[string]string{"card.json": counterCard})
	svc := cardservice.New(store, db, cardservice.WithLogger(testutil.QuietLogger()))
	return NewRouter(svc, token != "", token, nil)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func openSession(t *testing.T, h http.Handler) cardservice.Render {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", map[string]any{"bundle": "counter", "width": 400, "height": 300})
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
	var r cardservice.Render
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode render: %v", err)
	}
	return r
}

func count(cmds []page.Command, kind page.CommandKind) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func TestListBundles(t *testing.T) {
	h := testEnv(t, "")
	w := do(t, h, http.MethodGet, "/bundles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp BundleListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Bundles) != 1 || resp.Bundles[0].Name != "counter" {
		t.Errorf("bundles = %+v", resp.Bundles)
	}
}

func TestSyncBundles_NoChanges(t *testing.T) {
	h := testEnv(t, "")
	w := do(t, h, http.MethodPost, "/bundles/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"changes":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestContractAndSchema(t *testing.T) {
	h := testEnv(t, "")
	w := do(t, h, http.MethodGet, "/bundles/counter/contract", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("contract status = %d", w.Code)
	}
	var sum ContractResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if len(sum.DataKeys) != 3 {
		t.Errorf("data keys = %v", sum.DataKeys)
	}
	if w := do(t, h, http.MethodGet, "/bundles/nope/contract", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing bundle contract = %d, want 404", w.Code)
	}

	w = do(t, h, http.MethodGet, "/schema", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"$defs"`) {
		t.Errorf("schema = %d %s", w.Code, w.Body.String())
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := testEnv(t, "")
	r := openSession(t, h)
	if n := count(r.Commands, page.KindAddChild); n != 3 {
		t.Errorf("created children = %d, want 3", n)
	}
	id := r.Session.ID

	w := do(t, h, http.MethodPut, "/sessions/"+id+"/data", `{"items":["a","b","c","d"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var upd cardservice.Render
	_ = json.Unmarshal(w.Body.Bytes(), &upd)
	if n := count(upd.Commands, page.KindAddChild); n != 2 {
		t.Errorf("grown children = %d, want 2", n)
	}

	w = do(t, h, http.MethodPut, "/sessions/"+id+"/surface", SurfaceRequest{Width: 800, Height: 600})
	if w.Code != http.StatusOK {
		t.Fatalf("surface status = %d", w.Code)
	}
	w = do(t, h, http.MethodPut, "/sessions/"+id+"/color-mode", ColorModeRequest{Mode: "dark"})
	if w.Code != http.StatusOK {
		t.Fatalf("color mode status = %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/evaluate", EvaluateRequest{Expression: "{{items[3]}}"})
	var ev EvaluateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &ev)
	if ev.Value != "d" {
		t.Errorf("evaluate = %q, want d", ev.Value)
	}

	w = do(t, h, http.MethodGet, "/sessions/"+id, nil)
	var s models.Session
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s.Width != 800 || s.ColorMode != "dark" || s.Updates != 3 {
		t.Errorf("session = %+v", s)
	}

	w = do(t, h, http.MethodGet, "/sessions?bundle=counter", nil)
	var list SessionListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(list.Sessions))
	}

	if w := do(t, h, http.MethodDelete, "/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Errorf("close = %d, want 204", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after close = %d, want 404", w.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	h := testEnv(t, "")
	id := openSession(t, h).Session.ID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing bundle", http.MethodPost, "/sessions", map[string]any{}, http.StatusBadRequest},
		{"unknown bundle", http.MethodPost, "/sessions", map[string]any{"bundle": "nope"}, http.StatusNotFound},
		{"bad color", http.MethodPost, "/sessions", map[string]any{"bundle": "counter", "color_mode": "sepia"}, http.StatusBadRequest},
		{"data not object", http.MethodPost, "/sessions", map[string]any{"bundle": "counter", "data": []int{1}}, http.StatusBadRequest},
		{"bad json", http.MethodPut, "/sessions/" + id + "/surface", "{", http.StatusBadRequest},
		{"zero surface", http.MethodPut, "/sessions/" + id + "/surface", SurfaceRequest{}, http.StatusBadRequest},
		{"empty patch", http.MethodPut, "/sessions/" + id + "/data", `{}`, http.StatusBadRequest},
		{"patch not json", http.MethodPut, "/sessions/" + id + "/data", `{"a":`, http.StatusBadRequest},
		{"unknown session", http.MethodPut, "/sessions/nope/data", `{"a":1}`, http.StatusNotFound},
		{"empty expression", http.MethodPost, "/sessions/" + id + "/evaluate", EvaluateRequest{}, http.StatusBadRequest},
		{"empty condition", http.MethodPost, "/media/match", MatchMediaRequest{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := do(t, h, tc.method, tc.path, tc.body); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestMatchMedia(t *testing.T) {
	h := testEnv(t, "")
	w := do(t, h, http.MethodPost, "/media/match", MatchMediaRequest{Condition: "(orientation: landscape)", Width: 800, Height: 400})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res MatchMediaResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Matches {
		t.Errorf("result = %+v, want match", res)
	}
}

func TestAuth(t *testing.T) {
	h := testEnv(t, "secret")

	if w := do(t, h, http.MethodGet, "/bundles", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/bundles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/bundles", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}

	if w := do(t, h, http.MethodGet, "/schema", nil); w.Code != http.StatusOK {
		t.Errorf("public schema = %d, want 200", w.Code)
	}
}
