package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/cardbind/internal/cardfile"
	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/models"
	"github.com/starford/cardbind/internal/testutil"
)

const greetingCard = `{
	"template":{"type":"div","children":[
		{"type":"text","attr":{"value":"{{name}}"}},
		{"type":"text","repeat":"{{items}}","attr":{"value":"{{$item}}"}}
	]},
	"styles":{"@MEDIA":[{"condition":"(dark-mode: true)",".x":{"color":"white"}}]},
	"actions":{"tap":{"action":"router"}},
	"data":{"name":"Ada","items":["a","b"]}
}`

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestBundles(t)
	db := testutil.TestDB(t)
	testutil.WriteBundle(t, store, db, "greeting", map[string]string{"card.json": greetingCard})
	svc := cardservice.New(store, db, cardservice.WithLogger(testutil.QuietLogger()))
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_bundles":
		result, err = srv.listBundles(ctx, req)
	case "open_card":
		result, err = srv.openCard(ctx, req)
	case "update_card_data":
		result, err = srv.updateCardData(ctx, req)
	case "close_card":
		result, err = srv.closeCard(ctx, req)
	case "evaluate_expression":
		result, err = srv.evaluateExpression(ctx, req)
	case "match_media_query":
		result, err = srv.matchMediaQuery(ctx, req)
	case "get_card_contract":
		result, err = srv.getCardContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type renderOut struct {
	Session  models.Session   `json:"session"`
	Commands []map[string]any `json:"commands"`
}

func openCard(t *testing.T, srv *Server, args map[string]any) renderOut {
	t.Helper()
	r := callTool(t, srv, "open_card", args)
	if r.IsError {
		t.Fatalf("open_card: %s", resultText(r))
	}
	var out renderOut
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode open_card: %v", err)
	}
	return out
}

func TestListBundles(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_bundles", map[string]any{})
	var bundles []models.Bundle
	if err := json.Unmarshal([]byte(resultText(r)), &bundles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bundles) != 1 || bundles[0].Name != "greeting" || bundles[0].CardFile != "card.json" {
		t.Errorf("bundles = %+v", bundles)
	}
}

func TestOpenUpdateEvaluateClose(t *testing.T) {
	srv := testServer(t)
	out := openCard(t, srv, map[string]any{"bundle": "greeting", "data": `{"name":"Grace"}`})
	id := out.Session.ID
	if id == "" {
		t.Fatal("no session id")
	}
	// root, name text, two items
	if out.Session.NodeCount != 4 {
		t.Errorf("node count = %d, want 4", out.Session.NodeCount)
	}

	r := callTool(t, srv, "evaluate_expression", map[string]any{"session": id, "expression": "{{name}}"})
	if got := resultText(r); got != "Grace" {
		t.Errorf("name = %q, want Grace", got)
	}

	r = callTool(t, srv, "update_card_data", map[string]any{"session": id, "data": `{"items":["a","b","c"]}`})
	if r.IsError {
		t.Fatalf("update: %s", resultText(r))
	}
	var upd renderOut
	if err := json.Unmarshal([]byte(resultText(r)), &upd); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if upd.Session.NodeCount != 5 || upd.Session.Updates != 1 {
		t.Errorf("session after update = %+v", upd.Session)
	}

	r = callTool(t, srv, "evaluate_expression", map[string]any{"session": id, "expression": "$f({{name}} has {{items[2]}})"})
	if got := resultText(r); got != "Grace has c" {
		t.Errorf("spliced = %q", got)
	}

	r = callTool(t, srv, "close_card", map[string]any{"session": id})
	if got := resultText(r); got != "closed: "+id {
		t.Errorf("close = %q", got)
	}
	r = callTool(t, srv, "evaluate_expression", map[string]any{"session": id, "expression": "{{name}}"})
	if !r.IsError {
		t.Error("expected error for closed session")
	}
}

func TestToolErrors(t *testing.T) {
	srv := testServer(t)
	cases := []struct {
		tool string
		args map[string]any
	}{
		{"open_card", map[string]any{}},
		{"open_card", map[string]any{"bundle": "missing"}},
		{"open_card", map[string]any{"bundle": "greeting", "data": `[1,2]`}},
		{"update_card_data", map[string]any{"session": "nope", "data": `{"a":1}`}},
		{"update_card_data", map[string]any{"session": "nope"}},
		{"close_card", map[string]any{"session": "nope"}},
		{"match_media_query", map[string]any{"condition": " "}},
		{"get_card_contract", map[string]any{"bundle": "missing"}},
	}
	for _, tc := range cases {
		if r := callTool(t, srv, tc.tool, tc.args); !r.IsError {
			t.Errorf("%s(%v): expected error, got %q", tc.tool, tc.args, resultText(r))
		}
	}
}

func TestMatchMediaQuery(t *testing.T) {
	srv := testServer(t)
	cases := []struct {
		args map[string]any
		want bool
	}{
		{map[string]any{"condition": "(dark-mode: true)", "color_mode": "dark"}, true},
		{map[string]any{"condition": "(dark-mode: true)", "color_mode": "light"}, false},
		{map[string]any{"condition": "(min-width: 300)", "width": 400}, true},
		{map[string]any{"condition": "(min-width: 300)", "width": 200}, false},
	}
	for _, tc := range cases {
		r := callTool(t, srv, "match_media_query", tc.args)
		var res cardservice.MatchResult
		if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
			t.Fatalf("decode %v: %v", tc.args, err)
		}
		if res.Matches != tc.want {
			t.Errorf("match(%v) = %v, want %v", tc.args, res.Matches, tc.want)
		}
	}

	out := openCard(t, srv, map[string]any{"bundle": "greeting", "color_mode": "dark"})
	r := callTool(t, srv, "match_media_query", map[string]any{"condition": "(dark-mode: true)", "session": out.Session.ID})
	if !strings.Contains(resultText(r), `"matches": true`) {
		t.Errorf("session match = %s", resultText(r))
	}
}

func TestGetCardContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_card_contract", map[string]any{})
	if resultText(r) != CardFormatContract {
		t.Error("contract text mismatch")
	}

	r = callTool(t, srv, "get_card_contract", map[string]any{"bundle": "greeting"})
	var sum cardfile.Summary
	if err := json.Unmarshal([]byte(resultText(r)), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(sum.DataKeys) != 2 || len(sum.Actions) != 1 || len(sum.Media) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestResources(t *testing.T) {
	srv := testServer(t)
	ctx := context.Background()

	contents, err := srv.readFormatResource(ctx, mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatURI || tc.Text != CardFormatContract {
		t.Errorf("format resource = %+v", contents[0])
	}

	contents, err = srv.readSchemaResource(ctx, mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.MIMEType != "application/schema+json" {
		t.Fatalf("schema resource = %+v", contents[0])
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(tc.Text), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
}
