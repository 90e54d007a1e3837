// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes card rendering tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cardbind/internal/cardfile"
	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/jsonvalue"
)

const (
	formatURI = "cardbind://card-format"
	schemaURI = "cardbind://card-schema"
)

// Server wraps the MCP server with card tools.
type Server struct {
	mcp *server.MCPServer
	svc *cardservice.Service
}

// New creates a new MCP server with all card tools registered.
func New(svc *cardservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Cardbind",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_bundles",
		mcp.WithDescription("List the indexed card bundles."),
	), s.listBundles)

	s.mcp.AddTool(mcp.NewTool("open_card",
		mcp.WithDescription("Open a render session for a bundle and return the initial DOM commands. "+
			"Read the card format first via the cardbind://card-format resource."),
		mcp.WithString("bundle", mcp.Required(), mcp.Description("Bundle name")),
		mcp.WithString("locale", mcp.Description("BCP 47 locale, e.g. en-US")),
		mcp.WithString("color_mode", mcp.Description("light or dark")),
		mcp.WithNumber("width", mcp.Description("Surface width in px")),
		mcp.WithNumber("height", mcp.Description("Surface height in px")),
		mcp.WithString("data", mcp.Description("JSON object merged into the card data")),
	), s.openCard)

	s.mcp.AddTool(mcp.NewTool("update_card_data",
		mcp.WithDescription("Patch the data of an open card and return the resulting DOM commands."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id returned by open_card")),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON object of top-level data keys to replace")),
	), s.updateCardData)

	s.mcp.AddTool(mcp.NewTool("close_card",
		mcp.WithDescription("Close a render session."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
	), s.closeCard)

	s.mcp.AddTool(mcp.NewTool("evaluate_expression",
		mcp.WithDescription("Resolve a binding such as {{a.b}}, {{x ? 'y' : 'n'}} or $f(...) against a session's data."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Binding expression")),
	), s.evaluateExpression)

	s.mcp.AddTool(mcp.NewTool("match_media_query",
		mcp.WithDescription("Evaluate a media condition, e.g. (dark-mode: true) and (min-width: 300)."),
		mcp.WithString("condition", mcp.Required(), mcp.Description("Media condition")),
		mcp.WithString("session", mcp.Description("Evaluate against this session's surface")),
		mcp.WithNumber("width", mcp.Description("Surface width in px")),
		mcp.WithNumber("height", mcp.Description("Surface height in px")),
		mcp.WithString("color_mode", mcp.Description("light or dark")),
	), s.matchMediaQuery)

	s.mcp.AddTool(mcp.NewTool("get_card_contract",
		mcp.WithDescription("Without a bundle, returns the card format contract. "+
			"With a bundle, summarizes the components, data keys, actions and media conditions its card uses."),
		mcp.WithString("bundle", mcp.Description("Optional bundle name")),
	), s.getCardContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Card Format Contract",
			mcp.WithResourceDescription("How card files are structured and how bindings are resolved."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Card JSON Schema",
			mcp.WithResourceDescription("JSON Schema of a card file."),
			mcp.WithMIMEType("application/schema+json"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// dataArg parses an optional JSON object argument.
func dataArg(req mcp.CallToolRequest, key string) (*jsonvalue.Value, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	v, err := jsonvalue.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("%s: must be a JSON object", key)
	}
	return v, nil
}

func (s *Server) listBundles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bundles, err := s.svc.ListBundles(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bundles) == 0 {
		return mcp.NewToolResultText("no bundles indexed"), nil
	}
	return jsonResult(bundles)
}

func (s *Server) openCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bundle, err := req.RequireString("bundle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := dataArg(req, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.svc.Open(ctx, cardservice.OpenRequest{
		Bundle:    bundle,
		Locale:    req.GetString("locale", ""),
		ColorMode: req.GetString("color_mode", ""),
		Width:     req.GetInt("width", 0),
		Height:    req.GetInt("height", 0),
		Data:      data,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(r)
}

func (s *Server) updateCardData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := req.RequireString("data"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch, err := dataArg(req, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if patch == nil {
		return mcp.NewToolResultError("data: must not be empty"), nil
	}
	r, err := s.svc.UpdateData(ctx, id, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(r)
}

func (s *Server) closeCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Close(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("closed: %s", id)), nil
}

func (s *Server) evaluateExpression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Evaluate(ctx, id, expr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) matchMediaQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cond, err := req.RequireString("condition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.MatchMedia(ctx, cardservice.MatchRequest{
		Condition: cond,
		Session:   req.GetString("session", ""),
		Width:     req.GetInt("width", 0),
		Height:    req.GetInt("height", 0),
		ColorMode: req.GetString("color_mode", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getCardContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bundle := req.GetString("bundle", "")
	if bundle == "" {
		return mcp.NewToolResultText(CardFormatContract), nil
	}
	sum, err := s.svc.Contract(ctx, bundle)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     CardFormatContract,
		},
	}, nil
}

func (s *Server) readSchemaResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	schema, err := cardfile.JSONSchema()
	if err != nil {
		return nil, fmt.Errorf("mcpserver: card schema: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "application/schema+json",
			Text:     string(schema),
		},
	}, nil
}
