// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the omni graph to LLMs via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/omni/internal/apperr"
	"github.com/starford/omni/internal/service"
)

const linkSyntaxURI = "omni://link-syntax"

// Server wraps the MCP server with omni tools.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates a new MCP server with all omni tools registered.
func New(svc *service.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"omni",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a dotted link (e.g. linalg.vector) to a node. "+
			"Unknown names are reported as ghosts; ambiguous names are errors."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Link text, dotted logical path")),
		mcp.WithString("alias", mcp.Description("Optional display alias")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Get a node with its outgoing links and backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List all nodes, or the nodes carrying a tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listNodes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all nodes that link to the specified node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the node to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_ghosts",
		mcp.WithDescription("List links that point at no node yet, with the nodes using them."),
	), s.listGhosts)

	s.mcp.AddTool(mcp.NewTool("suggest_links",
		mcp.WithDescription("Return the shortest unambiguous link for every node."),
	), s.suggestLinks)

	s.mcp.AddTool(mcp.NewTool("build_file",
		mcp.WithDescription("Rebuild one tracked file, or the whole project when path is empty, "+
			"and reload the graph."),
		mcp.WithString("path", mcp.Description("Root-relative path of a tracked file")),
	), s.buildFile)

	s.mcp.AddTool(mcp.NewTool("get_link_syntax",
		mcp.WithDescription("Returns how links are written and resolved. "+
			"Call this before writing links into content files."),
	), s.getLinkSyntax)

	// Resource: link syntax.
	s.mcp.AddResource(
		mcp.NewResource(linkSyntaxURI, "Link Syntax",
			mcp.WithResourceDescription("How omni links are written and resolved."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkSyntaxResource,
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

func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if hint := apperr.Hint(err); hint != "" {
		msg += "\nhint: " + hint
	}
	return mcp.NewToolResultError(msg)
}

// optional returns the string argument key, or "" when it is absent.
func optional(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	alias := optional(req, "alias")
	res, err := s.svc.Resolve(ctx, link, alias)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.svc.Node(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(node)
}

func (s *Server) listNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.svc.Nodes(ctx, optional(req, "tag"))
	if err != nil {
		return toolError(err), nil
	}
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, n.ID+"\t"+n.Path+"\t"+n.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, n.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) listGhosts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ghosts, err := s.svc.Ghosts(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(ghosts) == 0 {
		return mcp.NewToolResultText("no ghost links"), nil
	}
	lines := make([]string, 0, len(ghosts))
	for _, g := range ghosts {
		lines = append(lines, g.Link+"\t"+strings.Join(g.Sources, ","))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) suggestLinks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	suggestions, err := s.svc.Suggestions(ctx)
	if err != nil {
		return toolError(err), nil
	}
	lines := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		lines = append(lines, sg.Link.String()+"\t"+sg.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) buildFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Build(ctx, optional(req, "path"))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) getLinkSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkSyntax), nil
}

func (s *Server) readLinkSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      linkSyntaxURI,
			MIMEType: "text/markdown",
			Text:     LinkSyntax,
		},
	}, nil
}
