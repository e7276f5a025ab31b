package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/omni/internal/graph"
	"github.com/starford/omni/internal/index"
	"github.com/starford/omni/internal/service"
	"github.com/starford/omni/internal/testutil"
)

type noopBuilder struct{ full int }

func (b *noopBuilder) Full(context.Context) error {
	b.full++
	return nil
}

func (b *noopBuilder) BuildPath(_ context.Context, path string, _ bool) (graph.File, error) {
	return graph.File{}, graph.ErrUntrackedNode
}

func testServer(t *testing.T) (*Server, *noopBuilder) {
	t.Helper()

	_, store, cfg := testutil.TestProject(t)
	nodes, links := testutil.LinalgGraph()
	testutil.WriteGraph(t, store, nodes, links)

	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := index.Sync(db, store, logger)
	require.NoError(t, err)

	b := &noopBuilder{}
	srv := New(service.New(cfg, store, db, b, logger), "test")
	return srv, b
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "resolve_link":
		result, err = srv.resolveLink(ctx, req)
	case "get_node":
		result, err = srv.getNode(ctx, req)
	case "list_nodes":
		result, err = srv.listNodes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "list_ghosts":
		result, err = srv.listGhosts(ctx, req)
	case "suggest_links":
		result, err = srv.suggestLinks(ctx, req)
	case "build_file":
		result, err = srv.buildFile(ctx, req)
	case "get_link_syntax":
		result, err = srv.getLinkSyntax(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	require.NoError(t, err, name)
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

func TestResolveLink(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "resolve_link", map[string]interface{}{"link": "linalg.vector"})
	require.False(t, r.IsError, resultText(r))
	var res service.Resolved
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	require.NotNil(t, res.Node)
	assert.Equal(t, "v1", res.Node.ID)

	r = callTool(t, srv, "resolve_link", map[string]interface{}{"link": "tensor", "alias": "T"})
	res = service.Resolved{}
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	assert.True(t, res.Ghost)
	assert.Equal(t, "T", res.Display)
}

func TestResolveLink_Ambiguous(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "resolve_link", map[string]interface{}{"link": "vector"})
	assert.True(t, r.IsError, "ambiguous link")

	r = callTool(t, srv, "resolve_link", map[string]interface{}{})
	assert.True(t, r.IsError, "missing link argument")
}

func TestGetNode(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_node", map[string]interface{}{"id": "m1"})
	assert.Contains(t, resultText(r), `"title": "Matrix"`)

	r = callTool(t, srv, "get_node", map[string]interface{}{"id": "nope"})
	assert.True(t, r.IsError, "missing node")
}

func TestListNodes(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_nodes", map[string]interface{}{})
	assert.Len(t, strings.Split(resultText(r), "\n"), 3)

	r = callTool(t, srv, "list_nodes", map[string]interface{}{"tag": "rust"})
	assert.True(t, strings.HasPrefix(resultText(r), "r1\t"), resultText(r))
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "v1"})
	assert.Equal(t, "src/cs/rust/vector.typ", resultText(r))

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "r1"})
	assert.Equal(t, "no backlinks found", resultText(r))
}

func TestListGhosts(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_ghosts", map[string]interface{}{})
	assert.Equal(t, "tensor\tm1", resultText(r))
}

func TestSuggestLinks(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "suggest_links", map[string]interface{}{}))
	assert.Contains(t, text, "linalg.vector\tsrc/cs/linear-algebra/vector.typ")
	assert.Contains(t, text, "cs.rust.vector\tsrc/cs/rust/vector.typ")
}

func TestBuildFile(t *testing.T) {
	srv, b := testServer(t)

	r := callTool(t, srv, "build_file", map[string]interface{}{})
	require.False(t, r.IsError, resultText(r))
	assert.Equal(t, 1, b.full)

	r = callTool(t, srv, "build_file", map[string]interface{}{"path": "src/nope.typ"})
	assert.True(t, r.IsError, "untracked file")
}

func TestLinkSyntax(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "get_link_syntax", map[string]interface{}{}))
	assert.Contains(t, text, "ghost")

	contents, err := srv.readLinkSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, linkSyntaxURI, tc.URI)
	assert.Equal(t, LinkSyntax, tc.Text)
}
