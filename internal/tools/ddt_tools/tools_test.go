package ddt_tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/server"
)

type fakeMailbox map[string][]string

func (m fakeMailbox) ListMessageIDs(context.Context, string, []string, string) ([]string, string, error) {
	var ids []string
	for id := range m {
		ids = append(ids, id)
	}
	return ids, "", nil
}

func (m fakeMailbox) AttachmentFilenames(_ context.Context, id string) ([]string, error) {
	return m[id], nil
}

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Options{Paths: config.DefaultPaths(t.TempDir())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	return res.Content[0].(mcp.TextContent).Text
}

func TestRegisterDDTTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "dev", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterDDTTools(s, newServerContext(t), true))
	_, ok := s.ListTools()["ddt_scan"]
	assert.True(t, ok)
}

func TestHandleScan(t *testing.T) {
	sc := newServerContext(t)
	sc.SetMailbox(fakeMailbox{"m1": {"DDT_A12.pdf"}})

	res, err := handleScan(context.Background(), mcp.CallToolRequest{}, sc, false)
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), "DDT_A12.pdf")

	// Second run: m1 is in the checkpoint.
	res, err = handleScan(context.Background(), mcp.CallToolRequest{}, sc, false)
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"skipped": 1`)
}

func TestHandleScan_MarkReadOnly(t *testing.T) {
	sc := newServerContext(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: map[string]interface{}{"mark": true}}}

	res, err := handleScan(context.Background(), req, sc, true)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleScan_NotAuthorized(t *testing.T) {
	sc := newServerContext(t)

	res, err := handleScan(context.Background(), mcp.CallToolRequest{}, sc, false)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not authorized")
}

func TestHandleScan_Cancelled(t *testing.T) {
	sc := newServerContext(t)
	sc.SetMailbox(fakeMailbox{"m1": {"a.pdf"}, "m2": {"b.pdf"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := handleScan(ctx, mcp.CallToolRequest{}, sc, false)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "interrupted")
}
