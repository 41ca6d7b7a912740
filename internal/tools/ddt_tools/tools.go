package ddt_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/diagimmo/suiviclientpro/internal/google"
	"github.com/diagimmo/suiviclientpro/internal/logging"
	"github.com/diagimmo/suiviclientpro/internal/server"
	"github.com/diagimmo/suiviclientpro/internal/tools/common"
)

// progressEvery is the number of messages between two progress log lines.
const progressEvery = 25

// RegisterDDTTools registers the DDT scan tool with the MCP server.
func RegisterDDTTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	markDescription := "Set the DDT-sent flag of the dossiers named by a PDF of the scan history (default: false)"
	if readOnly {
		markDescription = "Not available in read-only mode"
	}

	scanTool := mcp.NewTool("ddt_scan",
		mcp.WithDescription("Scan the Gmail SENT folder for PDF attachments. Messages seen by a previous scan are skipped; the history is saved even when the scan is interrupted."),
		mcp.WithBoolean("mark",
			mcp.Description(markDescription),
		),
	)
	s.AddTool(scanTool, common.InstrumentedToolHandler("ddt_scan", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleScan(ctx, request, sc, readOnly)
	}))

	return nil
}

func handleScan(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, readOnly bool) (*mcp.CallToolResult, error) {
	mark := common.BoolArg(request.GetArguments(), "mark", false)
	if mark && readOnly {
		return mcp.NewToolResultError("mark is not available in read-only mode"), nil
	}

	logger := logging.WithTool(sc.Logger(), "ddt_scan")
	progress := func(done, total int) {
		if done%progressEvery == 0 || done == total {
			logger.Debug("scan progress", "done", done, "total", total)
		}
	}

	res, err := sc.ScanDDT(ctx, mark, progress)
	if err != nil {
		switch {
		case errors.Is(err, google.ErrNoCredentials), errors.Is(err, google.ErrNoToken):
			return mcp.NewToolResultError(fmt.Sprintf("Gmail access is not authorized: %v. Run `suiviclientpro auth url`, then `suiviclientpro auth code <code>`.", err)), nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return mcp.NewToolResultError(fmt.Sprintf("Scan interrupted after %d of %d messages; the history was saved", res.Report.Processed+res.Report.Skipped+res.Report.Failed, res.Report.Total)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}
	return common.JSONResult(res)
}
