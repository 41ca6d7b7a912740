package dossier_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/projection"
	"github.com/diagimmo/suiviclientpro/internal/server"
	"github.com/diagimmo/suiviclientpro/internal/source"
	"github.com/diagimmo/suiviclientpro/internal/tools/batch"
	"github.com/diagimmo/suiviclientpro/internal/tools/common"
)

// RegisterDossierTools registers all dossier-related tools with the MCP server
func RegisterDossierTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("dossier_list",
		mcp.WithDescription("List dossiers merged with their annotations. Filters combine; empty filters keep every dossier."),
		mcp.WithString("search",
			mcp.Description("Case-insensitive substring of the dossier identifier"),
		),
		mcp.WithString("type",
			mcp.Description(fmt.Sprintf("Mission type, or %q for every type", projection.AllTypes)),
		),
		mcp.WithString("payment",
			mcp.Description(fmt.Sprintf("Payment status (%q or %q), or %q", projection.PaymentOptions[0], projection.PaymentOptions[1], projection.AllPayments)),
		),
		mcp.WithString("sortBy",
			mcp.Description("Column to sort by: id, type, date, paiement, assainissement, statut or commentaire"),
		),
		mcp.WithBoolean("descending",
			mcp.Description("Sort in descending order (default: false)"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("dossier_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleList(ctx, request, sc)
	}))

	optionsTool := mcp.NewTool("dossier_filter_options",
		mcp.WithDescription("List the mission types and payment statuses accepted by dossier_list"),
	)
	s.AddTool(optionsTool, common.InstrumentedToolHandler("dossier_filter_options", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleFilterOptions(ctx, request, sc)
	}))

	getTool := mcp.NewTool("dossier_get",
		mcp.WithDescription("Show the client card of a dossier: schedule, amounts, client and property details, annotations"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Dossier identifier (Num_dossier)"),
		),
	)
	s.AddTool(getTool, common.InstrumentedToolHandler("dossier_get", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGet(ctx, request, sc)
	}))

	clientFoldersTool := mcp.NewTool("dossier_client_folders",
		mcp.WithDescription("List the dossiers whose client folder was found on disk by the last reconciliation"),
	)
	s.AddTool(clientFoldersTool, common.InstrumentedToolHandler("dossier_client_folders", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleClientFolders(ctx, request, sc)
	}))

	if readOnly {
		return nil
	}

	annotateTool := mcp.NewTool("dossier_annotate",
		mcp.WithDescription("Set an annotation column of one or more dossiers. The annotation document is rewritten after every edit."),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Dossier identifier (string) or array of identifiers"),
		),
		mcp.WithString("column",
			mcp.Required(),
			mcp.Description("Annotation column: assainissement, statut or commentaire"),
		),
		mcp.WithString("value",
			mcp.Description("New value; empty clears the column"),
		),
	)
	s.AddTool(annotateTool, common.InstrumentedToolHandler("dossier_annotate", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAnnotate(ctx, request, sc)
	}))

	ddtTool := mcp.NewTool("dossier_set_ddt_sent",
		mcp.WithDescription("Set or clear the DDT-sent flag of one or more dossiers"),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Dossier identifier (string) or array of identifiers"),
		),
		mcp.WithBoolean("sent",
			mcp.Description("Flag value (default: true)"),
		),
	)
	s.AddTool(ddtTool, common.InstrumentedToolHandler("dossier_set_ddt_sent", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSetDDTSent(ctx, request, sc)
	}))

	reconcileTool := mcp.NewTool("dossier_reconcile_folders",
		mcp.WithDescription("Map the client folders found under <parent>/dossiers_*/ to the dossier identifiers and save the result in the configuration"),
		mcp.WithString("parent",
			mcp.Description("Parent folder of the dossiers_* directories (default: the configured clients_parent_folder)"),
		),
	)
	s.AddTool(reconcileTool, common.InstrumentedToolHandler("dossier_reconcile_folders", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleReconcile(ctx, request, sc)
	}))

	return nil
}

// sourceError renders a record source failure with a hint for the operator.
func sourceError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		return mcp.NewToolResultError(fmt.Sprintf("The dossier database is not configured: %v. Run `suiviclientpro configure --access-path <file>`.", err))
	case errors.Is(err, source.ErrSourceUnavailable):
		return mcp.NewToolResultError(fmt.Sprintf("The dossier database cannot be opened: %v", err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to read dossiers: %v", err))
}

func handleList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	filter := projection.Filter{
		Search:  common.StringArg(args, "search"),
		Type:    common.StringArg(args, "type"),
		Payment: common.StringArg(args, "payment"),
	}
	var sort projection.Sort
	if by := common.StringArg(args, "sortBy"); by != "" {
		col, err := projection.ParseColumn(by)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sort = projection.Sort{Column: col, Enabled: true, Descending: common.BoolArg(args, "descending", false)}
	}

	listing, err := sc.ListDossiers(ctx, filter, sort)
	if err != nil {
		return sourceError(err), nil
	}

	return common.JSONResult(struct {
		Total   int              `json:"total"`
		Shown   int              `json:"shown"`
		Skipped int              `json:"skipped_rows,omitempty"`
		Rows    []projection.Row `json:"rows"`
	}{listing.Total, len(listing.Rows), len(listing.Skipped), listing.Rows})
}

func handleFilterOptions(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	types, payments, err := sc.FilterOptions(ctx)
	if err != nil {
		return sourceError(err), nil
	}
	return common.JSONResult(map[string][]string{"types": types, "payments": payments})
}

func handleGet(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id := common.StringArg(request.GetArguments(), "id")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	d, err := sc.GetDossier(ctx, id)
	if errors.Is(err, source.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Dossier %s not found", id)), nil
	}
	if err != nil {
		return sourceError(err), nil
	}
	return common.JSONResult(d)
}

func handleClientFolders(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	rows, err := sc.ClientFolders(ctx)
	if err != nil {
		return sourceError(err), nil
	}

	type row struct {
		projection.ClientFolderRow
		DDT string `json:"ddt"`
	}
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		out = append(out, row{ClientFolderRow: r, DDT: r.Mark()})
	}
	return common.JSONResult(out)
}

func handleAnnotate(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseIDs(args["ids"], "ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	col, err := projection.ParseColumn(common.StringArg(args, "column"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := col.Field(); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("column %s is read-only", col)), nil
	}
	value := common.StringArg(args, "value")

	results := batch.Process(ctx, ids, func(ctx context.Context, id string) (string, error) {
		res, err := sc.Annotate(ctx, id, col, value)
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("%s set (write-back: %s)", col.Title(), res.WriteBack)
		if res.WriteBackError != "" {
			msg += ": " + res.WriteBackError
		}
		return msg, nil
	})
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleSetDDTSent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseIDs(args["ids"], "ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sent := common.BoolArg(args, "sent", true)

	results := batch.Process(ctx, ids, func(ctx context.Context, id string) (string, error) {
		if _, err := sc.SetDDTSent(ctx, id, sent); err != nil {
			return "", err
		}
		return fmt.Sprintf("ddt_envoye = %t", sent), nil
	})
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleReconcile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	res, err := sc.ReconcileFolders(ctx, common.StringArg(request.GetArguments(), "parent"))
	if err != nil {
		return sourceError(err), nil
	}
	return common.JSONResult(res)
}
