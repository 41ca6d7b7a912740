package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/diagimmo/suiviclientpro/internal/ddtscan"
	"github.com/diagimmo/suiviclientpro/internal/server"
)

// Resource URIs.
const (
	ConfigURI      = "suiviclientpro://config"
	AnnotationsURI = "suiviclientpro://annotations"
	ScanHistoryURI = "suiviclientpro://scan-history"
)

// RegisterResources registers the read-only documents of the tool as MCP resources.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	configResource := mcp.NewResource(
		ConfigURI,
		"Configuration",
		mcp.WithResourceDescription("Effective configuration: database location, clients parent folder, sender address and cached client folders"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleConfig(request, sc)
	})

	annotationsResource := mcp.NewResource(
		AnnotationsURI,
		"Annotations",
		mcp.WithResourceDescription("Manual annotations per dossier: sanitation, case status, comment and DDT-sent flag"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(annotationsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAnnotations(request, sc)
	})

	historyResource := mcp.NewResource(
		ScanHistoryURI,
		"DDT Scan History",
		mcp.WithResourceDescription("Message identifiers and PDF filenames already seen by the DDT scan"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(historyResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleScanHistory(request, sc)
	})

	return nil
}

func handleConfig(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()
	paths := sc.Paths()
	return jsonContents(request, map[string]interface{}{
		"access_path":           cfg.AccessPath,
		"source_driver":         cfg.SourceDriver,
		"clients_parent_folder": cfg.ClientsParentFolder,
		"email_address":         cfg.EmailAddress,
		"all_client_folders":    cfg.AllClientFolders,
		"write_back":            cfg.WriteBack,
		"files": map[string]string{
			"config":      paths.Config,
			"annotations": paths.State,
			"scan":        paths.Checkpoint,
		},
	})
}

func handleAnnotations(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request, sc.Store().Snapshot())
}

func handleScanHistory(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cp, err := ddtscan.LoadCheckpoint(sc.Paths().Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}
	return jsonContents(request, cp)
}

func jsonContents(request mcp.ReadResourceRequest, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
