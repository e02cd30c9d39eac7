package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	kitsURI        = "mediakit://kits"
	kitStatePrefix = "mediakit://kit/"
	kitStateSuffix = "/state"
)

func (s *Server) registerResources() {
	// ── mediakit://kits ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		kitsURI,
		"All Media Kits",
		mcp.WithMIMEType("application/json"),
	), s.handleKitsResource)

	// ── mediakit://kit/{kitId}/state ───────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			kitStatePrefix+"{kitId}"+kitStateSuffix,
			"Document of a Media Kit",
		),
		s.handleKitStateResource,
	)
}

func (s *Server) handleKitsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	kits, err := s.kits.List(ctx)
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(kits, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      kitsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleKitStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	kitID := kitIDFromURI(uri)
	if kitID == "" {
		return nil, fmt.Errorf("could not extract kitId from URI: %s", uri)
	}
	if _, err := s.kits.Open(ctx, kitID); err != nil {
		return nil, err
	}
	doc, err := s.kits.State(kitID)
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(doc, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// kitIDFromURI extracts the kit ID from "mediakit://kit/{id}/state".
func kitIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, kitStatePrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, kitStateSuffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
