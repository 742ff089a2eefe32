package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gloria-ai/gloria-mcp/internal/catalog"
	"github.com/gloria-ai/gloria-mcp/internal/common"
	"github.com/gloria-ai/gloria-mcp/internal/dispatch"
)

// registerTools registers every catalog tool on the MCP server, wiring each
// to the dispatcher. The catalog is the single source of truth for tool
// schemas; this translation keeps the wire schema and the validator in step.
func registerTools(s *server.MCPServer, cat *catalog.Catalog, d *dispatch.Dispatcher, logger *common.Logger) {
	for _, def := range cat.List() {
		s.AddTool(toolFromDefinition(def), handleToolCall(def.Name, d, logger))
	}
}

// toolFromDefinition converts a catalog definition into an MCP tool schema.
func toolFromDefinition(def *catalog.ToolDefinition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, p := range def.Params {
		opts = append(opts, paramOption(p))
	}
	return mcp.NewTool(def.Name, opts...)
}

func paramOption(p catalog.Param) mcp.ToolOption {
	switch p.Type {
	case catalog.TypeNumber:
		propOpts := []mcp.PropertyOption{mcp.Description(p.Desc)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if p.HasRange {
			propOpts = append(propOpts, mcp.Min(p.Min), mcp.Max(p.Max))
		}
		return mcp.WithNumber(p.Name, propOpts...)
	case catalog.TypeBoolean:
		propOpts := []mcp.PropertyOption{mcp.Description(p.Desc)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		return mcp.WithBoolean(p.Name, propOpts...)
	default:
		propOpts := []mcp.PropertyOption{mcp.Description(p.Desc)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(p.Enum...))
		}
		if p.Pattern != nil {
			propOpts = append(propOpts, mcp.Pattern(p.Pattern.String()))
		}
		return mcp.WithString(p.Name, propOpts...)
	}
}
