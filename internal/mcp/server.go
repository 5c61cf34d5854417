package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ccp-journal/ccp/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"entry_create": {
		def:     createToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"entry_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"entry_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"entry_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"entry_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"entry_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"entry_render": {
		def:     renderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRender },
	},
	"entry_paths": {
		def:     pathsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePaths },
	},
	"entry_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"entry_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns all valid tool names in sorted order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the entry tools registered. Tools
// listed in the configuration's DisabledTools are left out; unknown names
// are logged.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ccp",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	var disabledNames []string
	if env.Config != nil {
		disabledNames = env.Config.DisabledTools
	}
	if unknown := ValidateDisabledTools(disabledNames); len(unknown) > 0 {
		env.Logger.Warn(context.Background(), "unknown tools in disabled_tools", "tools", unknown)
	}

	disabled := make(map[string]bool, len(disabledNames))
	for _, name := range disabledNames {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Prepare initialises the store, so a client can create entries in a fresh
// root, and returns the server. Init is idempotent; an existing store keeps
// its counter.
func Prepare(ctx context.Context, env *ops.Env, version string) (*server.MCPServer, error) {
	if _, err := ops.Init(ctx, env); err != nil {
		return nil, err
	}
	return NewServer(env, version), nil
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s, err := Prepare(context.Background(), env, version)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}
