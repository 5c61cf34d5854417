package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// CreateRequest represents the arguments for entry_create.
type CreateRequest struct {
	Title     string      `json:"title,omitempty"`
	Timestamp *entry.Date `json:"timestamp,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Text      string      `json:"text,omitempty"`
	Size      float64     `json:"size,omitempty"`
	Duration  float64     `json:"duration,omitempty"`
}

// IDRequest represents the arguments of tools addressing one entry.
type IDRequest struct {
	ID entry.ID `json:"id"`
}

// ListRequest represents the arguments for entry_list.
type ListRequest struct {
	Tag    *string     `json:"tag,omitempty"`
	From   *entry.Date `json:"from,omitempty"`
	To     *entry.Date `json:"to,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// UpdateRequest represents the arguments for entry_update.
type UpdateRequest struct {
	ID        entry.ID    `json:"id"`
	Title     *string     `json:"title,omitempty"`
	Timestamp *entry.Date `json:"timestamp,omitempty"`
	Tags      *[]string   `json:"tags,omitempty"`
	Text      *string     `json:"text,omitempty"`
	Size      *float64    `json:"size,omitempty"`
	Duration  *float64    `json:"duration,omitempty"`
}

// SearchRequest represents the arguments for entry_search.
type SearchRequest struct {
	Query  string      `json:"query"`
	From   *entry.Date `json:"from,omitempty"`
	To     *entry.Date `json:"to,omitempty"`
	Sort   string      `json:"sort,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// PathsRequest represents the arguments for entry_paths.
type PathsRequest struct {
	ID     entry.ID `json:"id"`
	Ensure bool     `json:"ensure,omitempty"`
}

// ExportRequest represents the arguments for entry_export.
type ExportRequest struct {
	Path string  `json:"path,omitempty"`
	Tag  *string `json:"tag,omitempty"`
}

// ImportRequest represents the arguments for entry_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// Handler implementations

// HandleCreate handles the entry_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(ctx, h.env, ops.CreateInput{
		Title:    input.Title,
		Date:     input.Timestamp,
		Tags:     input.Tags,
		Text:     input.Text,
		Size:     input.Size,
		Duration: input.Duration,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the entry_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Get(ctx, h.env, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the entry_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.env, ops.ListInput{
		Tag:    input.Tag,
		From:   input.From,
		To:     input.To,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the entry_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.env, ops.UpdateInput{
		ID:       input.ID,
		Title:    input.Title,
		Date:     input.Timestamp,
		Tags:     input.Tags,
		Text:     input.Text,
		Size:     input.Size,
		Duration: input.Duration,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the entry_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var byDay bool
	switch input.Sort {
	case "", "relevance":
	case "day":
		byDay = true
	default:
		return errorResult(errors.NewInvalidRequest("sort must be relevance or day")), nil
	}

	result, err := ops.Search(ctx, h.env, ops.SearchInput{
		Query:     input.Query,
		From:      input.From,
		To:        input.To,
		SortByDay: byDay,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the entry_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(ctx, h.env)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRender handles the entry_render tool call.
func (h *Handlers) HandleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Render(ctx, h.env, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePaths handles the entry_paths tool call.
func (h *Handlers) HandlePaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID <= 0 {
		return errorResult(errors.NewInvalidRequest("id must be a positive integer")), nil
	}

	if !input.Ensure {
		return successResult(ops.ArtifactPaths(h.env, input.ID))
	}
	result, err := ops.EnsureArtifactPaths(h.env, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the entry_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.env, ops.ExportInput{
		Path: input.Path,
		Tag:  input.Tag,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the entry_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.env, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details and causes are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var ccpErr *errors.CcpError
	if stderrors.As(err, &ccpErr) {
		message := ccpErr.Message
		if err != error(ccpErr) {
			// Keep the context added by wrappers.
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    ccpErr.Code,
			"message": message,
			"status":  ccpErr.Status,
		}
		if ccpErr.Code != errors.ErrInternal && ccpErr.Details != nil {
			errorObj["details"] = ccpErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
