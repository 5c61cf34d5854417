package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccp-journal/ccp/internal/errors"
)

// decode unmarshals MCP request arguments into a typed struct.
// Avoids unsafe type assertions and handles JSON decoding safely.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// decodeID decodes an IDRequest and requires a positive id.
func decodeID(req mcp.CallToolRequest) (IDRequest, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return input, errors.NewInvalidRequest(err.Error())
	}
	if input.ID <= 0 {
		return input, errors.NewInvalidRequest("id must be a positive integer")
	}
	return input, nil
}
