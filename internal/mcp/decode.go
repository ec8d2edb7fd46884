package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gammasurf/gamma/internal/structure"
)

// decode unmarshals MCP request arguments into a typed struct.
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

// decodePlane parses an optional [h, k, l] argument.
func decodePlane(raw json.RawMessage) (*structure.HKL, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	key, err := structure.ParseHKL(raw)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
