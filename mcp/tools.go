package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolError is returned when the MCP server reports an error response.
type ToolError struct {
	Name    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp tool %s: %s", e.Name, e.Message)
}

// ListTools retrieves a single page of tools from the MCP server.
func (c *Client) ListTools(ctx context.Context, cursor string) (*sdkmcp.ListToolsResult, error) {
	if c.session == nil {
		return nil, ErrClientClosed
	}
	params := &sdkmcp.ListToolsParams{}
	if cursor != "" {
		params.Cursor = cursor
	}
	return c.session.ListTools(ctx, params)
}

// ListAllTools returns the full set of tools exposed by the MCP server.
func (c *Client) ListAllTools(ctx context.Context) ([]*sdkmcp.Tool, error) {
	if c.session == nil {
		return nil, ErrClientClosed
	}

	params := &sdkmcp.ListToolsParams{}
	var (
		cursor string
		tools  []*sdkmcp.Tool
	)

	for {
		if cursor != "" {
			params.Cursor = cursor
		}
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	return tools, nil
}

// CallTool invokes a remote MCP tool and returns the textual response.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", ErrClientClosed
	}

	params := &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	}

	result, err := c.session.CallTool(ctx, params)
	if err != nil {
		return "", err
	}

	message := normalizeContent(result.Content)
	if result.IsError {
		if message == "" {
			message = "tool returned error without message"
		}
		return "", &ToolError{Name: name, Message: message}
	}

	return message, nil
}

func normalizeContent(content []sdkmcp.Content) string {
	if len(content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := c.MarshalJSON(); err == nil {
				parts = append(parts, string(data))
			}
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}
