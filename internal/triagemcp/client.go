package triagemcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client talks to a triage MCP server, usually one started as a subprocess.
type Client struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

func NewClient() *Client {
	return &Client{client: mcp.NewClient(&mcp.Implementation{
		Name:    "arogya-admin",
		Version: "1.0.0",
	}, nil)}
}

// Connect starts serverPath and speaks MCP over its stdin/stdout.
func (c *Client) Connect(ctx context.Context, serverPath string) error {
	log.Printf("🔗 Connecting to triage MCP server %s via stdio", serverPath)
	cmd := exec.CommandContext(ctx, serverPath)
	cmd.Env = os.Environ()
	return c.ConnectTransport(ctx, mcp.NewCommandTransport(cmd))
}

func (c *Client) ConnectTransport(ctx context.Context, t mcp.Transport) error {
	session, err := c.client.Connect(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to connect to triage MCP server: %w", err)
	}
	c.session = session
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// Tools lists the tool names the server advertises.
func (c *Client) Tools(ctx context.Context) ([]string, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP session not connected")
	}
	res, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// Call invokes a tool and decodes its JSON text result into out.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any, out any) error {
	if c.session == nil {
		return fmt.Errorf("MCP session not connected")
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return fmt.Errorf("%s: %s", tool, strings.TrimPrefix(sb.String(), "❌ "))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(sb.String()), out); err != nil {
		return fmt.Errorf("%s: decode result: %w", tool, err)
	}
	return nil
}
