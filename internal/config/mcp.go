package config

import (
	"github.com/firebase/genkit/go/plugins/mcp"
)

// MCPServer represents configuration for a single MCP server connection.
type MCPServer struct {
	Name          string
	ClientOptions mcp.MCPClientOptions
}

// MCPServers builds the MCP server list from the loaded configuration.
//
// The remote server is reached over stdio through the mcp-remote bridge
// (`npx -y mcp-remote <url>`), which handles the HTTP transport and OAuth
// handshake on our behalf. An empty MCPURL yields no servers.
func (c *Config) MCPServers() []MCPServer {
	if c.MCPURL == "" {
		return nil
	}

	return []MCPServer{
		{
			Name: c.MCPName,
			ClientOptions: mcp.MCPClientOptions{
				Name: c.MCPName,
				Stdio: &mcp.StdioConfig{
					Command: c.MCPCommand,
					Args:    []string{"-y", "mcp-remote", c.MCPURL},
				},
			},
		},
	}
}
