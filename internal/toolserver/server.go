// Package toolserver exposes the tools of a plugin registry as an MCP server.
//
// The same server backs two transports: stdio, used when an external agent
// process launches "stepflow mcp-server", and an in-process client used by
// agents running inside stepflow itself.
package toolserver

import (
	"context"
	"fmt"
	"io"

	"github.com/giantswarm/stepflow/internal/plugin"
	"github.com/giantswarm/stepflow/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is announced during the MCP handshake.
const ServerName = "stepflow"

// Server serves registry tools over MCP.
type Server struct {
	registry *plugin.Registry
	mcp      *server.MCPServer
	log      *logging.Logger
}

// New creates a server exposing every tool currently in the registry.
func New(registry *plugin.Registry, version string, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		registry: registry,
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(false),
		),
		log: log.With("ToolServer"),
	}

	for _, tool := range registry.Tools() {
		s.mcp.AddTool(tool, s.handler(tool.Name))
	}
	s.log.Debug("Serving %d tools", len(registry.Tools()))
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// handler delegates a call to the registry. Failures are returned as error
// results so the calling agent sees them as tool output.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		s.log.Debug("Tool call %s", name)

		result, err := s.registry.Call(ctx, name, args)
		if err != nil {
			s.log.Error(err, "Tool %s failed", name)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result == nil {
			return mcp.NewToolResultText(""), nil
		}
		return result, nil
	}
}

// Serve speaks MCP over the given streams until ctx is cancelled or in is
// closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

// NewInProcessClient returns an initialized MCP client connected directly
// to the server. The caller must Close it.
func (s *Server) NewInProcessClient(ctx context.Context, clientName, clientVersion string) (*client.Client, error) {
	cli, err := client.NewInProcessClient(s.mcp)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-process MCP client: %w", err)
	}
	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to start in-process MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to initialize in-process MCP client: %w", err)
	}
	return cli, nil
}
