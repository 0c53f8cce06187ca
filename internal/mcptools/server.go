package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewProfileMCPServer creates an MCP server with the generate_profile,
// generate_section and list_prompts tools registered.
func NewProfileMCPServer(svc *ProfileService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "profilegen",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_profile",
		Description: "Generate a multi-section profile of a company or entity. Sections are generated in parallel unless sequential is set; sections that fail are left out and counted in sectionsGenerated vs sectionsRequested.",
	}, svc.GenerateProfile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_section",
		Description: "Generate one profile section with its own retry loop. Failures report the error kind and the retry attempts made.",
	}, svc.GenerateSection)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_prompts",
		Description: "List the section prompts available for generation, in canonical profile order.",
	}, svc.ListPrompts)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
