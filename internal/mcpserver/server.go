// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the converter to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vimwiki2neorg/internal/apperr"
	"github.com/starford/vimwiki2neorg/internal/manifest"
	"github.com/starford/vimwiki2neorg/internal/pipeline"
	"github.com/starford/vimwiki2neorg/internal/rewrite"
	"github.com/starford/vimwiki2neorg/internal/storage"
)

const dialectURI = "vimwiki2neorg://target-dialect"

// Server wraps the MCP server with the converter tools.
type Server struct {
	mcp      *server.MCPServer
	pipeline *pipeline.Pipeline
	src      storage.Provider
	manifest manifest.Store
}

// New creates a new MCP server with all tools registered. m may be nil, in
// which case get_backlinks reports that no manifest is configured.
func New(p *pipeline.Pipeline, src storage.Provider, m manifest.Store) *Server {
	s := &Server{pipeline: p, src: src, manifest: m}

	s.mcp = server.NewMCPServer(
		"vimwiki2neorg",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("rewrite_text",
		mcp.WithDescription("Convert VimWiki markup to Neorg markup. "+
			"Read the vimwiki2neorg://target-dialect resource for the exact rules."),
		mcp.WithString("content", mcp.Required(), mcp.Description("VimWiki document text")),
	), s.rewriteText)

	s.mcp.AddTool(mcp.NewTool("normalize_link",
		mcp.WithDescription("Return the Neorg file name a VimWiki link target maps to."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target, e.g. 'My Page' or 'notes.wiki'")),
	), s.normalizeLink)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List the .wiki files under the source root."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listSources)

	s.mcp.AddTool(mcp.NewTool("convert_file",
		mcp.WithDescription("Convert one .wiki file and write its .norg counterpart."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the source root (e.g. diary/today.wiki)")),
	), s.convertFile)

	s.mcp.AddTool(mcp.NewTool("convert_tree",
		mcp.WithDescription("Convert every .wiki file under the source root and return the run report."),
	), s.convertTree)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all source files that link to the specified target."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target, raw ('My Page') or normalized ('My_Page.norg')")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource(dialectURI, "VimWiki to Neorg Reference",
			mcp.WithResourceDescription("Rewrite rules, link normalization and known limitations."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDialectResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until ctx is cancelled or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen serves MCP over an arbitrary reader/writer pair.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) rewriteText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.pipeline.Rewriter().Rewrite(content)), nil
}

func (s *Server) normalizeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(rewrite.Normalize(target)), nil
}

func (s *Server) listSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	files, err := s.src.List(folder, pipeline.SourceExt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) convertFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !pipeline.IsSource(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a %s file: %s", pipeline.SourceExt, path)), nil
	}
	c, err := s.pipeline.ConvertFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("converted: %s -> %s", c.Source, c.Dest)), nil
}

func (s *Server) convertTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.pipeline.ConvertTree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.manifest == nil {
		return mcp.NewToolResultError(apperr.ErrNoManifest.Error()), nil
	}
	bl, err := s.manifest.Backlinks(target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) readDialectResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      dialectURI,
			MIMEType: "text/markdown",
			Text:     DialectReference,
		},
	}, nil
}
