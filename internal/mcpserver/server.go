// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Jesktop retrieval tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jesrav/jesktop/internal/retrieval"
)

// Server wraps the MCP server with Jesktop tools. All tools read from the
// loaded artifact; the MCP surface never mutates the corpus.
type Server struct {
	mcp *server.MCPServer
	svc *retrieval.Service
}

// New creates a new MCP server with all Jesktop tools registered.
func New(svc *retrieval.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Jesktop",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Semantic search over the indexed notes. Returns the most "+
			"similar chunks with their source note and linked notes/images as provenance."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query text")),
		mcp.WithNumber("top_k", mcp.Description("Number of chunks to return (default 5)")),
		mcp.WithNumber("hops", mcp.Description("Graph hops of provenance expansion (default 1)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of an indexed note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every indexed note: path, title, and tags."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_diagnostics",
		mcp.WithDescription("List broken and ambiguous reference targets with the notes "+
			"that mention them."),
	), s.getDiagnostics)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := intArg(req, "top_k", 5)
	hops := intArg(req, "hops", 1)

	results, err := s.svc.Search(ctx, query, topK, hops)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// intArg reads an optional numeric tool argument. JSON numbers arrive as
// float64.
func intArg(req mcp.CallToolRequest, key string, def int) int {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return def
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.NoteByPath(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listNotes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lines []string
	for _, n := range s.svc.Notes() {
		line := n.Path
		if n.Title != "" {
			line += "\t" + n.Title
		}
		if len(n.Tags) > 0 {
			line += "\t#" + strings.Join(n.Tags, " #")
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.NoteByPath(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	links, err := s.svc.Backlinks(note.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, link := range links {
		src, err := s.svc.Note(link.SourceNoteID)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", src.Path, link.Ref.Kind))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no backlinks"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getDiagnostics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diags := s.svc.Diagnostics()
	if len(diags) == 0 {
		return mcp.NewToolResultText("no unresolved references"), nil
	}
	out, _ := json.MarshalIndent(diags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
