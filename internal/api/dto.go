package api

import (
	"github.com/jesrav/jesktop/internal/graph"
	"github.com/jesrav/jesktop/internal/models"
	"github.com/jesrav/jesktop/internal/retrieval"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Hops  int    `json:"hops"`
}

// QueryResponse carries retrieval results.
type QueryResponse struct {
	Results []retrieval.Result `json:"results"`
}

// NoteSummary is the list representation of a note.
type NoteSummary struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// NoteListResponse is the body of GET /api/notes.
type NoteListResponse struct {
	Notes []NoteSummary `json:"notes"`
	Total int           `json:"total"`
}

// NoteDetail is the full representation of a note with its graph context.
type NoteDetail struct {
	models.Note
	Outbound  []models.ResolvedReference `json:"outbound"`
	Backlinks []graph.InboundLink        `json:"backlinks"`
}

// GraphNode is one vertex of the graph response.
type GraphNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"` // "note" or "image"
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// GraphEdge is one resolved edge of the graph response.
type GraphEdge struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Kind   models.RefKind `json:"kind"`
}

// GraphResponse is the body of GET /api/graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// DiagnosticsResponse is the body of GET /api/diagnostics.
type DiagnosticsResponse struct {
	Unresolved []retrieval.Diagnostic `json:"unresolved"`
	Total      int                    `json:"total"`
}
