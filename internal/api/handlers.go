package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/jesrav/jesktop/internal/apperr"
	"github.com/jesrav/jesktop/internal/models"
	"github.com/jesrav/jesktop/internal/retrieval"
)

const defaultTopK = 5

// Handler holds API route handlers.
type Handler struct {
	svc *retrieval.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *retrieval.Service) *Handler {
	return &Handler{svc: svc}
}

// Query handles POST /api/query: embed the query text and return the top-k
// chunks with graph-expanded provenance.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}
	if req.Hops < 0 {
		req.Hops = 0
	}

	results, err := h.svc.Search(r.Context(), req.Query, req.TopK, req.Hops)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid query"))
			return
		}
		slog.Error("query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{Results: results})
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	notes := h.svc.Notes()
	out := make([]NoteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteSummary{ID: n.ID, Path: n.Path, Title: n.Title, Tags: n.Tags})
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: out, Total: len(out)})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.Note(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	outbound, _ := h.svc.Outbound(id)
	backlinks, _ := h.svc.Backlinks(id)
	writeJSON(w, http.StatusOK, NoteDetail{Note: note, Outbound: outbound, Backlinks: backlinks})
}

// GetBacklinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) GetBacklinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := h.svc.Backlinks(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": links, "total": len(links)})
}

// GetImage handles GET /api/images/{id}: the stored bytes with their
// original content type.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	img, err := h.svc.Image(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	mt := img.MimeType
	if mt == "" {
		mt = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mt)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Content)
}

// Graph handles GET /api/graph: every note and image as a node, every
// resolved reference as an edge.
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	db := h.svc.Engine().DB()

	resp := GraphResponse{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, n := range h.svc.Notes() {
		resp.Nodes = append(resp.Nodes, GraphNode{ID: n.ID, Type: "note", Path: n.Path, Title: n.Title})
	}
	imgIDs := make([]string, 0, len(db.Images))
	for id := range db.Images {
		imgIDs = append(imgIDs, id)
	}
	sort.Strings(imgIDs)
	for _, id := range imgIDs {
		img := db.Images[id]
		resp.Nodes = append(resp.Nodes, GraphNode{ID: id, Type: "image", Path: img.RelativePath})
	}

	for _, n := range h.svc.Notes() {
		for _, ref := range db.Graph.OutboundRefs(n.ID) {
			if ref.Status != models.StatusResolved {
				continue
			}
			resp.Edges = append(resp.Edges, GraphEdge{Source: n.ID, Target: ref.TargetID(), Kind: ref.Kind})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Diagnostics handles GET /api/diagnostics: broken and ambiguous reference
// targets with their referencing notes.
func (h *Handler) Diagnostics(w http.ResponseWriter, _ *http.Request) {
	diags := h.svc.Diagnostics()
	if diags == nil {
		diags = []retrieval.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, DiagnosticsResponse{Unresolved: diags, Total: len(diags)})
}
