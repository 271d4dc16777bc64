package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/jesrav/jesktop/internal/apperr"
	"github.com/jesrav/jesktop/internal/embedder"
	"github.com/jesrav/jesktop/internal/graph"
	"github.com/jesrav/jesktop/internal/models"
)

// Diagnostic reports one unresolved reference target and every note that
// still points at it.
type Diagnostic struct {
	RawTarget string                     `json:"raw_target"`
	Sources   []models.ResolvedReference `json:"sources"`
}

// Service embeds query text and runs it through the engine. It is the
// surface the HTTP and MCP layers talk to.
type Service struct {
	engine   *Engine
	embedder embedder.Embedder
}

// NewService wires an engine to an embedder.
func NewService(engine *Engine, emb embedder.Embedder) *Service {
	return &Service{engine: engine, embedder: emb}
}

// Engine exposes the underlying engine, for reload wiring.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Search embeds the query text and returns the top-k results with hops of
// graph expansion.
func (s *Service) Search(ctx context.Context, text string, k, hops int) ([]Result, error) {
	if text == "" {
		return nil, fmt.Errorf("retrieval: search: empty query: %w", apperr.ErrInvalidInput)
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	return s.engine.Query(vec, k, hops), nil
}

// Note looks up a note by ID in the current artifact.
func (s *Service) Note(id string) (models.Note, error) {
	n, ok := s.engine.DB().Note(id)
	if !ok {
		return models.Note{}, fmt.Errorf("retrieval: note %q: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

// NoteByPath looks up a note by vault-relative path.
func (s *Service) NoteByPath(path string) (models.Note, error) {
	n, ok := s.engine.DB().NoteByPath(path)
	if !ok {
		return models.Note{}, fmt.Errorf("retrieval: note at %q: %w", path, apperr.ErrNotFound)
	}
	return n, nil
}

// Image looks up an image by ID in the current artifact.
func (s *Service) Image(id string) (models.Image, error) {
	img, ok := s.engine.DB().Image(id)
	if !ok {
		return models.Image{}, fmt.Errorf("retrieval: image %q: %w", id, apperr.ErrNotFound)
	}
	return img, nil
}

// Backlinks returns every inbound edge at the given note, in insertion
// order.
func (s *Service) Backlinks(id string) ([]graph.InboundLink, error) {
	if _, ok := s.engine.DB().Note(id); !ok {
		return nil, fmt.Errorf("retrieval: note %q: %w", id, apperr.ErrNotFound)
	}
	return s.engine.DB().Graph.InboundLinks(id), nil
}

// Outbound returns the resolved references leaving the given note, in
// document order.
func (s *Service) Outbound(id string) ([]models.ResolvedReference, error) {
	if _, ok := s.engine.DB().Note(id); !ok {
		return nil, fmt.Errorf("retrieval: note %q: %w", id, apperr.ErrNotFound)
	}
	return s.engine.DB().Graph.Outbound[id], nil
}

// Notes returns every note in the artifact, sorted by path.
func (s *Service) Notes() []models.Note {
	db := s.engine.DB()
	out := make([]models.Note, 0, len(db.Notes))
	for _, n := range db.Notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Diagnostics reports every unresolved target. For each target it lists the
// referencing notes and, for ambiguous targets, the candidate paths.
func (s *Service) Diagnostics() []Diagnostic {
	db := s.engine.DB()
	var out []Diagnostic
	for _, target := range db.Graph.UnresolvedTargets() {
		d := Diagnostic{RawTarget: target}
		for _, link := range db.Graph.Unresolved[target] {
			d.Sources = append(d.Sources, link.Ref)
		}
		out = append(out, d)
	}
	return out
}
