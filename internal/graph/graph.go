// Package graph builds the bidirectional note/image relationship graph
// from resolved references.
//
// Workers accumulate per-note deltas; Build merges them in a single
// reduction step. Every forward edge inserts its inverse in the same step,
// so the inbound index is always the exact transpose of the outbound one.
// Broken and ambiguous references keep their forward edge and land in an
// unresolved bucket keyed by the raw target, which keeps diagnostics and
// inbound-link queries complete.
package graph

import (
	"sort"

	"github.com/jesrav/jesktop/internal/models"
)

// InboundLink is one inverse edge: who references the target, and how.
type InboundLink struct {
	SourceNoteID string                   `json:"source_note_id"`
	Ref          models.ResolvedReference `json:"ref"`
}

// Graph is the aggregate relationship structure. Outbound edges preserve
// parse order per note; repeated mentions of the same target are kept.
type Graph struct {
	Outbound   map[string][]models.ResolvedReference `json:"outbound"`
	Inbound    map[string][]InboundLink              `json:"inbound"`
	Unresolved map[string][]InboundLink              `json:"unresolved"` // keyed by raw target
}

// Delta is one worker's contribution: a note's references in parse order.
type Delta struct {
	NoteID string
	Refs   []models.ResolvedReference
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Outbound:   make(map[string][]models.ResolvedReference),
		Inbound:    make(map[string][]InboundLink),
		Unresolved: make(map[string][]InboundLink),
	}
}

// Build merges deltas into a graph. Deltas are applied in the order given;
// callers that want run-to-run determinism sort them (the ingestion
// pipeline orders deltas by note path).
func Build(deltas []Delta) *Graph {
	g := New()
	for _, d := range deltas {
		for _, ref := range d.Refs {
			g.Insert(d.NoteID, ref)
		}
	}
	return g
}

// Insert adds the forward edge and its inverse as one logical step. This
// is the invariant that prevents inbound links from being captured for only
// a subset of reference kinds.
func (g *Graph) Insert(noteID string, ref models.ResolvedReference) {
	g.Outbound[noteID] = append(g.Outbound[noteID], ref)

	link := InboundLink{SourceNoteID: noteID, Ref: ref}
	if ref.Status == models.StatusResolved {
		g.Inbound[ref.TargetID()] = append(g.Inbound[ref.TargetID()], link)
	} else {
		g.Unresolved[ref.RawTarget] = append(g.Unresolved[ref.RawTarget], link)
	}
}

// OutboundRefs returns the note's outbound references in parse order.
func (g *Graph) OutboundRefs(noteID string) []models.ResolvedReference {
	return g.Outbound[noteID]
}

// InboundLinks returns every inbound edge at the target.
func (g *Graph) InboundLinks(targetID string) []InboundLink {
	return g.Inbound[targetID]
}

// Backlinks returns the distinct source note IDs linking to the target,
// in first-mention order.
func (g *Graph) Backlinks(targetID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, link := range g.Inbound[targetID] {
		if _, dup := seen[link.SourceNoteID]; dup {
			continue
		}
		seen[link.SourceNoteID] = struct{}{}
		out = append(out, link.SourceNoteID)
	}
	return out
}

// Neighbors returns the distinct IDs reachable from id within the given
// number of hops, following both outbound and inbound edges, excluding id
// itself. Traversal deduplicates targets; output is BFS order with
// siblings sorted for stability.
func (g *Graph) Neighbors(id string, hops int) []string {
	if hops <= 0 {
		return nil
	}
	visited := map[string]struct{}{id: {}}
	frontier := []string{id}
	var out []string

	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		nextSet := make(map[string]struct{})
		for _, cur := range frontier {
			for _, ref := range g.Outbound[cur] {
				if ref.Status == models.StatusResolved {
					nextSet[ref.TargetID()] = struct{}{}
				}
			}
			for _, link := range g.Inbound[cur] {
				nextSet[link.SourceNoteID] = struct{}{}
			}
		}
		next := make([]string, 0, len(nextSet))
		for n := range nextSet {
			if _, dup := visited[n]; dup {
				continue
			}
			visited[n] = struct{}{}
			next = append(next, n)
		}
		sort.Strings(next)
		out = append(out, next...)
		frontier = next
	}
	return out
}

// UnresolvedTargets returns the raw targets with broken or ambiguous
// references, sorted.
func (g *Graph) UnresolvedTargets() []string {
	out := make([]string, 0, len(g.Unresolved))
	for t := range g.Unresolved {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// EdgeCount returns the total number of outbound edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, refs := range g.Outbound {
		n += len(refs)
	}
	return n
}
