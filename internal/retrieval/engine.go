// Package retrieval answers similarity queries over a loaded vector
// database artifact, optionally expanding hits with graph context. It
// never mutates the artifact.
package retrieval

import (
	"math"
	"sort"
	"sync"

	"github.com/jesrav/jesktop/internal/models"
	"github.com/jesrav/jesktop/internal/vectordb"
)

// Related is one graph-expanded provenance entry attached to a result.
type Related struct {
	ID    string `json:"id"`
	Type  string `json:"type"` // "note" or "image"
	Path  string `json:"path,omitempty"`
	Title string `json:"title,omitempty"`
}

// Provenance ties a result chunk back to its source note and the notes and
// images reachable from it.
type Provenance struct {
	NoteID    string    `json:"note_id"`
	NotePath  string    `json:"note_path"`
	NoteTitle string    `json:"note_title,omitempty"`
	Related   []Related `json:"related,omitempty"`
}

// Result is one retrieval hit.
type Result struct {
	Chunk      models.Chunk `json:"chunk"`
	Score      float32      `json:"score"`
	Provenance Provenance   `json:"provenance"`
}

// Engine serves queries over the current artifact. Reload swaps the
// artifact in one step, so in-flight queries always see a consistent view.
type Engine struct {
	mu sync.RWMutex
	db *vectordb.Database
}

// NewEngine creates an engine over the loaded database.
func NewEngine(db *vectordb.Database) *Engine {
	return &Engine{db: db}
}

// Reload replaces the served artifact.
func (e *Engine) Reload(db *vectordb.Database) {
	e.mu.Lock()
	e.db = db
	e.mu.Unlock()
}

// DB returns the currently served database.
func (e *Engine) DB() *vectordb.Database {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db
}

// Query returns the top-k chunks by cosine similarity to the query vector,
// ties broken by stored chunk order, each expanded with up to hops graph
// edges of provenance context.
func (e *Engine) Query(vector []float32, k, hops int) []Result {
	db := e.DB()
	if k <= 0 || len(db.Records) == 0 {
		return nil
	}

	scored := make([]Result, 0, len(db.Records))
	for _, rec := range db.Records {
		scored = append(scored, Result{
			Chunk: rec.Chunk,
			Score: CosineSimilarity(vector, rec.Vector),
		})
	}
	// Stable sort preserves the artifact's chunk order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}

	for i := range scored {
		scored[i].Provenance = e.provenance(db, scored[i].Chunk.NoteID, hops)
	}
	return scored
}

func (e *Engine) provenance(db *vectordb.Database, noteID string, hops int) Provenance {
	p := Provenance{NoteID: noteID}
	if n, ok := db.Note(noteID); ok {
		p.NotePath = n.Path
		p.NoteTitle = n.Title
	}
	for _, id := range db.Graph.Neighbors(noteID, hops) {
		if n, ok := db.Note(id); ok {
			p.Related = append(p.Related, Related{ID: id, Type: "note", Path: n.Path, Title: n.Title})
			continue
		}
		if img, ok := db.Image(id); ok {
			p.Related = append(p.Related, Related{ID: id, Type: "image", Path: img.RelativePath})
		}
	}
	return p
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero vectors score zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
