package vectordb

import (
	"time"

	"github.com/jesrav/jesktop/internal/graph"
	"github.com/jesrav/jesktop/internal/models"
)

// Meta describes how the artifact was produced.
type Meta struct {
	ModelInfo    string    `json:"model_info"`
	Dimension    int       `json:"dimension"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	CreatedAt    time.Time `json:"created_at"`
}

// Database is the in-memory form of the artifact: the ordered embedding
// records plus the note graph and attachments. It is assembled by the
// ingestion pipeline, persisted with Save, and loaded read-only by the
// retrieval engine.
type Database struct {
	Notes   map[string]models.Note
	Records []models.EmbeddingRecord // ordered by note path, then chunk seq
	Images  map[string]models.Image
	Graph   *graph.Graph
	Meta    Meta
}

// NewDatabase returns an empty database with an empty graph.
func NewDatabase() *Database {
	return &Database{
		Notes:  make(map[string]models.Note),
		Images: make(map[string]models.Image),
		Graph:  graph.New(),
	}
}

// Note returns a note by ID.
func (d *Database) Note(id string) (models.Note, bool) {
	n, ok := d.Notes[id]
	return n, ok
}

// NoteByPath returns a note by canonical path.
func (d *Database) NoteByPath(path string) (models.Note, bool) {
	for _, n := range d.Notes {
		if n.Path == path {
			return n, true
		}
	}
	return models.Note{}, false
}

// Image returns an image by ID.
func (d *Database) Image(id string) (models.Image, bool) {
	img, ok := d.Images[id]
	return img, ok
}
