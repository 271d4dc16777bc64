// Package models defines the domain types for Jesktop.
package models

import "time"

// RefKind classifies a parsed reference.
type RefKind string

// Reference kinds.
const (
	KindWikilink RefKind = "wikilink"
	KindImage    RefKind = "image"
	KindDiagram  RefKind = "diagram"
)

// ResolutionStatus is the outcome of resolving a reference target.
type ResolutionStatus string

// Resolution statuses.
const (
	StatusResolved  ResolutionStatus = "resolved"
	StatusAmbiguous ResolutionStatus = "ambiguous"
	StatusBroken    ResolutionStatus = "broken"
)

// Note represents a parsed Markdown file in the notes corpus.
type Note struct {
	ID          string                 `json:"id"`
	Path        string                 `json:"path"` // canonical, slash-separated, relative to notes root
	Title       string                 `json:"title,omitempty"`
	Content     string                 `json:"content"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	FolderPath  string                 `json:"folder_path,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Image represents a binary attachment (image or exported diagram PNG)
// referenced from a note. Identity is composite: the same physical file
// referenced from two different notes yields two distinct images.
type Image struct {
	ID           string `json:"id"`
	NoteID       string `json:"note_id"`
	RelativePath string `json:"relative_path"` // as written in the note, URL-decoded
	AbsolutePath string `json:"absolute_path"`
	MimeType     string `json:"mime_type"`
	Content      []byte `json:"content,omitempty"`
}

// Reference is a single parsed mention inside a note. RawTarget is kept
// verbatim; normalisation happens at resolution time.
type Reference struct {
	Kind         RefKind `json:"kind"`
	RawTarget    string  `json:"raw_target"`
	SourceNoteID string  `json:"source_note_id"`
	Position     int     `json:"position"` // byte offset in the note content
}

// ResolvedReference binds a Reference to a concrete target. Exactly one of
// TargetNoteID/TargetImageID is set when Status is resolved. Broken and
// ambiguous references are retained so diagnostics and inbound-link queries
// stay complete.
type ResolvedReference struct {
	Reference
	Status        ResolutionStatus `json:"status"`
	TargetPath    string           `json:"target_path,omitempty"` // canonical path when resolved
	TargetNoteID  string           `json:"target_note_id,omitempty"`
	TargetImageID string           `json:"target_image_id,omitempty"`
	Candidates    []string         `json:"candidates,omitempty"` // lexicographic, set when ambiguous
}

// TargetID returns whichever target identity is set.
func (r ResolvedReference) TargetID() string {
	if r.TargetNoteID != "" {
		return r.TargetNoteID
	}
	return r.TargetImageID
}

// Chunk is a span of note text with stable offsets into the original content.
// Text may carry an overlap prefix from the previous chunk; Start and End
// always delimit the core span.
type Chunk struct {
	NoteID string `json:"note_id"`
	Seq    int    `json:"seq"` // position within the note, 0-based
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// EmbeddingRecord pairs a chunk with its embedding vector.
type EmbeddingRecord struct {
	Chunk
	Vector []float32 `json:"vector"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
