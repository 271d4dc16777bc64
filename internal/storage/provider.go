// Package storage defines the notes-corpus file-system abstraction.
package storage

import "github.com/jesrav/jesktop/internal/models"

// Provider is the interface for reading the notes corpus. Ingestion never
// mutates the corpus, so the surface is read-only.
type Provider interface {
	// ListNotes returns metadata for every .md file under dir (relative to
	// the notes root), in lexicographic path order.
	ListNotes(dir string) ([]models.NoteMetadata, error)
	// Files returns the relative slash path of every regular file under the
	// root, sorted lexicographically. Used to take the resolution snapshot.
	Files() ([]string, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Root returns the absolute path of the notes root.
	Root() string
}
