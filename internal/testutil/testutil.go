// Package testutil provides shared test helpers for setting up note
// corpora and artifact locations.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jesrav/jesktop/internal/storage"
)

// TestCorpus creates a temporary notes directory holding a small linked
// corpus: two notes, a wikilink between them, and an image embed with its
// file in the note's assets folder.
func TestCorpus(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"note_a.md": "# Note A\n\nLinks to [[note_b]].\n\n![[pic.png]]\n",
		"note_b.md": "# Note B\n\nPlain body text for retrieval.\n",
		"note_a.assets/pic.png": "\x89PNG stub",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// ArtifactPath returns a path for a vector database artifact in a
// temporary directory that is cleaned up with the test.
func ArtifactPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "jesktop.db")
}
