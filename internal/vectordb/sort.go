package vectordb

import (
	"sort"

	"github.com/jesrav/jesktop/internal/models"
)

// sortedNotes returns the notes ordered by canonical path. Persisting in a
// deterministic order keeps re-ingested artifacts byte-comparable.
func sortedNotes(db *Database) []models.Note {
	out := make([]models.Note, 0, len(db.Notes))
	for _, n := range db.Notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func sortedImageIDs(db *Database) []string {
	out := make([]string, 0, len(db.Images))
	for id := range db.Images {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
