// Package identity derives stable content-addressed IDs for notes and
// images. IDs are pure functions of their inputs, so re-ingesting an
// unchanged corpus always reproduces the same identities.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"sync"
)

// NoteID returns the ID for a note given its canonical path relative to the
// notes root. The path is cleaned so "a/./b.md" and "a/b.md" agree.
func NoteID(canonicalPath string) string {
	return sum("note\x00" + path.Clean(canonicalPath))
}

// ImageID returns the ID for an image referenced as relativePath from the
// note identified by noteID. The pair is the identity: the same file
// referenced from two notes yields two distinct IDs.
func ImageID(noteID, relativePath string) string {
	return sum("image\x00" + noteID + "\x00" + relativePath)
}

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// CompositeIndex caches (note_id, relative_path) -> image_id lookups for a
// single ingestion run. Concurrent lookups of the same key are safe: the
// derivation is deterministic, so a racing overwrite stores the same value.
type CompositeIndex struct {
	cache sync.Map // compositeKey -> string
}

type compositeKey struct {
	noteID       string
	relativePath string
}

// NewCompositeIndex creates an empty composite index.
func NewCompositeIndex() *CompositeIndex {
	return &CompositeIndex{}
}

// Lookup returns the image ID for the pair, computing and caching it on miss.
func (c *CompositeIndex) Lookup(noteID, relativePath string) string {
	key := compositeKey{noteID: noteID, relativePath: relativePath}
	if v, ok := c.cache.Load(key); ok {
		return v.(string)
	}
	id := ImageID(noteID, relativePath)
	actual, _ := c.cache.LoadOrStore(key, id)
	return actual.(string)
}
