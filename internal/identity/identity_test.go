package identity

import (
	"sync"
	"testing"
)

func TestNoteID_Deterministic(t *testing.T) {
	a := NoteID("topics/note.md")
	b := NoteID("topics/note.md")
	if a != b {
		t.Errorf("NoteID not stable: %q vs %q", a, b)
	}
	if a == NoteID("topics/other.md") {
		t.Error("distinct paths produced the same ID")
	}
}

func TestNoteID_CleansPath(t *testing.T) {
	if NoteID("topics/./note.md") != NoteID("topics/note.md") {
		t.Error("equivalent paths produced different IDs")
	}
}

func TestImageID_CompositeIdentity(t *testing.T) {
	n1 := NoteID("n1.md")
	n2 := NoteID("n2.md")
	// Same relative path from two different notes must give two IDs.
	if ImageID(n1, "img/a.png") == ImageID(n2, "img/a.png") {
		t.Error("composite identity collapsed across notes")
	}
	if ImageID(n1, "img/a.png") != ImageID(n1, "img/a.png") {
		t.Error("ImageID not stable")
	}
}

func TestImageID_DistinctFromNoteID(t *testing.T) {
	// A note path and an image pair that happen to concatenate identically
	// must not collide thanks to the domain prefix.
	if NoteID("x") == ImageID("", "x") {
		t.Error("note and image ID domains overlap")
	}
}

func TestCompositeIndex_CachesAndAgrees(t *testing.T) {
	idx := NewCompositeIndex()
	noteID := NoteID("a.md")

	got := idx.Lookup(noteID, "img/a.png")
	if got != ImageID(noteID, "img/a.png") {
		t.Errorf("Lookup = %q, want derived ID", got)
	}
	if again := idx.Lookup(noteID, "img/a.png"); again != got {
		t.Errorf("cached lookup differs: %q vs %q", again, got)
	}
}

func TestCompositeIndex_ConcurrentLookups(t *testing.T) {
	idx := NewCompositeIndex()
	noteID := NoteID("a.md")
	want := ImageID(noteID, "img/a.png")

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = idx.Lookup(noteID, "img/a.png")
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r != want {
			t.Fatalf("worker %d got %q, want %q", i, r, want)
		}
	}
}
