package resolver

import (
	"testing"

	"github.com/jesrav/jesktop/internal/models"
)

func snap(files ...string) *Snapshot {
	return NewSnapshot(files)
}

func wikilink(target string) models.Reference {
	return models.Reference{Kind: models.KindWikilink, RawTarget: target}
}

func image(target string) models.Reference {
	return models.Reference{Kind: models.KindImage, RawTarget: target}
}

func diagram(target string) models.Reference {
	return models.Reference{Kind: models.KindDiagram, RawTarget: target}
}

func TestResolve_WikilinkExactPath(t *testing.T) {
	r := New(snap("topics/note_b.md"), nil)
	got, err := r.Resolve(wikilink("topics/note_b.md"), "note_a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "topics/note_b.md" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_WikilinkByStem(t *testing.T) {
	r := New(snap("topics/note_b.md", "other.md"), nil)
	got, err := r.Resolve(wikilink("note_b"), "note_a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "topics/note_b.md" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_WikilinkBroken(t *testing.T) {
	r := New(snap("note_b.md"), nil)
	_, err := r.Resolve(wikilink("missing_note"), "note_c.md")
	be, ok := AsBroken(err)
	if !ok {
		t.Fatalf("err = %v, want BrokenError", err)
	}
	if be.Target != "missing_note" || len(be.Tried) == 0 {
		t.Errorf("broken error incomplete: %+v", be)
	}
}

func TestResolve_WikilinkAmbiguous(t *testing.T) {
	r := New(snap("a/dup.md", "b/dup.md"), nil)
	_, err := r.Resolve(wikilink("dup"), "note.md")
	ae, ok := AsAmbiguous(err)
	if !ok {
		t.Fatalf("err = %v, want AmbiguousError", err)
	}
	if len(ae.Candidates) != 2 || ae.Candidates[0] != "a/dup.md" || ae.Candidates[1] != "b/dup.md" {
		t.Errorf("candidates = %v, want lexicographic pair", ae.Candidates)
	}
}

func TestResolve_WikilinkExactBeatsStemMatch(t *testing.T) {
	// note.md exists by name; note.png shares the stem. The filename tier
	// must win without reporting ambiguity.
	r := New(snap("note.md", "note.png"), nil)
	got, err := r.Resolve(wikilink("note"), "src.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "note.md" {
		t.Errorf("got %q, want note.md", got)
	}
}

func TestResolve_WikilinkSubpathDisambiguates(t *testing.T) {
	r := New(snap("a/dup.md", "b/dup.md"), nil)
	got, err := r.Resolve(wikilink("a/dup"), "note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "a/dup.md" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ImageRelativeToNote(t *testing.T) {
	r := New(snap("topics/note.md", "topics/img/pic.png"), nil)
	got, err := r.Resolve(image("img/pic.png"), "topics/note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "topics/img/pic.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ImageInNoteAssetsFolder(t *testing.T) {
	r := New(snap("My Note.md", "My Note.assets/shot.png"), nil)
	got, err := r.Resolve(image("shot.png"), "My Note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "My Note.assets/shot.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ImageInAttachmentFolder(t *testing.T) {
	r := New(snap("note.md", "Z - Attachements/pic.png"), []string{"Z - Attachements"})
	got, err := r.Resolve(image("pic.png"), "note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Z - Attachements/pic.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ImageURLEncoded(t *testing.T) {
	r := New(snap("note.md", "attachments/my pic.png"), []string{"attachments"})
	got, err := r.Resolve(image("my%20pic.png"), "note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "attachments/my pic.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ImageExactRootPathWinsOutright(t *testing.T) {
	// The exact notes-root-relative path short-circuits even when the same
	// name also exists in an attachment folder.
	r := New(snap("note.md", "img/a.png", "attachments/a.png"), []string{"attachments"})
	got, err := r.Resolve(image("img/a.png"), "note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "img/a.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ImageAmbiguousListsAllCandidates(t *testing.T) {
	r := New(
		snap("sub/note.md", "sub/a.png", "attachments/a.png"),
		[]string{"attachments"},
	)
	_, err := r.Resolve(image("a.png"), "sub/note.md")
	ae, ok := AsAmbiguous(err)
	if !ok {
		t.Fatalf("err = %v, want AmbiguousError", err)
	}
	want := []string{"attachments/a.png", "sub/a.png"}
	if len(ae.Candidates) != 2 || ae.Candidates[0] != want[0] || ae.Candidates[1] != want[1] {
		t.Errorf("candidates = %v, want %v", ae.Candidates, want)
	}
	if len(ae.Tried) == 0 {
		t.Error("tried locations missing from ambiguity report")
	}
}

func TestResolve_ImageBroken(t *testing.T) {
	r := New(snap("note.md"), []string{"attachments"})
	_, err := r.Resolve(image("ghost.png"), "note.md")
	if _, ok := AsBroken(err); !ok {
		t.Fatalf("err = %v, want BrokenError", err)
	}
}

func TestResolve_DiagramPrefersSourceFile(t *testing.T) {
	r := New(
		snap("note_a.md", "diagrams/x.excalidraw", "diagrams/x.excalidraw.png"),
		nil,
	)
	got, err := r.Resolve(diagram("diagrams/x.excalidraw"), "note_a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "diagrams/x.excalidraw" {
		t.Errorf("got %q, want the diagram source", got)
	}
}

func TestResolve_DiagramSourceInAttachmentRoot(t *testing.T) {
	// Only the source file exists; no exported PNG anywhere.
	r := New(
		snap("attachments/diagrams/x.excalidraw", "note_a.md", "note_b.md"),
		[]string{"attachments"},
	)
	got, err := r.Resolve(diagram("diagrams/x.excalidraw"), "note_a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "attachments/diagrams/x.excalidraw" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_DiagramFallsBackToExportedPNG(t *testing.T) {
	r := New(
		snap("note_a.md", "attachments/x.excalidraw.png"),
		[]string{"attachments"},
	)
	got, err := r.Resolve(diagram("x.excalidraw"), "note_a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "attachments/x.excalidraw.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_DiagramBrokenReportsBothForms(t *testing.T) {
	r := New(snap("note_a.md"), []string{"attachments"})
	_, err := r.Resolve(diagram("ghost.excalidraw"), "note_a.md")
	be, ok := AsBroken(err)
	if !ok {
		t.Fatalf("err = %v, want BrokenError", err)
	}
	var source, export bool
	for _, loc := range be.Tried {
		switch loc {
		case "exact:ghost.excalidraw":
			source = true
		case "exact:ghost.excalidraw.png":
			export = true
		}
	}
	if !source || !export {
		t.Errorf("tried = %v, want both source and export locations", be.Tried)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	files := []string{"sub/note.md", "sub/a.png", "attachments/a.png"}
	for i := 0; i < 5; i++ {
		r := New(NewSnapshot(files), []string{"attachments"})
		_, err := r.Resolve(image("a.png"), "sub/note.md")
		ae, ok := AsAmbiguous(err)
		if !ok {
			t.Fatalf("run %d: err = %v", i, err)
		}
		if ae.Candidates[0] != "attachments/a.png" {
			t.Fatalf("run %d: candidate order changed: %v", i, ae.Candidates)
		}
	}
}

func TestIsExternal(t *testing.T) {
	if !IsExternal("https://example.com/pic.png") || !IsExternal("http://x") {
		t.Error("URLs should be external")
	}
	if IsExternal("img/pic.png") {
		t.Error("relative path flagged external")
	}
}

func TestResolve_EscapingRelativeTargetNotResolved(t *testing.T) {
	r := New(snap("sub/note.md", "secret.png"), nil)
	// ../../secret.png from sub/ would climb out of the root.
	if _, err := r.Resolve(image("../../secret.png"), "sub/note.md"); err == nil {
		t.Error("expected escaping target to fail resolution")
	}
}
