package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jesrav/jesktop/internal/embedder"
	"github.com/jesrav/jesktop/internal/identity"
	"github.com/jesrav/jesktop/internal/models"
	"github.com/jesrav/jesktop/internal/parser"
	"github.com/jesrav/jesktop/internal/retrieval"
	"github.com/jesrav/jesktop/internal/storage"
	"github.com/jesrav/jesktop/internal/vectordb"
)

const noteA = `---
title: Note A
tags: [alpha]
---

# Heading

Linking to [[note_b]] here.

![[diagram.excalidraw]]

![[photo.png]]

See [[missing note]] and [[dup]].

![external](https://example.com/pic.png)
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"note_a.md":    noteA,
		"note_b.md":    "# Note B\n\nPlain body with a handful of words for chunking.\n",
		"sub/dup.md":   "one of two\n",
		"other/dup.md": "two of two\n",
		"note_a.assets/diagram.excalidraw.png": "\x89PNG fake",
		"photo.png":                            "\x89PNG other",
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
	return root
}

func newPipeline(t *testing.T, root string) *Pipeline {
	t.Helper()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return newPipelineWith(store)
}

func newPipelineWith(store storage.Provider) *Pipeline {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, parser.MustDefault(), embedder.NewHash(32), Config{
		ChunkSize:    50,
		ChunkOverlap: 5,
		Concurrency:  2,
		BatchSize:    2,
	}, log)
}

func TestPipeline_Run(t *testing.T) {
	db, sum, err := newPipeline(t, writeCorpus(t)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Notes != 4 {
		t.Errorf("notes = %d, want 4", sum.Notes)
	}
	if len(sum.FailedNotes) != 0 {
		t.Errorf("failed notes = %v, want none", sum.FailedNotes)
	}
	if sum.Resolved != 3 || sum.Ambiguous != 1 || sum.Broken != 1 {
		t.Errorf("resolved/ambiguous/broken = %d/%d/%d, want 3/1/1",
			sum.Resolved, sum.Ambiguous, sum.Broken)
	}
	if sum.External != 1 {
		t.Errorf("external = %d, want 1", sum.External)
	}
	if sum.Chunks == 0 || sum.Chunks != len(db.Records) {
		t.Errorf("chunks = %d, records = %d", sum.Chunks, len(db.Records))
	}

	aID := identity.NoteID("note_a.md")
	bID := identity.NoteID("note_b.md")

	a, ok := db.Note(aID)
	if !ok {
		t.Fatal("note_a missing from database")
	}
	if a.Title != "Note A" || len(a.Tags) == 0 {
		t.Errorf("note_a = title %q, tags %v", a.Title, a.Tags)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Errorf("note_a timestamps = %v/%v, want file times", a.CreatedAt, a.UpdatedAt)
	}

	refs := db.Graph.OutboundRefs(aID)
	if len(refs) != 5 {
		t.Fatalf("note_a outbound = %d refs, want 5 (external skipped)", len(refs))
	}
	if refs[0].Kind != models.KindWikilink || refs[0].TargetNoteID != bID ||
		refs[0].Status != models.StatusResolved {
		t.Errorf("refs[0] = %+v, want resolved wikilink to note_b", refs[0])
	}
	if refs[1].Kind != models.KindDiagram || refs[1].Status != models.StatusResolved ||
		refs[1].TargetPath != "note_a.assets/diagram.excalidraw.png" {
		t.Errorf("refs[1] = %+v, want resolved diagram export", refs[1])
	}
	if refs[2].Kind != models.KindImage || refs[2].TargetPath != "photo.png" {
		t.Errorf("refs[2] = %+v, want resolved image photo.png", refs[2])
	}
	if refs[3].Status != models.StatusBroken {
		t.Errorf("refs[3] = %+v, want broken", refs[3])
	}
	if refs[4].Status != models.StatusAmbiguous ||
		!reflect.DeepEqual(refs[4].Candidates, []string{"other/dup.md", "sub/dup.md"}) {
		t.Errorf("refs[4] = %+v, want ambiguous with sorted candidates", refs[4])
	}

	if got := db.Graph.Backlinks(bID); !reflect.DeepEqual(got, []string{aID}) {
		t.Errorf("backlinks(note_b) = %v, want [%s]", got, aID)
	}
	if got := db.Graph.UnresolvedTargets(); !reflect.DeepEqual(got, []string{"dup", "missing note"}) {
		t.Errorf("unresolved targets = %v", got)
	}

	if sum.Images != 2 || len(db.Images) != 2 {
		t.Fatalf("images = %d (summary %d), want 2", len(db.Images), sum.Images)
	}
	diag, ok := db.Image(identity.ImageID(aID, "diagram.excalidraw"))
	if !ok {
		t.Fatal("diagram image missing")
	}
	if diag.MimeType != "image/png" || len(diag.Content) == 0 {
		t.Errorf("diagram image = mime %q, %d bytes", diag.MimeType, len(diag.Content))
	}
	if diag.RelativePath != "diagram.excalidraw" {
		t.Errorf("diagram relative path = %q", diag.RelativePath)
	}

	if db.Meta.ModelInfo != "hash-v1" || db.Meta.Dimension != 32 {
		t.Errorf("meta = %+v", db.Meta)
	}
}

func writeDiagramCorpus(t *testing.T, withExport bool) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"note_a.md":                         "Linking [[note_b]].\n\n![[diagrams/x.excalidraw]]\n",
		"note_b.md":                         "# Note B\n",
		"attachments/diagrams/x.excalidraw": `{"type":"excalidraw"}`,
	}
	if withExport {
		files["attachments/diagrams/x.excalidraw.png"] = "\x89PNG export"
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
	return root
}

func newAttachmentPipeline(t *testing.T, root string) *Pipeline {
	t.Helper()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, parser.MustDefault(), embedder.NewHash(32), Config{
		AttachmentFolders: []string{"attachments"},
		ChunkSize:         50,
		ChunkOverlap:      5,
		Concurrency:       2,
		BatchSize:         2,
	}, log)
}

func TestPipeline_DiagramSourceWithoutExport(t *testing.T) {
	db, sum, err := newAttachmentPipeline(t, writeDiagramCorpus(t, false)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	aID := identity.NoteID("note_a.md")
	bID := identity.NoteID("note_b.md")

	refs := db.Graph.OutboundRefs(aID)
	if len(refs) != 2 {
		t.Fatalf("note_a outbound = %d refs, want 2", len(refs))
	}
	if refs[0].Kind != models.KindWikilink || refs[0].TargetNoteID != bID ||
		refs[0].Status != models.StatusResolved {
		t.Errorf("refs[0] = %+v, want resolved wikilink to note_b", refs[0])
	}
	if refs[1].Kind != models.KindDiagram || refs[1].Status != models.StatusResolved ||
		refs[1].TargetPath != "attachments/diagrams/x.excalidraw" {
		t.Errorf("refs[1] = %+v, want resolved diagram source", refs[1])
	}
	if refs[1].TargetImageID == "" {
		t.Error("diagram edge lacks an image identity")
	}
	if sum.Resolved != 2 || sum.Broken != 0 {
		t.Errorf("resolved/broken = %d/%d, want 2/0", sum.Resolved, sum.Broken)
	}
	if got := db.Graph.Backlinks(bID); !reflect.DeepEqual(got, []string{aID}) {
		t.Errorf("backlinks(note_b) = %v, want [%s]", got, aID)
	}

	// The exported PNG is absent: the edge stands, the bytes are skipped.
	if sum.Images != 0 || len(db.Images) != 0 {
		t.Errorf("images = %d (summary %d), want none without an export", len(db.Images), sum.Images)
	}
}

func TestPipeline_DiagramSourceWithExport(t *testing.T) {
	db, sum, err := newAttachmentPipeline(t, writeDiagramCorpus(t, true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	aID := identity.NoteID("note_a.md")
	refs := db.Graph.OutboundRefs(aID)
	if len(refs) != 2 || refs[1].TargetPath != "attachments/diagrams/x.excalidraw" {
		t.Fatalf("refs = %+v, want diagram edge on the source file", refs)
	}

	if sum.Images != 1 {
		t.Fatalf("images = %d, want 1", sum.Images)
	}
	img, ok := db.Image(identity.ImageID(aID, "diagrams/x.excalidraw"))
	if !ok {
		t.Fatal("diagram image missing")
	}
	if img.MimeType != "image/png" || string(img.Content) != "\x89PNG export" {
		t.Errorf("diagram image = mime %q, content %q", img.MimeType, img.Content)
	}
	if img.RelativePath != "diagrams/x.excalidraw" {
		t.Errorf("diagram relative path = %q", img.RelativePath)
	}
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	root := writeCorpus(t)

	db1, _, err := newPipeline(t, root).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	db2, _, err := newPipeline(t, root).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(db1.Graph.Outbound, db2.Graph.Outbound) {
		t.Error("outbound edges differ between runs")
	}
	if !reflect.DeepEqual(db1.Records, db2.Records) {
		t.Error("embedding records differ between runs")
	}
	if !reflect.DeepEqual(keysOf(db1.Notes), keysOf(db2.Notes)) {
		t.Error("note identities differ between runs")
	}
	if !reflect.DeepEqual(keysOf(db1.Images), keysOf(db2.Images)) {
		t.Error("image identities differ between runs")
	}
}

func keysOf[V any](m map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func TestPipeline_ThenSaveLoadQuery(t *testing.T) {
	db, _, err := newPipeline(t, writeCorpus(t)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	artifact := filepath.Join(t.TempDir(), "jesktop.db")
	if err := vectordb.Save(db, artifact); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := vectordb.Load(artifact)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	svc := retrieval.NewService(retrieval.NewEngine(loaded), embedder.NewHash(32))
	results, err := svc.Search(context.Background(), "plain body with words", 3, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results from loaded artifact")
	}
	for _, r := range results {
		if r.Provenance.NotePath == "" {
			t.Errorf("result for chunk %s/%d lacks provenance", r.Chunk.NoteID, r.Chunk.Seq)
		}
	}
}

// unreliableStore fails reads for one path, mimicking a note that vanishes
// between listing and reading.
type unreliableStore struct {
	storage.Provider
	failPath string
}

func (u unreliableStore) Read(path string) ([]byte, error) {
	if path == u.failPath {
		return nil, errors.New("read interrupted")
	}
	return u.Provider.Read(path)
}

func TestPipeline_SkipsUnreadableNote(t *testing.T) {
	store, err := storage.NewFS(writeCorpus(t))
	if err != nil {
		t.Fatal(err)
	}
	db, sum, err := newPipelineWith(unreliableStore{Provider: store, failPath: "note_b.md"}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(sum.FailedNotes, []string{"note_b.md"}) {
		t.Errorf("failed notes = %v, want [note_b.md]", sum.FailedNotes)
	}
	if sum.Notes != 3 {
		t.Errorf("notes = %d, want 3", sum.Notes)
	}
	// The failed note keeps its inbound edge: note_a still links to it.
	if _, ok := db.Note(identity.NoteID("note_b.md")); ok {
		t.Error("unreadable note should not appear in the database")
	}
	if got := db.Graph.Backlinks(identity.NoteID("note_b.md")); len(got) != 1 {
		t.Errorf("backlinks to skipped note = %v, want one source", got)
	}
}

// failingEmbedder refuses every request, mimicking a provider outage that
// outlives the retry budget.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}

func (failingEmbedder) ModelInfo() string { return "failing" }

func TestPipeline_EmbedFailureIsolatesNotes(t *testing.T) {
	store, err := storage.NewFS(writeCorpus(t))
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(store, parser.MustDefault(), failingEmbedder{}, Config{
		ChunkSize: 50, ChunkOverlap: 5, Concurrency: 2, BatchSize: 2,
	}, log)

	db, sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not abort on embed failure: %v", err)
	}
	if len(db.Records) != 0 || sum.Chunks != 0 {
		t.Errorf("records = %d, want 0", len(db.Records))
	}
	if len(sum.FailedNotes) != 4 {
		t.Errorf("failed notes = %v, want all 4", sum.FailedNotes)
	}
	// The graph survives: linking does not depend on embeddings.
	if db.Graph.EdgeCount() == 0 {
		t.Error("graph edges lost with embed failure")
	}
}

func TestPipeline_EmptyCorpus(t *testing.T) {
	db, sum, err := newPipeline(t, t.TempDir()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Notes != 0 || len(db.Records) != 0 {
		t.Errorf("summary = %+v", sum)
	}
}
