// Package ingest walks the notes corpus and produces the vector database
// artifact: parse, resolve, graph, chunk, embed, assemble.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jesrav/jesktop/internal/chunker"
	"github.com/jesrav/jesktop/internal/embedder"
	"github.com/jesrav/jesktop/internal/graph"
	"github.com/jesrav/jesktop/internal/identity"
	"github.com/jesrav/jesktop/internal/models"
	"github.com/jesrav/jesktop/internal/parser"
	"github.com/jesrav/jesktop/internal/resolver"
	"github.com/jesrav/jesktop/internal/storage"
	"github.com/jesrav/jesktop/internal/vectordb"
)

// Config tunes a pipeline run.
type Config struct {
	AttachmentFolders []string
	ChunkSize         int
	ChunkOverlap      int
	Concurrency       int // parallel note workers and embedding batches
	BatchSize         int // chunks per embedding request
}

// Summary is the run report.
type Summary struct {
	Notes       int      `json:"notes"`
	Chunks      int      `json:"chunks"`
	Images      int      `json:"images"`
	Resolved    int      `json:"resolved"`
	Ambiguous   int      `json:"ambiguous"`
	Broken      int      `json:"broken"`
	External    int      `json:"external"`
	FailedNotes []string `json:"failed_notes,omitempty"`
	Elapsed     string   `json:"elapsed"`
}

// Pipeline ingests a corpus into an in-memory database. It never writes to
// the corpus.
type Pipeline struct {
	store    storage.Provider
	parser   *parser.Parser
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	cfg      Config
	log      *slog.Logger
}

// New assembles a pipeline.
func New(store storage.Provider, p *parser.Parser, emb embedder.Embedder, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:    store,
		parser:   p,
		chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder: emb,
		cfg:      cfg,
		log:      log,
	}
}

// noteResult is one worker's output for a single note.
type noteResult struct {
	note     models.Note
	refs     []models.ResolvedReference
	images   []models.Image
	external int
	failed   bool
}

// Run executes the full pipeline and returns the assembled database. A note
// that fails to read, parse, or embed is isolated and reported in the
// summary; only cancellation and setup failures abort the run (the caller
// treats a failed artifact write as fatal).
func (p *Pipeline) Run(ctx context.Context) (*vectordb.Database, Summary, error) {
	started := time.Now()
	var sum Summary

	files, err := p.store.Files()
	if err != nil {
		return nil, sum, fmt.Errorf("ingest: list files: %w", err)
	}
	snap := resolver.NewSnapshot(files)
	res := resolver.New(snap, p.cfg.AttachmentFolders)

	notes, err := p.store.ListNotes("")
	if err != nil {
		return nil, sum, fmt.Errorf("ingest: list notes: %w", err)
	}

	// Pass 1: parse and resolve every note in parallel. Results land in a
	// slice indexed by the sorted note order, so the reduction below is
	// deterministic regardless of worker scheduling.
	results := make([]noteResult, len(notes))
	index := identity.NewCompositeIndex()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, meta := range notes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.processNote(meta, res, index)
			if err != nil {
				p.log.Warn("note skipped", "path", meta.Path, "error", err)
				results[i] = noteResult{note: models.Note{Path: meta.Path}, failed: true}
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sum, fmt.Errorf("ingest: parse pass: %w", err)
	}

	// Reduction: merge per-note results into the database in note order.
	db := vectordb.NewDatabase()
	var deltas []graph.Delta
	var chunks []models.Chunk
	for _, r := range results {
		if r.failed {
			sum.FailedNotes = append(sum.FailedNotes, r.note.Path)
			continue
		}
		sum.Notes++
		sum.External += r.external
		db.Notes[r.note.ID] = r.note
		deltas = append(deltas, graph.Delta{NoteID: r.note.ID, Refs: r.refs})
		for _, ref := range r.refs {
			switch ref.Status {
			case models.StatusResolved:
				sum.Resolved++
			case models.StatusAmbiguous:
				sum.Ambiguous++
			case models.StatusBroken:
				sum.Broken++
			}
		}
		for _, img := range r.images {
			if _, dup := db.Images[img.ID]; !dup {
				db.Images[img.ID] = img
			}
		}
		chunks = append(chunks, p.chunker.Chunk(r.note.ID, r.note.Content)...)
	}
	db.Graph = graph.Build(deltas)
	sum.Images = len(db.Images)

	records, embedFailed, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, sum, err
	}
	db.Records = records
	sum.Chunks = len(records)

	var failedPaths []string
	for noteID := range embedFailed {
		if n, ok := db.Notes[noteID]; ok {
			failedPaths = append(failedPaths, n.Path)
		}
	}
	sort.Strings(failedPaths)
	sum.FailedNotes = append(sum.FailedNotes, failedPaths...)

	dim := 0
	if len(records) > 0 {
		dim = len(records[0].Vector)
	}
	db.Meta = vectordb.Meta{
		ModelInfo:    p.embedder.ModelInfo(),
		Dimension:    dim,
		ChunkSize:    p.cfg.ChunkSize,
		ChunkOverlap: p.cfg.ChunkOverlap,
		CreatedAt:    time.Now().UTC(),
	}

	sum.Elapsed = time.Since(started).Round(time.Millisecond).String()
	p.log.Info("ingestion complete",
		"notes", sum.Notes, "chunks", sum.Chunks, "images", sum.Images,
		"resolved", sum.Resolved, "ambiguous", sum.Ambiguous, "broken", sum.Broken,
		"failed", len(sum.FailedNotes), "elapsed", sum.Elapsed)
	return db, sum, nil
}

func (p *Pipeline) processNote(meta models.NoteMetadata, res *resolver.Resolver, index *identity.CompositeIndex) (noteResult, error) {
	notePath := meta.Path
	data, err := p.store.Read(notePath)
	if err != nil {
		return noteResult{}, fmt.Errorf("read: %w", err)
	}
	doc, err := parser.ParseDocument(data)
	if err != nil {
		return noteResult{}, fmt.Errorf("parse: %w", err)
	}

	noteID := identity.NoteID(notePath)
	note := models.Note{
		ID:          noteID,
		Path:        notePath,
		Title:       doc.Title,
		Content:     doc.Body,
		Frontmatter: doc.Frontmatter,
		Tags:        doc.Tags,
		FolderPath:  folderOf(notePath),
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}

	r := noteResult{note: note}
	for _, ref := range p.parser.References(doc.Body) {
		ref.SourceNoteID = noteID
		if resolver.IsExternal(ref.RawTarget) {
			r.external++
			continue
		}
		rref := p.resolveRef(ref, notePath, res, index)
		r.refs = append(r.refs, rref)

		if rref.Status == models.StatusResolved && rref.TargetImageID != "" {
			img, err := p.loadImage(noteID, notePath, rref, res, index)
			if err != nil {
				p.log.Warn("image unreadable", "note", notePath, "path", rref.TargetPath, "error", err)
				continue
			}
			r.images = append(r.images, img)
		}
	}
	return r, nil
}

func (p *Pipeline) resolveRef(ref models.Reference, notePath string, res *resolver.Resolver, index *identity.CompositeIndex) models.ResolvedReference {
	rref := models.ResolvedReference{Reference: ref}
	target, err := res.Resolve(ref, notePath)
	switch {
	case err == nil:
		rref.Status = models.StatusResolved
		rref.TargetPath = target
		if ref.Kind == models.KindWikilink {
			rref.TargetNoteID = identity.NoteID(target)
		} else {
			rref.TargetImageID = index.Lookup(ref.SourceNoteID, decode(ref.RawTarget))
		}
	default:
		if amb, ok := resolver.AsAmbiguous(err); ok {
			rref.Status = models.StatusAmbiguous
			rref.Candidates = amb.Candidates
		} else {
			rref.Status = models.StatusBroken
		}
	}
	return rref
}

func (p *Pipeline) loadImage(noteID, notePath string, rref models.ResolvedReference, res *resolver.Resolver, index *identity.CompositeIndex) (models.Image, error) {
	assetPath := rref.TargetPath
	if rref.Kind == models.KindDiagram && path.Ext(assetPath) != ".png" {
		// The edge targets the diagram source; the bytes come from its
		// exported PNG, which the corpus may not carry.
		export, err := res.Resolve(models.Reference{Kind: models.KindImage, RawTarget: rref.RawTarget + ".png"}, notePath)
		if err != nil {
			return models.Image{}, fmt.Errorf("diagram export: %w", err)
		}
		assetPath = export
	}
	content, err := p.store.Read(assetPath)
	if err != nil {
		return models.Image{}, err
	}
	rel := decode(rref.RawTarget)
	return models.Image{
		ID:           index.Lookup(noteID, rel),
		NoteID:       noteID,
		RelativePath: rel,
		AbsolutePath: filepath.Join(p.store.Root(), filepath.FromSlash(assetPath)),
		MimeType:     mime.TypeByExtension(path.Ext(assetPath)),
		Content:      content,
	}, nil
}

// embedChunks embeds all chunks in batches, running up to Concurrency
// batches at once. Record order follows chunk order, not completion order.
// A batch that still fails after retries does not abort the run: every note
// with a chunk in that batch is dropped from the records and reported, so a
// transient provider outage degrades the artifact instead of losing it.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddingRecord, map[string]struct{}, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			vecs, err := p.embedder.EmbedBatch(gctx, texts)
			if err != nil || len(vecs) != end-start {
				if err == nil {
					err = fmt.Errorf("got %d vectors for %d chunks", len(vecs), end-start)
				}
				p.log.Warn("embed batch failed", "start", start, "error", err)
				return gctx.Err() // abort only on cancellation
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("ingest: embed pass: %w", err)
	}

	// Notes touched by a failed batch lose all their records.
	failed := make(map[string]struct{})
	for i, c := range chunks {
		if vectors[i] == nil {
			failed[c.NoteID] = struct{}{}
		}
	}
	records := make([]models.EmbeddingRecord, 0, len(chunks))
	for i, c := range chunks {
		if _, drop := failed[c.NoteID]; drop {
			continue
		}
		records = append(records, models.EmbeddingRecord{Chunk: c, Vector: vectors[i]})
	}
	return records, failed, nil
}

func decode(target string) string {
	if dec, err := url.PathUnescape(target); err == nil {
		return dec
	}
	return target
}

func folderOf(notePath string) string {
	dir := path.Dir(notePath)
	if dir == "." {
		return ""
	}
	return dir
}
