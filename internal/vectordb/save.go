package vectordb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Save writes the database to path atomically: the artifact is built in a
// temp file in the same directory and renamed into place only on success.
// A failure here is fatal to the ingestion run; a partially written index
// must never be served.
func Save(db *Database, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vectordb: mkdir artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".jesktop-index-*")
	if err != nil {
		return fmt.Errorf("vectordb: create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	os.Remove(tmpName) // sqlite wants to create the file itself

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := writeArtifact(db, tmpName); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("vectordb: rename artifact into place: %w", err)
	}
	success = true
	return nil
}

func writeArtifact(db *Database, path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("vectordb: open artifact: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("vectordb: apply schema: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("vectordb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := insertMeta(tx, db.Meta); err != nil {
		return err
	}
	if err := insertNotes(tx, db); err != nil {
		return err
	}
	if err := insertChunks(tx, db); err != nil {
		return err
	}
	if err := insertEdges(tx, db); err != nil {
		return err
	}
	if err := insertImages(tx, db); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vectordb: commit: %w", err)
	}
	return nil
}

func insertMeta(tx *sql.Tx, m Meta) error {
	pairs := map[string]string{
		"model_info":    m.ModelInfo,
		"dimension":     strconv.Itoa(m.Dimension),
		"chunk_size":    strconv.Itoa(m.ChunkSize),
		"chunk_overlap": strconv.Itoa(m.ChunkOverlap),
		"created_at":    m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	stmt, err := tx.Prepare(`INSERT INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("vectordb: prepare meta insert: %w", err)
	}
	defer stmt.Close()
	for _, key := range []string{"model_info", "dimension", "chunk_size", "chunk_overlap", "created_at"} {
		if _, err := stmt.Exec(key, pairs[key]); err != nil {
			return fmt.Errorf("vectordb: insert meta %s: %w", key, err)
		}
	}
	return nil
}

func insertNotes(tx *sql.Tx, db *Database) error {
	stmt, err := tx.Prepare(`
		INSERT INTO notes (id, path, title, content, frontmatter, tags, folder, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("vectordb: prepare note insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range sortedNotes(db) {
		fm, _ := json.Marshal(n.Frontmatter)
		tags, _ := json.Marshal(n.Tags)
		if _, err := stmt.Exec(n.ID, n.Path, n.Title, n.Content, string(fm), string(tags),
			n.FolderPath, n.CreatedAt, n.UpdatedAt); err != nil {
			return fmt.Errorf("vectordb: insert note %s: %w", n.Path, err)
		}
	}
	return nil
}

func insertChunks(tx *sql.Tx, db *Database) error {
	stmt, err := tx.Prepare(`
		INSERT INTO chunks (note_id, seq, start_pos, end_pos, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("vectordb: prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range db.Records {
		if _, err := stmt.Exec(rec.NoteID, rec.Seq, rec.Start, rec.End, rec.Text,
			encodeVector(rec.Vector)); err != nil {
			return fmt.Errorf("vectordb: insert chunk %s/%d: %w", rec.NoteID, rec.Seq, err)
		}
	}
	return nil
}

func insertEdges(tx *sql.Tx, db *Database) error {
	stmt, err := tx.Prepare(`
		INSERT INTO edges (source_note_id, ref_kind, raw_target, position, status,
			target_path, target_note_id, target_image_id, candidates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("vectordb: prepare edge insert: %w", err)
	}
	defer stmt.Close()

	// Notes in path order, references per note in parse order, so the ord
	// column reproduces graph insertion order on load.
	for _, n := range sortedNotes(db) {
		for _, ref := range db.Graph.OutboundRefs(n.ID) {
			cands, _ := json.Marshal(ref.Candidates)
			if _, err := stmt.Exec(n.ID, string(ref.Kind), ref.RawTarget, ref.Position,
				string(ref.Status), ref.TargetPath, ref.TargetNoteID, ref.TargetImageID,
				string(cands)); err != nil {
				return fmt.Errorf("vectordb: insert edge %s -> %q: %w", n.ID, ref.RawTarget, err)
			}
		}
	}
	return nil
}

func insertImages(tx *sql.Tx, db *Database) error {
	stmt, err := tx.Prepare(`
		INSERT INTO images (id, note_id, relative_path, absolute_path, mime_type, content)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("vectordb: prepare image insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range sortedImageIDs(db) {
		img := db.Images[id]
		if _, err := stmt.Exec(img.ID, img.NoteID, img.RelativePath, img.AbsolutePath,
			img.MimeType, img.Content); err != nil {
			return fmt.Errorf("vectordb: insert image %s: %w", img.RelativePath, err)
		}
	}
	return nil
}
