package vectordb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jesrav/jesktop/internal/models"
)

// Load reads the artifact at path into memory. The returned Database is
// never mutated by consumers.
func Load(path string) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("vectordb: artifact not found at %s: %w", path, err)
	}
	conn, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("vectordb: open artifact: %w", err)
	}
	defer conn.Close()

	db := NewDatabase()
	if err := loadMeta(conn, db); err != nil {
		return nil, err
	}
	if err := loadNotes(conn, db); err != nil {
		return nil, err
	}
	if err := loadChunks(conn, db); err != nil {
		return nil, err
	}
	if err := loadEdges(conn, db); err != nil {
		return nil, err
	}
	if err := loadImages(conn, db); err != nil {
		return nil, err
	}
	return db, nil
}

func loadMeta(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return fmt.Errorf("vectordb: read meta: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		switch key {
		case "model_info":
			db.Meta.ModelInfo = value
		case "dimension":
			db.Meta.Dimension, _ = strconv.Atoi(value)
		case "chunk_size":
			db.Meta.ChunkSize, _ = strconv.Atoi(value)
		case "chunk_overlap":
			db.Meta.ChunkOverlap, _ = strconv.Atoi(value)
		case "created_at":
			db.Meta.CreatedAt, _ = time.Parse(time.RFC3339, value)
		}
	}
	return rows.Err()
}

func loadNotes(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(`
		SELECT id, path, title, content, frontmatter, tags, folder, created_at, updated_at
		FROM notes ORDER BY path
	`)
	if err != nil {
		return fmt.Errorf("vectordb: read notes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n models.Note
		var fm, tags string
		if err := rows.Scan(&n.ID, &n.Path, &n.Title, &n.Content, &fm, &tags,
			&n.FolderPath, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return err
		}
		_ = json.Unmarshal([]byte(fm), &n.Frontmatter)
		_ = json.Unmarshal([]byte(tags), &n.Tags)
		db.Notes[n.ID] = n
	}
	return rows.Err()
}

func loadChunks(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(`
		SELECT note_id, seq, start_pos, end_pos, text, embedding
		FROM chunks ORDER BY ord
	`)
	if err != nil {
		return fmt.Errorf("vectordb: read chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec models.EmbeddingRecord
		var blob []byte
		if err := rows.Scan(&rec.NoteID, &rec.Seq, &rec.Start, &rec.End, &rec.Text, &blob); err != nil {
			return err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return err
		}
		rec.Vector = vec
		db.Records = append(db.Records, rec)
	}
	return rows.Err()
}

func loadEdges(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(`
		SELECT source_note_id, ref_kind, raw_target, position, status,
		       target_path, target_note_id, target_image_id, candidates
		FROM edges ORDER BY ord
	`)
	if err != nil {
		return fmt.Errorf("vectordb: read edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source, kind, status, cands string
		var ref models.ResolvedReference
		if err := rows.Scan(&source, &kind, &ref.RawTarget, &ref.Position, &status,
			&ref.TargetPath, &ref.TargetNoteID, &ref.TargetImageID, &cands); err != nil {
			return err
		}
		ref.Kind = models.RefKind(kind)
		ref.Status = models.ResolutionStatus(status)
		ref.SourceNoteID = source
		_ = json.Unmarshal([]byte(cands), &ref.Candidates)
		// Replaying in ord order reproduces the builder's atomic
		// forward/inverse insertion.
		db.Graph.Insert(source, ref)
	}
	return rows.Err()
}

func loadImages(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(`
		SELECT id, note_id, relative_path, absolute_path, mime_type, content
		FROM images
	`)
	if err != nil {
		return fmt.Errorf("vectordb: read images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.NoteID, &img.RelativePath, &img.AbsolutePath,
			&img.MimeType, &img.Content); err != nil {
			return err
		}
		db.Images[img.ID] = img
	}
	return rows.Err()
}
