// Package vectordb persists and loads the vector database artifact: a
// single SQLite file holding notes, embedded chunks, the relationship
// graph, and referenced images. The artifact is rebuilt wholesale by each
// ingestion run and read-only once loaded.
package vectordb

const schemaSQL = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE notes (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	frontmatter TEXT NOT NULL DEFAULT '{}',
	tags        TEXT NOT NULL DEFAULT '[]',
	folder      TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE chunks (
	ord       INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id   TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	start_pos INTEGER NOT NULL,
	end_pos   INTEGER NOT NULL,
	text      TEXT NOT NULL,
	embedding BLOB NOT NULL,
	UNIQUE(note_id, seq)
);

CREATE TABLE edges (
	ord             INTEGER PRIMARY KEY AUTOINCREMENT,
	source_note_id  TEXT NOT NULL,
	ref_kind        TEXT NOT NULL,
	raw_target      TEXT NOT NULL,
	position        INTEGER NOT NULL,
	status          TEXT NOT NULL,
	target_path     TEXT NOT NULL DEFAULT '',
	target_note_id  TEXT NOT NULL DEFAULT '',
	target_image_id TEXT NOT NULL DEFAULT '',
	candidates      TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX idx_edges_source ON edges(source_note_id);
CREATE INDEX idx_edges_target_note ON edges(target_note_id);

CREATE TABLE images (
	id            TEXT PRIMARY KEY,
	note_id       TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	absolute_path TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	content       BLOB NOT NULL
);
`
