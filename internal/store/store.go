// Package store persists posts, their images and autoshare post meta in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mikequentel/autoshare/internal/model"
)

var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id           INTEGER PRIMARY KEY,
	title        TEXT NOT NULL,
	permalink    TEXT NOT NULL,
	post_type    TEXT NOT NULL DEFAULT 'post',
	status       TEXT NOT NULL DEFAULT 'draft',
	thumbnail_id INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS attachments (
	id       INTEGER PRIMARY KEY,
	post_id  INTEGER NOT NULL DEFAULT 0,
	file     TEXT NOT NULL,
	width    INTEGER NOT NULL DEFAULT 0,
	height   INTEGER NOT NULL DEFAULT 0,
	filesize INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS attachment_sizes (
	attachment_id INTEGER NOT NULL,
	name          TEXT NOT NULL,
	file          TEXT NOT NULL,
	width         INTEGER NOT NULL DEFAULT 0,
	height        INTEGER NOT NULL DEFAULT 0,
	filesize      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (attachment_id, name)
);
CREATE TABLE IF NOT EXISTS post_meta (
	post_id    INTEGER NOT NULL,
	meta_key   TEXT NOT NULL,
	meta_value TEXT NOT NULL,
	PRIMARY KEY (post_id, meta_key)
);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serialises writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// --- posts ---

// SavePost inserts or replaces p. A zero ID is assigned by the database.
func (s *Store) SavePost(ctx context.Context, p *model.Post) error {
	const q = `
INSERT INTO posts (id, title, permalink, post_type, status, thumbnail_id)
VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	permalink = excluded.permalink,
	post_type = excluded.post_type,
	status = excluded.status,
	thumbnail_id = excluded.thumbnail_id
RETURNING id;
`
	if p.PostType == "" {
		p.PostType = "post"
	}
	if p.Status == "" {
		p.Status = "draft"
	}
	row := s.db.QueryRowContext(ctx, q, p.ID, p.Title, p.Permalink, p.PostType, p.Status, p.ThumbnailID)
	return row.Scan(&p.ID)
}

func (s *Store) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	const q = `SELECT id, title, permalink, post_type, status, thumbnail_id FROM posts WHERE id = ?`
	p := &model.Post{}
	err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Title, &p.Permalink, &p.PostType, &p.Status, &p.ThumbnailID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	const q = `
SELECT id, title, permalink, post_type, status, thumbnail_id
FROM posts ORDER BY id DESC LIMIT ?
`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Permalink, &p.PostType, &p.Status, &p.ThumbnailID); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// --- attachments ---

// SaveAttachment inserts or replaces a and its renditions.
func (s *Store) SaveAttachment(ctx context.Context, a *model.Attachment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `
INSERT INTO attachments (id, post_id, file, width, height, filesize)
VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	post_id = excluded.post_id,
	file = excluded.file,
	width = excluded.width,
	height = excluded.height,
	filesize = excluded.filesize
RETURNING id;
`
	if err := tx.QueryRowContext(ctx, q, a.ID, a.PostID, a.File, a.Width, a.Height, a.FileSize).Scan(&a.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attachment_sizes WHERE attachment_id = ?`, a.ID); err != nil {
		return err
	}
	for name, r := range a.Sizes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attachment_sizes (attachment_id, name, file, width, height, filesize) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, name, r.File, r.Width, r.Height, r.FileSize)
		if err != nil {
			return fmt.Errorf("size %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetAttachment(ctx context.Context, id int64) (*model.Attachment, error) {
	a := &model.Attachment{Sizes: map[string]model.Rendition{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, post_id, file, width, height, filesize FROM attachments WHERE id = ?`, id,
	).Scan(&a.ID, &a.PostID, &a.File, &a.Width, &a.Height, &a.FileSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, file, width, height, filesize FROM attachment_sizes WHERE attachment_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r model.Rendition
		if err := rows.Scan(&r.Name, &r.File, &r.Width, &r.Height, &r.FileSize); err != nil {
			return nil, err
		}
		a.Sizes[r.Name] = r
	}
	return a, rows.Err()
}
