package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mikequentel/autoshare/internal/model"
)

// MetaPrefix namespaces every autoshare meta key.
const MetaPrefix = "autoshare_for_twitter"

const (
	EnableKey     = "autoshare"
	TweetBodyKey  = "tweet-body"
	AllowImageKey = "tweet-allow-image"
	StatusKey     = "status"
)

func metaKey(key string) string {
	return fmt.Sprintf("%s_%s", MetaPrefix, key)
}

// GetMeta returns the value stored under the prefixed key. ok is false when
// nothing is stored.
func (s *Store) GetMeta(ctx context.Context, postID int64, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT meta_value FROM post_meta WHERE post_id = ? AND meta_key = ?`, postID, metaKey(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) UpdateMeta(ctx context.Context, postID int64, key, value string) error {
	return updateMeta(ctx, s.db, postID, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateMeta(ctx context.Context, db execer, postID int64, key, value string) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
		postID, metaKey(key), value)
	return err
}

func deleteMeta(ctx context.Context, db execer, postID int64, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM post_meta WHERE post_id = ? AND meta_key = ?`, postID, metaKey(key))
	return err
}

// Settings reads the per-post autoshare options. enabledSet reports whether
// the enabled flag was ever saved for the post.
func (s *Store) Settings(ctx context.Context, postID int64) (st model.Settings, enabledSet bool, err error) {
	enabled, enabledSet, err := s.GetMeta(ctx, postID, EnableKey)
	if err != nil {
		return st, false, err
	}
	body, _, err := s.GetMeta(ctx, postID, TweetBodyKey)
	if err != nil {
		return st, false, err
	}
	allow, _, err := s.GetMeta(ctx, postID, AllowImageKey)
	if err != nil {
		return st, false, err
	}
	return model.Settings{
		Enabled:    enabled == "1",
		TweetBody:  body,
		AllowImage: allow == "1",
	}, enabledSet, nil
}

// SaveSettings stores all three options at once. An empty tweet body removes
// the override.
func (s *Store) SaveSettings(ctx context.Context, postID int64, st model.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateMeta(ctx, tx, postID, EnableKey, boolMeta(st.Enabled)); err != nil {
		return err
	}
	if err := updateMeta(ctx, tx, postID, AllowImageKey, boolMeta(st.AllowImage)); err != nil {
		return err
	}
	if st.TweetBody == "" {
		err = deleteMeta(ctx, tx, postID, TweetBodyKey)
	} else {
		err = updateMeta(ctx, tx, postID, TweetBodyKey, st.TweetBody)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Status returns the last publish record for the post, or nil if it was never
// attempted.
func (s *Store) Status(ctx context.Context, postID int64) (*model.Status, error) {
	raw, ok, err := s.GetMeta(ctx, postID, StatusKey)
	if err != nil || !ok {
		return nil, err
	}
	st := &model.Status{}
	if err := json.Unmarshal([]byte(raw), st); err != nil {
		return nil, fmt.Errorf("decode status for post %d: %w", postID, err)
	}
	return st, nil
}

func (s *Store) SaveStatus(ctx context.Context, postID int64, st model.Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.UpdateMeta(ctx, postID, StatusKey, string(b))
}

func boolMeta(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
