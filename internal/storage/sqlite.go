package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"arcana_bot/internal/model"
	"arcana_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const settingsColumns = `chat_id, mode, include_tags, exclude_tags, japanese_only, review_limit,
	digest, last_digest_at, updated_at`

// GetSettings returns the stored settings of a chat or model.DefaultSettings.
func (s *SQLite) GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM chat_settings WHERE chat_id = ?`, chatID,
	)
	cs, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		d := model.DefaultSettings(chatID)
		return &d, nil
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// SaveSettings inserts or replaces the settings of a chat and sets UpdatedAt.
func (s *SQLite) SaveSettings(ctx context.Context, cs *model.ChatSettings) error {
	include, err := json.Marshal(nonNil(cs.IncludeTags))
	if err != nil {
		return fmt.Errorf("encode include tags: %w", err)
	}
	exclude, err := json.Marshal(nonNil(cs.ExcludeTags))
	if err != nil {
		return fmt.Errorf("encode exclude tags: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_settings (`+settingsColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET
		   mode = excluded.mode,
		   include_tags = excluded.include_tags,
		   exclude_tags = excluded.exclude_tags,
		   japanese_only = excluded.japanese_only,
		   review_limit = excluded.review_limit,
		   digest = excluded.digest,
		   last_digest_at = excluded.last_digest_at,
		   updated_at = excluded.updated_at`,
		cs.ChatID, string(cs.Mode), string(include), string(exclude), boolToInt(cs.JapaneseOnly),
		string(cs.ReviewLimit), boolToInt(cs.Digest), formatTime(cs.LastDigestAt), now,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	cs.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListDueDigests returns the chats whose digest is due at now.
func (s *SQLite) ListDueDigests(ctx context.Context, now time.Time, every time.Duration) ([]model.ChatSettings, error) {
	modifier := fmt.Sprintf("+%d seconds", int64(every.Seconds()))
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+settingsColumns+`
		 FROM chat_settings
		 WHERE digest = 1
		   AND (last_digest_at IS NULL OR datetime(last_digest_at, ?) <= datetime(?))
		 ORDER BY chat_id`,
		modifier, now.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due digests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ChatSettings
	for rows.Next() {
		cs, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cs)
	}
	return out, rows.Err()
}

// MarkDigestSent records the time a digest was delivered to a chat.
func (s *SQLite) MarkDigestSent(ctx context.Context, chatID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_settings SET last_digest_at = ? WHERE chat_id = ?`,
		at.UTC().Format(timeLayout), chatID,
	)
	if err != nil {
		return fmt.Errorf("mark digest sent: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSettings(row scannable) (*model.ChatSettings, error) {
	var (
		cs                   model.ChatSettings
		mode, limit          string
		include, exclude     string
		japaneseOnly, digest int
		lastDigest           sql.NullString
		updated              string
	)
	err := row.Scan(&cs.ChatID, &mode, &include, &exclude, &japaneseOnly, &limit, &digest, &lastDigest, &updated)
	if err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}

	cs.Mode = model.Mode(mode)
	cs.ReviewLimit = model.ReviewLimit(limit)
	cs.JapaneseOnly = japaneseOnly == 1
	cs.Digest = digest == 1
	if err := json.Unmarshal([]byte(include), &cs.IncludeTags); err != nil {
		return nil, fmt.Errorf("decode include tags: %w", err)
	}
	if err := json.Unmarshal([]byte(exclude), &cs.ExcludeTags); err != nil {
		return nil, fmt.Errorf("decode exclude tags: %w", err)
	}
	if lastDigest.Valid {
		t, _ := time.Parse(timeLayout, lastDigest.String)
		cs.LastDigestAt = &t
	}
	cs.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &cs, nil
}
