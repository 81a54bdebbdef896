// Package sqlite provides SQLite-backed persistence for the notification
// inbox.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/bloomy/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/bloomy/internal/services/notifications/storage"
	"github.com/louisbranch/bloomy/internal/services/notifications/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store provides SQLite-backed persistence for inbox items.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens an inbox SQLite store at the provided path.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, "")
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutInboxItem inserts or replaces one inbox row by id.
func (s *Store) PutInboxItem(ctx context.Context, record storage.InboxRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeInboxRecord(record)
	if err != nil {
		return err
	}

	var readAt sql.NullInt64
	if normalized.ReadAt != nil {
		readAt = sql.NullInt64{Int64: toMillis(*normalized.ReadAt), Valid: true}
	}
	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO inbox_items (
		id, profile, kind, tag, title, body, actions_json, dedupe_key, created_at, updated_at, read_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		profile = excluded.profile,
		kind = excluded.kind,
		tag = excluded.tag,
		title = excluded.title,
		body = excluded.body,
		actions_json = excluded.actions_json,
		dedupe_key = excluded.dedupe_key,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		read_at = excluded.read_at
	`,
		normalized.ID,
		normalized.Profile,
		normalized.Kind,
		normalized.Tag,
		normalized.Title,
		normalized.Body,
		normalized.ActionsJSON,
		normalized.DedupeKey,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
		readAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put inbox item: %w", err)
	}
	return nil
}

// GetInboxItemByDedupeKey returns the profile's item carrying dedupeKey.
func (s *Store) GetInboxItemByDedupeKey(ctx context.Context, profile string, dedupeKey string) (storage.InboxRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.InboxRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InboxRecord{}, fmt.Errorf("storage is not configured")
	}
	profile = strings.TrimSpace(profile)
	dedupeKey = strings.TrimSpace(dedupeKey)
	if profile == "" || dedupeKey == "" {
		return storage.InboxRecord{}, storage.ErrNotFound
	}
	row := s.sqlDB.QueryRowContext(ctx, selectInboxColumns+`
FROM inbox_items
WHERE profile = ? AND dedupe_key = ?
`, profile, dedupeKey)
	record, err := scanInboxItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.InboxRecord{}, storage.ErrNotFound
		}
		return storage.InboxRecord{}, fmt.Errorf("get inbox item by dedupe key: %w", err)
	}
	return record, nil
}

// ListInbox pages a profile inbox newest first. The page token is the id
// of the last item on the previous page.
func (s *Store) ListInbox(ctx context.Context, profile string, pageSize int, pageToken string) (storage.InboxPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.InboxPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InboxPage{}, fmt.Errorf("storage is not configured")
	}
	profile = strings.TrimSpace(profile)
	pageToken = strings.TrimSpace(pageToken)
	if profile == "" {
		return storage.InboxPage{}, fmt.Errorf("profile is required")
	}
	if pageSize <= 0 {
		return storage.InboxPage{}, fmt.Errorf("page size must be greater than zero")
	}

	limit := pageSize + 1
	if pageToken == "" {
		rows, err := s.sqlDB.QueryContext(ctx, selectInboxColumns+`
FROM inbox_items
WHERE profile = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, profile, limit)
		if err != nil {
			return storage.InboxPage{}, fmt.Errorf("list inbox: %w", err)
		}
		defer rows.Close()
		return collectInboxPage(rows, pageSize)
	}

	cursor, err := s.getInboxItem(ctx, profile, pageToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.InboxPage{}, nil
		}
		return storage.InboxPage{}, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectInboxColumns+`
FROM inbox_items
WHERE profile = ?
  AND (created_at < ? OR (created_at = ? AND id < ?))
ORDER BY created_at DESC, id DESC
LIMIT ?
`, profile, toMillis(cursor.CreatedAt), toMillis(cursor.CreatedAt), cursor.ID, limit)
	if err != nil {
		return storage.InboxPage{}, fmt.Errorf("list inbox with token: %w", err)
	}
	defer rows.Close()
	return collectInboxPage(rows, pageSize)
}

// CountUnread returns how many profile items have no read time.
func (s *Store) CountUnread(ctx context.Context, profile string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM inbox_items WHERE profile = ? AND read_at IS NULL
`, strings.TrimSpace(profile)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread inbox items: %w", err)
	}
	return count, nil
}

// MarkRead stamps one item as read. Re-marking keeps the first read time.
func (s *Store) MarkRead(ctx context.Context, profile string, itemID string, readAt time.Time) (storage.InboxRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.InboxRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InboxRecord{}, fmt.Errorf("storage is not configured")
	}
	profile = strings.TrimSpace(profile)
	itemID = strings.TrimSpace(itemID)
	if profile == "" {
		return storage.InboxRecord{}, fmt.Errorf("profile is required")
	}
	if itemID == "" {
		return storage.InboxRecord{}, fmt.Errorf("inbox item id is required")
	}

	now := toMillis(readAt)
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE inbox_items
SET read_at = COALESCE(read_at, ?), updated_at = ?
WHERE profile = ? AND id = ?
`, now, now, profile, itemID)
	if err != nil {
		return storage.InboxRecord{}, fmt.Errorf("mark inbox item read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.InboxRecord{}, fmt.Errorf("mark inbox item read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.InboxRecord{}, storage.ErrNotFound
	}
	return s.getInboxItem(ctx, profile, itemID)
}

const selectInboxColumns = `
SELECT id, profile, kind, tag, title, body, actions_json, dedupe_key, created_at, updated_at, read_at`

func (s *Store) getInboxItem(ctx context.Context, profile string, itemID string) (storage.InboxRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectInboxColumns+`
FROM inbox_items
WHERE profile = ? AND id = ?
`, profile, itemID)
	record, err := scanInboxItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.InboxRecord{}, storage.ErrNotFound
		}
		return storage.InboxRecord{}, fmt.Errorf("get inbox item by id: %w", err)
	}
	return record, nil
}

type scanner func(dest ...any) error

func normalizeInboxRecord(record storage.InboxRecord) (storage.InboxRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Profile = strings.TrimSpace(record.Profile)
	record.Kind = strings.TrimSpace(record.Kind)
	record.Tag = strings.TrimSpace(record.Tag)
	record.DedupeKey = strings.TrimSpace(record.DedupeKey)
	record.ActionsJSON = strings.TrimSpace(record.ActionsJSON)
	if record.ActionsJSON == "" {
		record.ActionsJSON = "[]"
	}
	if record.ID == "" {
		return storage.InboxRecord{}, fmt.Errorf("inbox item id is required")
	}
	if record.Profile == "" {
		return storage.InboxRecord{}, fmt.Errorf("profile is required")
	}
	if record.Kind == "" {
		return storage.InboxRecord{}, fmt.Errorf("kind is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.InboxRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	if record.Tag == "" {
		record.Tag = record.Kind
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.ReadAt != nil {
		readAt := record.ReadAt.UTC()
		record.ReadAt = &readAt
	}
	return record, nil
}

func scanInboxItem(scan scanner) (storage.InboxRecord, error) {
	var record storage.InboxRecord
	var createdAt int64
	var updatedAt int64
	var readAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.Profile,
		&record.Kind,
		&record.Tag,
		&record.Title,
		&record.Body,
		&record.ActionsJSON,
		&record.DedupeKey,
		&createdAt,
		&updatedAt,
		&readAt,
	); err != nil {
		return storage.InboxRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	if readAt.Valid {
		value := fromMillis(readAt.Int64)
		record.ReadAt = &value
	}
	return record, nil
}

func collectInboxPage(rows *sql.Rows, pageSize int) (storage.InboxPage, error) {
	page := storage.InboxPage{
		Items: make([]storage.InboxRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanInboxItem(rows.Scan)
		if err != nil {
			return storage.InboxPage{}, fmt.Errorf("scan inbox row: %w", err)
		}
		page.Items = append(page.Items, record)
	}
	if err := rows.Err(); err != nil {
		return storage.InboxPage{}, fmt.Errorf("iterate inbox rows: %w", err)
	}
	if len(page.Items) > pageSize {
		page.NextPageToken = page.Items[pageSize-1].ID
		page.Items = page.Items[:pageSize]
	}
	return page, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.InboxStore = (*Store)(nil)
