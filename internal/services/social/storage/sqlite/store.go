// Package sqlite provides a SQLite-backed user directory store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/bloomy/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"github.com/louisbranch/bloomy/internal/services/social/storage/sqlite/migrations"
	"golang.org/x/text/cases"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists directory users in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// foldName case-folds a display name or query for search. SQLite's lower()
// only folds ASCII, so the folded form is computed here and stored.
func foldName(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Open opens a directory SQLite store at the provided path.
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

// PutUser inserts or updates one user by id.
func (s *Store) PutUser(ctx context.Context, record storage.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if len(record.PasswordHash) == 0 {
		return fmt.Errorf("password hash is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (
    id, email, username, display_name, search_name, avatar, bio, password_hash,
    share_emotions, allow_friend_requests, show_online_status,
    is_online, joined_at, last_seen, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    email = excluded.email,
    username = excluded.username,
    display_name = excluded.display_name,
    search_name = excluded.search_name,
    avatar = excluded.avatar,
    bio = excluded.bio,
    password_hash = excluded.password_hash,
    share_emotions = excluded.share_emotions,
    allow_friend_requests = excluded.allow_friend_requests,
    show_online_status = excluded.show_online_status,
    is_online = excluded.is_online,
    last_seen = excluded.last_seen,
    updated_at = excluded.updated_at`,
		record.ID,
		record.Email,
		record.Username,
		record.DisplayName,
		foldName(record.DisplayName),
		record.Avatar,
		record.Bio,
		record.PasswordHash,
		boolToInt(record.Preferences.ShareEmotions),
		boolToInt(record.Preferences.AllowFriendRequests),
		boolToInt(record.Preferences.ShowOnlineStatus),
		boolToInt(record.IsOnline),
		toMillis(record.JoinedAt),
		toMillis(record.LastSeen),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUserUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

const selectUserColumns = `SELECT id, email, username, display_name, avatar, bio, password_hash,
    share_emotions, allow_friend_requests, show_online_status,
    is_online, joined_at, last_seen, updated_at
FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (storage.UserRecord, error) {
	var (
		record                             storage.UserRecord
		shareEmotions, allowFriendRequests int
		showOnlineStatus, isOnline         int
		joinedAt, lastSeen, updatedAt      int64
	)
	if err := row.Scan(
		&record.ID,
		&record.Email,
		&record.Username,
		&record.DisplayName,
		&record.Avatar,
		&record.Bio,
		&record.PasswordHash,
		&shareEmotions,
		&allowFriendRequests,
		&showOnlineStatus,
		&isOnline,
		&joinedAt,
		&lastSeen,
		&updatedAt,
	); err != nil {
		return storage.UserRecord{}, err
	}
	record.Preferences = storage.Preferences{
		ShareEmotions:       shareEmotions == 1,
		AllowFriendRequests: allowFriendRequests == 1,
		ShowOnlineStatus:    showOnlineStatus == 1,
	}
	record.IsOnline = isOnline == 1
	record.JoinedAt = fromMillis(joinedAt)
	record.LastSeen = fromMillis(lastSeen)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func (s *Store) getUser(ctx context.Context, where string, arg string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserRecord{}, fmt.Errorf("storage is not configured")
	}
	record, err := scanUser(s.sqlDB.QueryRowContext(ctx, selectUserColumns+" WHERE "+where+" = ?", arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return record, nil
}

// GetUserByID returns the user with userID.
func (s *Store) GetUserByID(ctx context.Context, userID string) (storage.UserRecord, error) {
	return s.getUser(ctx, "id", strings.TrimSpace(userID))
}

// GetUserByEmail returns the user with email. Emails are stored lowercase.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.UserRecord, error) {
	return s.getUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByUsername returns the user with a canonical username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (storage.UserRecord, error) {
	return s.getUser(ctx, "username", strings.TrimSpace(username))
}

// SearchUsers matches username or display name by case-insensitive substring.
func (s *Store) SearchUsers(ctx context.Context, query string, excludeUserID string, limit int) ([]storage.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	needle := foldName(query)
	rows, err := s.sqlDB.QueryContext(ctx, selectUserColumns+`
WHERE id != ?
  AND (instr(username, ?) > 0 OR instr(search_name, ?) > 0)
ORDER BY username ASC
LIMIT ?`, excludeUserID, needle, needle, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []storage.User
	for rows.Next() {
		record, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, record.User)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func isUserUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		(strings.Contains(message, "users.email") || strings.Contains(message, "users.username"))
}

var _ storage.UserStore = (*Store)(nil)
