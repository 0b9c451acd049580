package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recipe-parser/internal/pkg/common"

	_ "modernc.org/sqlite"
)

// SQLiteStore 以 SQLite 表格保存事件，適用單一節點部署
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore 開啟（或建立）資料庫並建立表格
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite 只允許單一寫入者
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS parse_attempts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_parse_attempts_user_created
			ON parse_attempts (user_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialise sqlite schema: %w", err)
		}
	}
	return nil
}

// CountSince 統計 since 之後（含）的事件數
func (s *SQLiteStore) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parse_attempts WHERE user_id = ? AND created_at >= ?`,
		userID, since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rate limit events: %w", err)
	}
	return count, nil
}

// Append 新增一筆事件
func (s *SQLiteStore) Append(ctx context.Context, userID string, success bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parse_attempts (id, user_id, success, created_at) VALUES (?, ?, ?, ?)`,
		common.GenerateUUID(), userID, boolToInt(success), at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append rate limit event: %w", err)
	}
	return nil
}

// Ping 檢查資料庫
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 關閉資料庫
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path 回傳資料庫路徑
func (s *SQLiteStore) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
