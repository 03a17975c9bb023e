package database

import (
	"context"

	"gorm.io/gorm"
)

// Store runs raw statements against the local database. Handlers that need
// SQL gorm's builder does not express (correlated subqueries, dynamic SET
// lists) go through it.
type Store interface {
	Exec(ctx context.Context, stmt string, args ...any) error
	Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error)
}

// SQLStore is a Store over a gorm connection.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// GetStore returns a Store over the global connection.
func GetStore() Store {
	return NewSQLStore(GetDB())
}

func (s *SQLStore) Exec(ctx context.Context, stmt string, args ...any) error {
	return s.db.WithContext(ctx).Exec(stmt, args...).Error
}

// Query returns each row as a column-name keyed map. No rows yields an empty,
// non-nil slice.
func (s *SQLStore) Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	rows := []map[string]any{}
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
