package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// record is one stored JSON document.
type record struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "records" }

// SQLStorage keeps records in a SQLite database through gorm.
type SQLStorage struct {
	db *gorm.DB
}

// SQLOption configures an SQLStorage.
type SQLOption func(*gorm.Config)

// WithSQLDebug logs every statement.
func WithSQLDebug() SQLOption {
	return func(cfg *gorm.Config) {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}
}

// NewSQLStorage opens (creating if needed) the SQLite database at path.
// Use ":memory:" for a private in-memory database.
func NewSQLStorage(path string, opts ...SQLOption) (*SQLStorage, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	for _, opt := range opts {
		opt(gormConfig)
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(30000)&_txlock=immediate", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" databases shared.
	sqlDB.SetMaxOpenConns(1)

	if path != ":memory:" {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA temp_store=MEMORY",
		} {
			if err := db.Exec(pragma).Error; err != nil {
				slog.Warn("sqlite_pragma_failed", "pragma", pragma, "error", err)
			}
		}
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) Save(ctx context.Context, key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	row := record{Key: key, Value: string(data), UpdatedAt: time.Now().UTC()}
	return s.retryOnLock(ctx, func() error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error
	})
}

func (s *SQLStorage) Load(ctx context.Context, key string, out any) error {
	var row record
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return decode(key, []byte(row.Value), out)
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	return s.retryOnLock(ctx, func() error {
		return s.db.WithContext(ctx).Where("key = ?", key).Delete(&record{}).Error
	})
}

func (s *SQLStorage) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&record{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return count > 0, nil
}

func (s *SQLStorage) List(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	var rows []record
	err := s.db.WithContext(ctx).
		Where(`key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("key").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	out := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		out[i] = json.RawMessage(row.Value)
	}
	return out, nil
}

func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// retryOnLock retries writes that hit a locked database, backing off between attempts.
func (s *SQLStorage) retryOnLock(ctx context.Context, fn func() error) error {
	const maxRetries = 5
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !strings.Contains(lastErr.Error(), "database is locked") &&
			!strings.Contains(lastErr.Error(), "SQLITE_BUSY") {
			return lastErr
		}
		backoff := time.Duration(10*(i+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

// escapeLike escapes LIKE wildcards so the prefix matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
