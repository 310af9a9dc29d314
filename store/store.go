package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: already exists")
)

// Store 封装博客实体的持久化。
type Store struct {
	db  *gorm.DB
	log *zerolog.Logger

	mu        sync.RWMutex
	postHooks []func(Post)
}

// Open opens the sqlite database at dsn and migrates the schema.
func Open(dsn string, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// 内存库每个连接独立，只能用一个连接。
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&User{}, &Category{}, &Tag{}, &Post{}, &Comment{}, &AdSenseSettings{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OnPostSaved registers fn to run after a post is created or updated.
func (s *Store) OnPostSaved(fn func(Post)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postHooks = append(s.postHooks, fn)
}

func (s *Store) firePostSaved(p Post) {
	s.mu.RLock()
	hooks := append([]func(Post){}, s.postHooks...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(p)
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// uniqueSlug 生成不与 model 表中其它记录冲突的 slug，冲突时追加 -2、-3…
func uniqueSlug(ctx context.Context, tx *gorm.DB, model any, source string, maxLen int, excludeID uint) (string, error) {
	base := slug.Make(source)
	if base == "" {
		base = "item"
	}
	for n := 1; ; n++ {
		suffix := ""
		if n > 1 {
			suffix = fmt.Sprintf("-%d", n)
		}
		candidate := base
		if len(candidate)+len(suffix) > maxLen {
			candidate = strings.TrimRight(candidate[:maxLen-len(suffix)], "-")
		}
		candidate += suffix

		var count int64
		q := tx.WithContext(ctx).Model(model).Where("slug = ?", candidate)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
}
