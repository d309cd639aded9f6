// Package gormkv implements storage.Storage on a GORM table, for sharing
// state through a MySQL server.
package gormkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rcliao/bot-chat/internal/storage"
)

// Item is one persisted key.
type Item struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

func (Item) TableName() string { return "bot_chat_items" }

// Store wraps a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// OpenMySQL connects with a DSN such as
// user:pass@tcp(127.0.0.1:3306)/bot_chat?charset=utf8mb4&parseTime=true&loc=Local
func OpenMySQL(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return New(db)
}

// New migrates the items table on db and returns a store over it.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) GetItem(ctx context.Context, key string) (string, error) {
	var it Item
	err := s.db.WithContext(ctx).Where("`key` = ?", key).Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return it.Value, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	it := Item{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&it).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).Delete(&Item{}).Error; err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
