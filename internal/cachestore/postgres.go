package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marco741/prof-backend/internal/globaltime"
)

// cachedResult is the persisted row shape for one cache entry.
type cachedResult struct {
	Text             string    `gorm:"primaryKey;size:512"`
	Long             bool      `gorm:"primaryKey"`
	Language         string    `gorm:"primaryKey;size:16"`
	Data             string    `gorm:"type:text;not null"`
	Provider         string    `gorm:"size:64;not null"`
	CurrentLanguage  string    `gorm:"size:16;not null"`
	OriginalLanguage string    `gorm:"size:16;not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (cachedResult) TableName() string {
	return "search_cache"
}

// Postgres is a Store persisted across restarts. Faults on either path are
// logged and degrade to a miss.
type Postgres struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres cache: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&cachedResult{}); err != nil {
		return nil, fmt.Errorf("migrate search_cache: %w", err)
	}

	return &Postgres{db: db, logger: logger}, nil
}

func (p *Postgres) Retrieve(ctx context.Context, key Key, maxAge time.Duration, providerPin string) (*Result, bool) {
	if p == nil || p.db == nil {
		return nil, false
	}

	var row cachedResult
	err := p.db.WithContext(ctx).
		Where("text = ? AND long = ? AND language = ?", key.Text, key.Long, key.Language).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			p.logger.Error().Err(err).Str("text", key.Text).Msg("cache read failed, treating as miss")
		}
		return nil, false
	}

	if globaltime.Now().Sub(row.CreatedAt) > maxAge {
		return nil, false
	}

	result := Result{
		Data:             row.Data,
		Provider:         row.Provider,
		CurrentLanguage:  row.CurrentLanguage,
		OriginalLanguage: row.OriginalLanguage,
		CreatedAt:        row.CreatedAt,
	}
	if !matchesPin(&result, providerPin) {
		return nil, false
	}
	return &result, true
}

func (p *Postgres) Add(ctx context.Context, key Key, result Result) {
	if p == nil || p.db == nil {
		return
	}

	row := cachedResult{
		Text:             key.Text,
		Long:             key.Long,
		Language:         key.Language,
		Data:             result.Data,
		Provider:         result.Provider,
		CurrentLanguage:  result.CurrentLanguage,
		OriginalLanguage: result.OriginalLanguage,
		CreatedAt:        result.CreatedAt,
	}

	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "text"}, {Name: "long"}, {Name: "language"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		p.logger.Error().Err(err).Str("text", key.Text).Msg("cache write failed, dropping entry")
	}
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("postgres cache is not initialized")
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("postgres cache handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
