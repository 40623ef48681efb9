package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/anime-alley/storefront/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository persists client preferences as key-value pairs.
type SessionRepository interface {
	Get(ctx context.Context, key string) (*models.SessionEntry, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]models.SessionEntry, error)
	DeleteExcept(ctx context.Context, keep []string) (int64, error)
}

// GormSessionRepository stores entries in the session_entries table.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates the SQL-backed repository.
func NewSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Get returns nil, nil when the key does not exist.
func (r *GormSessionRepository) Get(ctx context.Context, key string) (*models.SessionEntry, error) {
	var entry models.SessionEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Upsert writes the value, replacing any previous one.
func (r *GormSessionRepository) Upsert(ctx context.Context, key, value string) error {
	entry := models.SessionEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Delete is a no-op for missing keys.
func (r *GormSessionRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.SessionEntry{}).Error
}

// List returns every entry ordered by key.
func (r *GormSessionRepository) List(ctx context.Context) ([]models.SessionEntry, error) {
	var entries []models.SessionEntry
	if err := r.db.WithContext(ctx).Order("key asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteExcept removes every entry whose key is not in keep.
func (r *GormSessionRepository) DeleteExcept(ctx context.Context, keep []string) (int64, error) {
	query := r.db.WithContext(ctx)
	keep = compactKeys(keep)
	if len(keep) > 0 {
		query = query.Where("key NOT IN ?", keep)
	} else {
		query = query.Where("1 = 1")
	}
	result := query.Delete(&models.SessionEntry{})
	return result.RowsAffected, result.Error
}

// RedisSessionRepository keeps entries in one Redis hash.
type RedisSessionRepository struct {
	client *redis.Client
	hash   string
}

// NewRedisSessionRepository creates the Redis-backed repository; hash is the full key name.
func NewRedisSessionRepository(client *redis.Client, hash string) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, hash: hash}
}

type redisEntry struct {
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at"`
}

func (r *RedisSessionRepository) Get(ctx context.Context, key string) (*models.SessionEntry, error) {
	raw, err := r.client.HGet(ctx, r.hash, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRedisEntry(key, raw), nil
}

func (r *RedisSessionRepository) Upsert(ctx context.Context, key, value string) error {
	return r.client.HSet(ctx, r.hash, key, encodeRedisEntry(value, time.Now())).Err()
}

func (r *RedisSessionRepository) Delete(ctx context.Context, key string) error {
	return r.client.HDel(ctx, r.hash, key).Err()
}

func (r *RedisSessionRepository) List(ctx context.Context) ([]models.SessionEntry, error) {
	all, err := r.client.HGetAll(ctx, r.hash).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]models.SessionEntry, 0, len(all))
	for key, raw := range all {
		entries = append(entries, *decodeRedisEntry(key, raw))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (r *RedisSessionRepository) DeleteExcept(ctx context.Context, keep []string) (int64, error) {
	keys, err := r.client.HKeys(ctx, r.hash).Result()
	if err != nil {
		return 0, err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, k := range compactKeys(keep) {
		keepSet[k] = struct{}{}
	}
	purge := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := keepSet[k]; !ok {
			purge = append(purge, k)
		}
	}
	if len(purge) == 0 {
		return 0, nil
	}
	return r.client.HDel(ctx, r.hash, purge...).Result()
}

func compactKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
