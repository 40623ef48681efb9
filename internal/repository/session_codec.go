package repository

import (
	"encoding/json"
	"time"

	"github.com/anime-alley/storefront/internal/models"
)

func encodeRedisEntry(value string, at time.Time) string {
	payload, err := json.Marshal(redisEntry{Value: value, UpdatedAt: at.Unix()})
	if err != nil {
		return value
	}
	return string(payload)
}

// decodeRedisEntry tolerates plain string values written by older clients.
func decodeRedisEntry(key, raw string) *models.SessionEntry {
	var stored redisEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return &models.SessionEntry{Key: key, Value: raw}
	}
	entry := &models.SessionEntry{Key: key, Value: stored.Value}
	if stored.UpdatedAt > 0 {
		entry.UpdatedAt = time.Unix(stored.UpdatedAt, 0)
	}
	return entry
}
