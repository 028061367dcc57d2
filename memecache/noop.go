package memecache

import (
	"context"

	"memer/models"
)

// Noop disables every tier. Reads are empty and writes are dropped.
type Noop struct{}

func (Noop) GetFromRAM(string, bool) []models.CachedPost { return nil }
func (Noop) GetFromDisk(context.Context, string, bool) ([]models.CachedPost, error) {
	return nil, nil
}
func (Noop) Get(context.Context, string, bool) []models.CachedPost { return nil }
func (Noop) CacheToRAM(string, []models.Post, bool) {}
func (Noop) SaveToDisk(context.Context, string, []models.Post, bool) error { return nil }
func (Noop) Put(context.Context, string, []models.Post, bool) error { return nil }
func (Noop) IsDisabled(string, bool) bool { return false }
func (Noop) RecordFailure(string, bool) bool { return false }
func (Noop) ClearFailure(string, bool) {}
func (Noop) ClearDisabled() {}
func (Noop) FlushExpired(context.Context) (int64, error) { return 0, nil }
func (Noop) Keywords() []models.KeywordKey { return nil }

// NoDisable shares the wrapped cache but never records failures, so a
// single-subreddit query cannot disable a keyword for everyone.
type NoDisable struct {
	Manager
}

func (NoDisable) RecordFailure(string, bool) bool { return false }
