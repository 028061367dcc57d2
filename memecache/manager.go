package memecache

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"memer/models"
)

// RandomKey is the sentinel keyword under which keyword-less picks are pooled.
const RandomKey = "__random__"

// Manager is the tiered keyword cache consulted by the fetcher.
type Manager interface {
	GetFromRAM(keyword string, nsfw bool) []models.CachedPost
	GetFromDisk(ctx context.Context, keyword string, nsfw bool) ([]models.CachedPost, error)
	Get(ctx context.Context, keyword string, nsfw bool) []models.CachedPost
	CacheToRAM(keyword string, posts []models.Post, nsfw bool)
	SaveToDisk(ctx context.Context, keyword string, posts []models.Post, nsfw bool) error
	Put(ctx context.Context, keyword string, posts []models.Post, nsfw bool) error
	IsDisabled(keyword string, nsfw bool) bool
	RecordFailure(keyword string, nsfw bool) bool
	ClearFailure(keyword string, nsfw bool)
	ClearDisabled()
	FlushExpired(ctx context.Context) (int64, error)
	Keywords() []models.KeywordKey
}

// DiskStore is the persistent tier.
type DiskStore interface {
	Save(ctx context.Context, keyword string, posts []models.Post, nsfw bool, now time.Time) error
	Get(ctx context.Context, keyword string, nsfw bool) ([]models.CachedPost, error)
	FlushExpired(ctx context.Context, cutoff time.Time) (int64, error)
	Counts(ctx context.Context) (sfw, nsfw int, err error)
}

type ramEntry struct {
	posts []models.CachedPost
	ts    time.Time
}

// RedditCacheManager keeps keyword results in RAM with a TTL, mirrors them to
// disk and temporarily disables keywords that keep failing.
type RedditCacheManager struct {
	mu       sync.Mutex
	disk     DiskStore
	ram      map[models.KeywordKey]ramEntry
	disabled map[models.KeywordKey]*models.KeywordDisableEntry
	cfg      models.CacheConfig
	now      func() time.Time
}

// NewRedditCacheManager builds a manager over disk. disk may be nil for a
// RAM-only cache.
func NewRedditCacheManager(disk DiskStore, cfg models.CacheConfig) *RedditCacheManager {
	return &RedditCacheManager{
		disk:     disk,
		ram:      make(map[models.KeywordKey]ramEntry),
		disabled: make(map[models.KeywordKey]*models.KeywordDisableEntry),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Apply swaps in new TTLs and thresholds.
func (m *RedditCacheManager) Apply(cfg models.CacheConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

func key(keyword string, nsfw bool) models.KeywordKey {
	return models.KeywordKey{Keyword: strings.ToLower(strings.TrimSpace(keyword)), NSFW: nsfw}
}

// GetFromRAM returns the cached posts when the entry is at most ram_ttl old.
func (m *RedditCacheManager) GetFromRAM(keyword string, nsfw bool) []models.CachedPost {
	k := key(keyword, nsfw)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.ram[k]
	if !ok {
		return nil
	}
	if m.now().Sub(e.ts) > m.cfg.RAMCacheTTL {
		delete(m.ram, k)
		return nil
	}
	return append([]models.CachedPost(nil), e.posts...)
}

// GetFromDisk reads the disk tier and refills RAM on a hit.
func (m *RedditCacheManager) GetFromDisk(ctx context.Context, keyword string, nsfw bool) ([]models.CachedPost, error) {
	if m.disk == nil {
		return nil, nil
	}
	k := key(keyword, nsfw)
	posts, err := m.disk.Get(ctx, k.Keyword, nsfw)
	if err != nil {
		return nil, err
	}
	if len(posts) > 0 {
		m.mu.Lock()
		m.ram[k] = ramEntry{posts: posts, ts: m.now()}
		m.mu.Unlock()
	}
	return posts, nil
}

// Get tries RAM, then disk.
func (m *RedditCacheManager) Get(ctx context.Context, keyword string, nsfw bool) []models.CachedPost {
	if posts := m.GetFromRAM(keyword, nsfw); len(posts) > 0 {
		return posts
	}
	posts, err := m.GetFromDisk(ctx, keyword, nsfw)
	if err != nil {
		log.Printf("[Cache] Disk lookup for %q failed: %v", keyword, err)
		return nil
	}
	return posts
}

// CacheToRAM replaces the RAM entry for the keyword.
func (m *RedditCacheManager) CacheToRAM(keyword string, posts []models.Post, nsfw bool) {
	k := key(keyword, nsfw)
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cached := make([]models.CachedPost, 0, len(posts))
	for _, p := range posts {
		cached = append(cached, models.CachedPost{Post: p, Keyword: k.Keyword, CachedAt: now})
	}
	m.ram[k] = ramEntry{posts: cached, ts: now}
}

// AppendToRAM adds a post to an existing entry, creating it when missing.
func (m *RedditCacheManager) AppendToRAM(keyword string, post models.Post, nsfw bool) {
	k := key(keyword, nsfw)
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := m.ram[k]
	for _, p := range e.posts {
		if p.PostID == post.PostID {
			return
		}
	}
	if len(e.posts) == 0 {
		e.ts = now
	}
	e.posts = append(e.posts, models.CachedPost{Post: post, Keyword: k.Keyword, CachedAt: now})
	m.ram[k] = e
}

// SaveToDisk writes the posts to the disk tier.
func (m *RedditCacheManager) SaveToDisk(ctx context.Context, keyword string, posts []models.Post, nsfw bool) error {
	if m.disk == nil || len(posts) == 0 {
		return nil
	}
	return m.disk.Save(ctx, key(keyword, nsfw).Keyword, posts, nsfw, m.now())
}

// Put caches to RAM and disk.
func (m *RedditCacheManager) Put(ctx context.Context, keyword string, posts []models.Post, nsfw bool) error {
	m.CacheToRAM(keyword, posts, nsfw)
	return m.SaveToDisk(ctx, keyword, posts, nsfw)
}

// IsDisabled reports whether the keyword is inside its disable window.
// Expired entries are dropped.
func (m *RedditCacheManager) IsDisabled(keyword string, nsfw bool) bool {
	k := key(keyword, nsfw)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.disabled[k]
	if !ok || e.DisabledAt.IsZero() {
		return false
	}
	if m.now().Sub(e.DisabledAt) >= m.cfg.KeywordDisableTTL {
		delete(m.disabled, k)
		return false
	}
	return true
}

// RecordFailure counts a failed lookup. It returns true when the failure
// reached keyword_disable_after and the keyword is now disabled.
func (m *RedditCacheManager) RecordFailure(keyword string, nsfw bool) bool {
	k := key(keyword, nsfw)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.disabled[k]
	if !ok {
		e = &models.KeywordDisableEntry{Keyword: k.Keyword, NSFW: nsfw}
		m.disabled[k] = e
	}
	e.Failures++

	threshold := m.cfg.KeywordDisableAfter
	if threshold < 1 {
		threshold = 1
	}
	if e.Failures >= threshold && e.DisabledAt.IsZero() {
		e.DisabledAt = m.now()
		log.Printf("[Cache] Keyword %q (nsfw=%t) disabled after %d failure(s)", k.Keyword, nsfw, e.Failures)
		return true
	}
	return false
}

// ClearFailure forgets failures for one keyword.
func (m *RedditCacheManager) ClearFailure(keyword string, nsfw bool) {
	m.mu.Lock()
	delete(m.disabled, key(keyword, nsfw))
	m.mu.Unlock()
}

// ClearDisabled forgets every failure counter.
func (m *RedditCacheManager) ClearDisabled() {
	m.mu.Lock()
	m.disabled = make(map[models.KeywordKey]*models.KeywordDisableEntry)
	m.mu.Unlock()
}

// DisabledCount returns how many keywords are currently disabled.
func (m *RedditCacheManager) DisabledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.disabled {
		if !e.DisabledAt.IsZero() && m.now().Sub(e.DisabledAt) < m.cfg.KeywordDisableTTL {
			n++
		}
	}
	return n
}

// FlushExpired deletes disk rows older than disk_ttl and vacuums.
func (m *RedditCacheManager) FlushExpired(ctx context.Context) (int64, error) {
	if m.disk == nil {
		return 0, nil
	}
	m.mu.Lock()
	cutoff := m.now().Add(-m.cfg.DiskCacheTTL)
	m.mu.Unlock()
	return m.disk.FlushExpired(ctx, cutoff)
}

// Keywords lists the RAM keys, sorted, excluding the random pool.
func (m *RedditCacheManager) Keywords() []models.KeywordKey {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]models.KeywordKey, 0, len(m.ram))
	for k := range m.ram {
		if k.Keyword == RandomKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Keyword != keys[j].Keyword {
			return keys[i].Keyword < keys[j].Keyword
		}
		return !keys[i].NSFW && keys[j].NSFW
	})
	return keys
}

// ramCounts returns keyword and post counts split by nsfw.
func (m *RedditCacheManager) ramCounts() (sfwKeys, sfwPosts, nsfwKeys, nsfwPosts int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.ram {
		if k.NSFW {
			nsfwKeys++
			nsfwPosts += len(e.posts)
		} else {
			sfwKeys++
			sfwPosts += len(e.posts)
		}
	}
	return
}
