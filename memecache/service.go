package memecache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"memer/database"
	"memer/models"
	"memer/reddit"

	"github.com/sourcegraph/conc/pool"
)

const refreshScanLimit = 25

// SubredditSource lists the configured subreddits of a kind across guilds.
type SubredditSource interface {
	All(kind string) []string
}

// Service owns the cache manager and its disk tier, and runs the periodic
// refresh and flush jobs.
type Service struct {
	Manager *RedditCacheManager

	disk   *database.MemeCacheDB
	client reddit.Client
	subs   SubredditSource

	mu  sync.RWMutex
	cfg models.CacheConfig
}

// NewService builds the service. Init must be called before use.
func NewService(client reddit.Client, subs SubredditSource, cfg models.CacheConfig) *Service {
	return &Service{client: client, subs: subs, cfg: cfg}
}

// Init opens the disk cache.
func (s *Service) Init() error {
	cfg := s.config()
	disk, err := database.OpenMemeCache(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open meme cache: %w", err)
	}
	s.disk = disk
	s.Manager = NewRedditCacheManager(disk, cfg)
	log.Println("MemeCacheService initialized")
	return nil
}

// Apply pushes reloaded settings into the manager.
func (s *Service) Apply(cfg models.CacheConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	if s.Manager != nil {
		s.Manager.Apply(cfg)
	}
}

func (s *Service) config() models.CacheConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Refresh re-scans hot posts for every cached keyword and then clears the
// disabled list.
func (s *Service) Refresh(ctx context.Context) {
	keys := s.Manager.Keywords()
	if len(keys) == 0 {
		return
	}

	limit := s.config().MaxConcurrent
	if limit < 1 {
		limit = 5
	}
	p := pool.New().WithMaxGoroutines(limit)
	for _, k := range keys {
		k := k
		p.Go(func() {
			posts := s.fetchKeywordPosts(ctx, k.Keyword, k.NSFW)
			if len(posts) == 0 {
				return
			}
			if err := s.Manager.Put(ctx, k.Keyword, posts, k.NSFW); err != nil {
				log.Printf("[Refresh] Failed to refresh %s (%s): %v", k.Keyword, kindLabel(k.NSFW), err)
			}
		})
	}
	p.Wait()

	s.Manager.ClearDisabled()
	log.Printf("[Refresh] Refreshed %d cached keyword(s)", len(keys))
}

func kindLabel(nsfw bool) string {
	if nsfw {
		return "NSFW"
	}
	return "SFW"
}

func (s *Service) fetchKeywordPosts(ctx context.Context, keyword string, nsfw bool) []models.Post {
	kind := models.KindSFW
	if nsfw {
		kind = models.KindNSFW
	}
	subs := s.subs.All(kind)

	workers := s.config().FetchConcurrency
	if workers < 1 {
		workers = 2
	}
	p := pool.NewWithResults[[]models.Post]().WithMaxGoroutines(workers)
	kw := strings.ToLower(keyword)
	for _, name := range subs {
		name := name
		p.Go(func() []models.Post {
			posts, err := s.client.Listing(ctx, name, "hot", refreshScanLimit)
			if err != nil {
				log.Printf("Error fetching %s for keyword %s: %v", name, keyword, err)
				return nil
			}
			var out []models.Post
			for _, post := range posts {
				if strings.Contains(strings.ToLower(post.Title), kw) && post.IsNSFW == nsfw {
					out = append(out, post)
				}
			}
			return out
		})
	}

	var all []models.Post
	for _, batch := range p.Wait() {
		all = append(all, batch...)
	}
	return all
}

// Flush removes expired disk rows.
func (s *Service) Flush(ctx context.Context) {
	n, err := s.Manager.FlushExpired(ctx)
	if err != nil {
		log.Printf("[Disk Flush] failed: %v", err)
		return
	}
	log.Printf("[Disk Flush] Expired disk entries cleaned up (%d rows).", n)
}

// Info summarises both tiers.
func (s *Service) Info(ctx context.Context) (models.CacheInfo, error) {
	var info models.CacheInfo
	info.RAMSFWKeywords, info.RAMSFWPosts, info.RAMNSFWKeywords, info.RAMNSFWPosts = s.Manager.ramCounts()
	info.DisabledKeywords = s.Manager.DisabledCount()

	sfw, nsfw, err := s.disk.Counts(ctx)
	if err != nil {
		return info, fmt.Errorf("failed to count disk cache: %w", err)
	}
	info.DiskSFW, info.DiskNSFW = sfw, nsfw
	return info, nil
}

// Close closes the disk tier.
func (s *Service) Close() error {
	if s.disk == nil {
		return nil
	}
	log.Println("MemeCacheService closed")
	return s.disk.Close()
}
