package meme

import (
	"context"
	"log"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"memer/memecache"
	"memer/models"
	"memer/reddit"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sourcegraph/conc/pool"
)

const simpleRandomScan = 50

// FetchRequest describes one meme lookup.
type FetchRequest struct {
	Subreddits []string
	Keyword    string
	NSFW       bool
	ExcludeIDs []string
	Filters    []Filter
	// Cache defaults to memecache.Noop when nil.
	Cache memecache.Manager
}

// Fetcher resolves a FetchRequest through the cache, warm buffers and live
// Reddit calls, in that order.
type Fetcher struct {
	client reddit.Client
	warm   *WarmBuffer

	recentIDs  *expirable.LRU[string, struct{}]
	recentURLs *expirable.LRU[string, struct{}]

	mu       sync.RWMutex
	listings []string
	limit    int
	workers  int
}

// NewFetcher builds a fetcher. warm may be nil.
func NewFetcher(client reddit.Client, warm *WarmBuffer, cache models.CacheConfig, rc models.RedditConfig) *Fetcher {
	size := cache.RecentSize
	if size <= 0 {
		size = 10000
	}
	ttl := cache.RecentTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	f := &Fetcher{
		client:     client,
		warm:       warm,
		recentIDs:  expirable.NewLRU[string, struct{}](size, nil, ttl),
		recentURLs: expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
	f.Apply(cache, rc)
	return f
}

// Apply picks up reloaded listing settings.
func (f *Fetcher) Apply(cache models.CacheConfig, rc models.RedditConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listings = rc.Listings
	if len(f.listings) == 0 {
		f.listings = []string{"hot", "new", "top"}
	}
	f.limit = cache.ListingLimit
	if f.limit <= 0 {
		f.limit = 75
	}
	f.workers = cache.FetchConcurrency
	if f.workers <= 0 {
		f.workers = 2
	}
}

func (f *Fetcher) settings() ([]string, int, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.listings...), f.limit, f.workers
}

// MarkSeen records a post in the recent caches.
func (f *Fetcher) MarkSeen(p models.Post) {
	if p.PostID != "" {
		f.recentIDs.Add(p.PostID, struct{}{})
	}
	if p.URL != "" {
		f.recentURLs.Add(p.URL, struct{}{})
	}
}

// Seen reports whether the post was served inside the recency window.
func (f *Fetcher) Seen(p models.Post) bool {
	return (p.PostID != "" && f.recentIDs.Contains(p.PostID)) || (p.URL != "" && f.recentURLs.Contains(p.URL))
}

type validator struct {
	f        *Fetcher
	exclude  map[string]struct{}
	match    func(string) bool
	filters  []Filter
	poolIDs  map[string]struct{}
	poolURLs map[string]struct{}
}

func (f *Fetcher) newValidator(req FetchRequest) *validator {
	v := &validator{
		f:       f,
		exclude: make(map[string]struct{}, len(req.ExcludeIDs)),
		match:   keywordMatcher(req.Keyword),
		filters: req.Filters,
	}
	for _, id := range req.ExcludeIDs {
		v.exclude[id] = struct{}{}
	}
	return v
}

func (v *validator) valid(p models.Post) bool {
	if p.URL == "" {
		return false
	}
	if v.f.Seen(p) {
		return false
	}
	if _, ok := v.exclude[p.PostID]; ok {
		return false
	}
	if _, ok := v.poolIDs[p.PostID]; ok {
		return false
	}
	if _, ok := v.poolURLs[p.DisplayURL()]; ok {
		return false
	}
	if !v.match(p.Title) {
		return false
	}
	for _, fn := range v.filters {
		if !fn(p) {
			return false
		}
	}
	return true
}

// Fetch never fails: exhausting every tier yields PickedVia "none" with the
// reasons in Errors.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) models.MemeResult {
	if req.Cache == nil {
		req.Cache = memecache.Noop{}
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword != "" {
		return f.fetchKeyword(ctx, req)
	}
	return f.fetchRandom(ctx, req)
}

func (f *Fetcher) result(p models.Post, listing, via string, tried []string) models.MemeResult {
	f.MarkSeen(p)
	post := p
	return models.MemeResult{
		Post:            &post,
		SourceSubreddit: p.Subreddit,
		Listing:         listing,
		TriedSubreddits: tried,
		PickedVia:       via,
	}
}

func subredditSet(subs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}

// usableCached keeps cached posts with media that were not served recently,
// are not excluded and belong to one of the candidate subreddits.
func (v *validator) usableCached(posts []models.CachedPost, subs map[string]struct{}) []models.Post {
	var out []models.Post
	for _, cp := range posts {
		if cp.MediaURL == "" || v.f.Seen(cp.Post) {
			continue
		}
		if _, ok := v.exclude[cp.PostID]; ok {
			continue
		}
		if _, ok := subs[strings.ToLower(cp.Subreddit)]; !ok {
			continue
		}
		out = append(out, cp.Post)
	}
	return out
}

func (f *Fetcher) fetchKeyword(ctx context.Context, req FetchRequest) models.MemeResult {
	tried := []string{req.Keyword}
	v := f.newValidator(req)
	subs := subredditSet(req.Subreddits)

	if valid := v.usableCached(req.Cache.GetFromRAM(req.Keyword, req.NSFW), subs); len(valid) > 0 {
		return f.result(valid[rand.IntN(len(valid))], "cache_ram", models.PickedCache, tried)
	}
	disk, err := req.Cache.GetFromDisk(ctx, req.Keyword, req.NSFW)
	if err != nil {
		log.Printf("[Fetch] disk cache lookup for %q failed: %v", req.Keyword, err)
	}
	if valid := v.usableCached(disk, subs); len(valid) > 0 {
		return f.result(valid[rand.IntN(len(valid))], "cache_disk", models.PickedCache, tried)
	}

	if req.Cache.IsDisabled(req.Keyword, req.NSFW) {
		return models.MemeResult{TriedSubreddits: tried, Errors: []string{"disabled"}, PickedVia: models.PickedNone}
	}

	posts, listing, errs := f.liveKeyword(ctx, req, v)
	if len(posts) > 0 {
		if err := req.Cache.Put(ctx, req.Keyword, posts, req.NSFW); err != nil {
			log.Printf("[Fetch] caching %d posts for %q failed: %v", len(posts), req.Keyword, err)
		}
		req.Cache.ClearFailure(req.Keyword, req.NSFW)
		return f.result(posts[rand.IntN(len(posts))], listing, models.PickedLive, tried)
	}

	req.Cache.RecordFailure(req.Keyword, req.NSFW)
	return models.MemeResult{
		TriedSubreddits: tried,
		Errors:          append(errs, "no valid posts"),
		PickedVia:       models.PickedNone,
	}
}

// liveKeyword searches every candidate subreddit and falls back to scanning
// listings when search turns up nothing usable.
func (f *Fetcher) liveKeyword(ctx context.Context, req FetchRequest, v *validator) ([]models.Post, string, []string) {
	listings, limit, workers := f.settings()
	subs := shuffled(req.Subreddits)

	var (
		mu   sync.Mutex
		errs []string
	)
	collect := func(fetch func(sub string) ([]models.Post, error)) []models.Post {
		p := pool.NewWithResults[[]models.Post]().WithMaxGoroutines(workers)
		for _, sub := range subs {
			sub := sub
			p.Go(func() []models.Post {
				posts, err := fetch(sub)
				if err != nil {
					mu.Lock()
					errs = append(errs, err.Error())
					mu.Unlock()
					return nil
				}
				var out []models.Post
				for _, post := range posts {
					if v.valid(post) {
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

	found := collect(func(sub string) ([]models.Post, error) {
		return f.client.Search(ctx, sub, req.Keyword, limit)
	})
	if len(found) > 0 {
		return found, "search", errs
	}

	for _, listing := range listings {
		listing := listing
		found = collect(func(sub string) ([]models.Post, error) {
			return f.client.Listing(ctx, sub, listing, limit)
		})
		if len(found) > 0 {
			return found, listing, errs
		}
	}
	return nil, "", errs
}

func (f *Fetcher) fetchRandom(ctx context.Context, req FetchRequest) models.MemeResult {
	var tried []string
	v := f.newValidator(req)

	// The random pool is served first; later tiers skip anything already in it.
	ram := req.Cache.GetFromRAM(memecache.RandomKey, req.NSFW)
	disk, err := req.Cache.GetFromDisk(ctx, memecache.RandomKey, req.NSFW)
	if err != nil {
		log.Printf("[Fetch] random pool disk lookup failed: %v", err)
	}
	ramIDs := make(map[string]struct{}, len(ram))
	v.poolIDs = make(map[string]struct{})
	v.poolURLs = make(map[string]struct{})
	var pooled []models.Post
	for _, cp := range ram {
		ramIDs[cp.PostID] = struct{}{}
		pooled = append(pooled, cp.Post)
	}
	for _, cp := range disk {
		if _, dup := ramIDs[cp.PostID]; !dup {
			pooled = append(pooled, cp.Post)
		}
	}

	var candidates []models.Post
	for _, p := range pooled {
		v.poolIDs[p.PostID] = struct{}{}
		if p.MediaURL != "" {
			v.poolURLs[p.MediaURL] = struct{}{}
		}
		if p.MediaURL == "" || f.Seen(p) {
			continue
		}
		if _, ok := v.exclude[p.PostID]; ok {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) > 0 {
		chosen := candidates[rand.IntN(len(candidates))]
		listing := "cache_disk"
		if _, ok := ramIDs[chosen.PostID]; ok {
			listing = "cache_ram"
		}
		if chosen.Subreddit != "" {
			tried = []string{chosen.Subreddit}
		}
		return f.result(chosen, listing, models.PickedCache, tried)
	}

	subs := shuffled(req.Subreddits)

	if f.warm != nil {
		for _, listing := range f.warm.Listings() {
			for _, name := range subs {
				if p, ok := f.warm.PopValid(name, listing, v.valid); ok {
					f.addToPool(ctx, req, p)
					return f.result(p, listing, models.PickedWarm, []string{name})
				}
			}
		}
	}

	listings, limit, _ := f.settings()
	for _, name := range subs {
		tried = append(tried, name)
		listing := listings[rand.IntN(len(listings))]
		posts, err := f.client.Listing(ctx, name, listing, limit)
		if err != nil {
			log.Printf("[Fetch] live %s fetch for r/%s failed: %v", listing, name, err)
			continue
		}
		if p, ok := sample(posts, v.valid); ok {
			f.addToPool(ctx, req, p)
			f.stashWarm(name, listing, posts, p)
			return f.result(p, listing, models.PickedFallback, tried)
		}
	}

	if len(req.Subreddits) > 0 {
		first := req.Subreddits[0]
		if p, err := f.SimpleRandom(ctx, first); err == nil && p != nil && v.valid(*p) {
			f.addToPool(ctx, req, *p)
			return f.result(*p, "random", models.PickedRandom, tried)
		}
	}

	return models.MemeResult{TriedSubreddits: tried, Errors: []string{"All fallback failed"}, PickedVia: models.PickedNone}
}

// stashWarm keeps the rest of a live listing in the warm buffer so the next
// request for the subreddit does not go back to Reddit.
func (f *Fetcher) stashWarm(subreddit, listing string, posts []models.Post, served models.Post) {
	if f.warm == nil || !slices.Contains(f.warm.Listings(), listing) {
		return
	}
	for _, p := range posts {
		if p.PostID == served.PostID || p.MediaURL == "" {
			continue
		}
		f.warm.Push(subreddit, listing, p)
	}
}

// addToPool appends p to the random pool in RAM and on disk.
func (f *Fetcher) addToPool(ctx context.Context, req FetchRequest, p models.Post) {
	existing := req.Cache.GetFromRAM(memecache.RandomKey, req.NSFW)
	posts := make([]models.Post, 0, len(existing)+1)
	for _, cp := range existing {
		if cp.PostID == p.PostID {
			return
		}
		posts = append(posts, cp.Post)
	}
	req.Cache.CacheToRAM(memecache.RandomKey, append(posts, p), req.NSFW)
	if err := req.Cache.SaveToDisk(ctx, memecache.RandomKey, []models.Post{p}, req.NSFW); err != nil {
		log.Printf("[Fetch] saving random pool post %s failed: %v", p.PostID, err)
	}
}

// SimpleRandom asks Reddit for a random submission and, when that fails,
// samples an image or video post from hot.
func (f *Fetcher) SimpleRandom(ctx context.Context, subreddit string) (*models.Post, error) {
	p, err := f.client.Random(ctx, subreddit)
	if err == nil && p != nil {
		return p, nil
	}
	if err != nil {
		log.Printf("[Fetch] random() failed for r/%s: %v", subreddit, err)
	}

	posts, err := f.client.Listing(ctx, subreddit, "hot", simpleRandomScan)
	if err != nil {
		return nil, err
	}
	choice, ok := sample(posts, func(p models.Post) bool {
		return reddit.IsImageURL(p.URL) || reddit.IsVideoURL(p.URL)
	})
	if !ok {
		return nil, nil
	}
	return &choice, nil
}

// sample picks one post satisfying ok uniformly via reservoir sampling.
func sample(posts []models.Post, ok func(models.Post) bool) (models.Post, bool) {
	var (
		choice models.Post
		count  int
	)
	for _, p := range posts {
		if !ok(p) {
			continue
		}
		count++
		if rand.IntN(count) == 0 {
			choice = p
		}
	}
	return choice, count > 0
}

func shuffled(in []string) []string {
	out := append([]string(nil), in...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
