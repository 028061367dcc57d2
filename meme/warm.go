package meme

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"memer/models"
	"memer/reddit"

	"github.com/sourcegraph/conc/pool"
)

// ring is a bounded FIFO of posts. Pushing onto a full ring drops the oldest.
type ring struct {
	posts []models.Post
	size  int
}

func (r *ring) push(p models.Post) {
	if len(r.posts) == r.size {
		r.posts = r.posts[1:]
	}
	r.posts = append(r.posts, p)
}

func (r *ring) pop() (models.Post, bool) {
	if len(r.posts) == 0 {
		return models.Post{}, false
	}
	p := r.posts[len(r.posts)-1]
	r.posts = r.posts[:len(r.posts)-1]
	return p, true
}

// WarmBuffer keeps prefetched hot and new listings per subreddit so most
// keyword-less requests never reach Reddit.
type WarmBuffer struct {
	mu    sync.Mutex
	rings map[string]*ring

	client     reddit.Client
	subreddits []string
	listings   []string
	limit      int
	workers    int
	interval   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWarmBuffer builds an idle buffer sized from the cache config.
func NewWarmBuffer(cfg models.CacheConfig) *WarmBuffer {
	limit := cfg.ListingLimit
	if limit <= 0 {
		limit = 75
	}
	workers := cfg.MaxConcurrent
	if workers <= 0 {
		workers = 5
	}
	interval := cfg.WarmupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &WarmBuffer{
		rings:    make(map[string]*ring),
		listings: []string{"hot", "new"},
		limit:    limit,
		workers:  workers,
		interval: interval,
	}
}

func warmKey(subreddit, listing string) string {
	return subreddit + "_" + listing
}

// Start fills the buffers immediately and then every warmup interval until
// Stop is called. A second Start while running is ignored.
func (w *WarmBuffer) Start(ctx context.Context, client reddit.Client, subreddits []string) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		log.Println("[Warmup] already running, skipping start")
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.client = client
	w.subreddits = append([]string(nil), subreddits...)
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	log.Printf("[Warmup] Starting warmup for %d subreddits every %s", len(subreddits), w.interval)
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			w.Refill(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (w *WarmBuffer) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	log.Println("[Warmup] Stopping warmup task")
	cancel()
	<-done
}

// SetSubreddits replaces the subreddits warmed on the next pass.
func (w *WarmBuffer) SetSubreddits(subreddits []string) {
	w.mu.Lock()
	w.subreddits = append([]string(nil), subreddits...)
	w.mu.Unlock()
}

// Refill runs one warmup pass synchronously.
func (w *WarmBuffer) Refill(ctx context.Context) {
	w.mu.Lock()
	client, subs := w.client, append([]string(nil), w.subreddits...)
	w.mu.Unlock()
	if client == nil {
		return
	}

	type batch struct {
		key   string
		posts []models.Post
	}
	p := pool.NewWithResults[*batch]().WithMaxGoroutines(w.workers)
	for _, listing := range w.listings {
		for _, sub := range subs {
			listing, sub := listing, sub
			p.Go(func() *batch {
				posts, err := client.Listing(ctx, sub, listing, w.limit)
				if err != nil {
					log.Printf("[Warmup] fetch error for r/%s[%s]: %v", sub, listing, err)
					return nil
				}
				return &batch{key: warmKey(sub, listing), posts: posts}
			})
		}
	}

	for _, b := range p.Wait() {
		if b == nil {
			continue
		}
		r := &ring{size: w.limit}
		for _, post := range b.posts {
			r.push(post)
		}
		w.mu.Lock()
		w.rings[b.key] = r
		w.mu.Unlock()
	}
}

// Push adds a post to the subreddit_listing buffer.
func (w *WarmBuffer) Push(subreddit, listing string, post models.Post) {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := warmKey(subreddit, listing)
	r, ok := w.rings[k]
	if !ok {
		r = &ring{size: w.limit}
		w.rings[k] = r
	}
	r.push(post)
}

// Pop removes and returns the newest post of a buffer.
func (w *WarmBuffer) Pop(subreddit, listing string) (models.Post, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.rings[warmKey(subreddit, listing)]
	if !ok {
		return models.Post{}, false
	}
	return r.pop()
}

// PopValid pops until a post satisfies ok or the buffer is empty. Rejected
// posts are discarded.
func (w *WarmBuffer) PopValid(subreddit, listing string, ok func(models.Post) bool) (models.Post, bool) {
	for {
		p, found := w.Pop(subreddit, listing)
		if !found {
			return models.Post{}, false
		}
		if ok == nil || ok(p) {
			return p, true
		}
	}
}

// Len returns the number of buffered posts for key.
func (w *WarmBuffer) Len(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rings[key]; ok {
		return len(r.posts)
	}
	return 0
}

// Keys lists the buffer keys in order.
func (w *WarmBuffer) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.rings))
	for k := range w.rings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Listings returns the warmed listing names.
func (w *WarmBuffer) Listings() []string {
	return append([]string(nil), w.listings...)
}
