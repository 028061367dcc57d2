// Package reddittest provides an in-memory reddit.Client for tests.
package reddittest

import (
	"context"
	"strings"
	"sync"

	"memer/models"
	"memer/reddit"
)

// Fake serves canned posts per subreddit. Unknown subreddits return
// reddit.ErrNotFound.
type Fake struct {
	mu sync.Mutex

	// Listings maps "sub/listing" to posts.
	Listings map[string][]models.Post
	// SearchResults maps "sub/query" to posts. Missing entries search the
	// hot listing by title.
	SearchResults map[string][]models.Post
	// RandomPosts maps a subreddit to the post returned by Random.
	RandomPosts map[string]*models.Post
	// RandomErr is returned by Random when set.
	RandomErr error
	// Subreddits lists the subreddits that exist, for About.
	Subreddits map[string]reddit.Subreddit

	Calls []string
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Listings:      map[string][]models.Post{},
		SearchResults: map[string][]models.Post{},
		RandomPosts:   map[string]*models.Post{},
		Subreddits:    map[string]reddit.Subreddit{},
	}
}

// AddListing registers posts under sub/listing and marks sub as existing.
func (f *Fake) AddListing(sub, listing string, posts ...models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Listings[sub+"/"+listing] = append(f.Listings[sub+"/"+listing], posts...)
	if _, ok := f.Subreddits[sub]; !ok {
		f.Subreddits[sub] = reddit.Subreddit{Name: sub}
	}
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

// CallCount counts calls starting with prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) exists(sub string) bool {
	_, ok := f.Subreddits[sub]
	return ok
}

func (f *Fake) Listing(_ context.Context, sub, listing string, limit int) ([]models.Post, error) {
	f.record("listing:" + sub + "/" + listing)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists(sub) {
		return nil, &reddit.FetchError{Op: listing, Subreddit: sub, Attempts: 1, Err: reddit.ErrNotFound}
	}
	posts := f.Listings[sub+"/"+listing]
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return append([]models.Post(nil), posts...), nil
}

func (f *Fake) Search(_ context.Context, sub, query string, limit int) ([]models.Post, error) {
	f.record("search:" + sub + "/" + query)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists(sub) {
		return nil, &reddit.FetchError{Op: "search", Subreddit: sub, Attempts: 1, Err: reddit.ErrNotFound}
	}
	if posts, ok := f.SearchResults[sub+"/"+query]; ok {
		return append([]models.Post(nil), posts...), nil
	}
	var out []models.Post
	for _, p := range f.Listings[sub+"/hot"] {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) Random(_ context.Context, sub string) (*models.Post, error) {
	f.record("random:" + sub)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RandomErr != nil {
		return nil, f.RandomErr
	}
	if !f.exists(sub) {
		return nil, &reddit.FetchError{Op: "random", Subreddit: sub, Attempts: 1, Err: reddit.ErrNotFound}
	}
	if p := f.RandomPosts[sub]; p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *Fake) About(_ context.Context, sub string) (*reddit.Subreddit, error) {
	f.record("about:" + sub)
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Subreddits[sub]
	if !ok {
		return nil, &reddit.FetchError{Op: "about", Subreddit: sub, Attempts: 1, Err: reddit.ErrNotFound}
	}
	return &s, nil
}
