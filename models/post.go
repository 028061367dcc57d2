package models

import "time"

// Post is a normalised Reddit submission.
type Post struct {
	PostID     string  `json:"post_id" db:"post_id"`
	Subreddit  string  `json:"subreddit" db:"subreddit"`
	Title      string  `json:"title" db:"title"`
	URL        string  `json:"url" db:"url"`
	MediaURL   string  `json:"media_url" db:"media_url"`
	Author     string  `json:"author" db:"author"`
	Permalink  string  `json:"permalink,omitempty"`
	IsNSFW     bool    `json:"is_nsfw" db:"is_nsfw"`
	CreatedUTC float64 `json:"created_utc" db:"created_utc"`
}

// RedditURL returns the full reddit.com link for the post.
func (p Post) RedditURL() string {
	if p.Permalink != "" {
		return "https://reddit.com" + p.Permalink
	}
	return "https://reddit.com/r/" + p.Subreddit + "/comments/" + p.PostID
}

// DisplayURL prefers the resolved media URL.
func (p Post) DisplayURL() string {
	if p.MediaURL != "" {
		return p.MediaURL
	}
	return p.URL
}

// CachedPost is a Post stored under a search keyword.
type CachedPost struct {
	Post
	Keyword  string    `json:"keyword" db:"keyword"`
	CachedAt time.Time `json:"cached_at" db:"cached_at"`
}

// KeywordKey identifies a cache entry.
type KeywordKey struct {
	Keyword string
	NSFW    bool
}

// KeywordDisableEntry tracks failed lookups for a keyword.
type KeywordDisableEntry struct {
	Keyword    string
	NSFW       bool
	Failures   int
	DisabledAt time.Time // zero while still enabled
}

// Pick sources reported in MemeResult.PickedVia.
const (
	PickedCache    = "cache"
	PickedWarm     = "warm"
	PickedLive     = "live"
	PickedFallback = "fallback"
	PickedRandom   = "random"
	PickedLocal    = "local"
	PickedNone     = "none"
)

// MemeResult is the outcome of a fetch, shared by live and fallback paths.
type MemeResult struct {
	Post            *Post
	SourceSubreddit string
	Listing         string
	TriedSubreddits []string
	Errors          []string
	PickedVia       string
}

// Found reports whether the result carries a post.
func (r MemeResult) Found() bool {
	return r.Post != nil
}
