package models

import "fmt"

// MemeMessage records a meme sent to a channel.
type MemeMessage struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	PostID    string `json:"post_id"`
	Timestamp int64  `json:"timestamp"`
}

// ReactedMeme is a meme message with its total reaction count.
type ReactedMeme struct {
	MessageID string `json:"message_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Count     int64  `json:"count"`
}

// DashboardStats is the aggregated usage snapshot served by /stats.
type DashboardStats struct {
	TotalMemes      int64            `json:"total_memes"`
	NSFWMemes       int64            `json:"nsfw_memes"`
	UserCounts      map[string]int64 `json:"user_counts"`
	SubredditCounts map[string]int64 `json:"subreddit_counts"`
	KeywordCounts   map[string]int64 `json:"keyword_counts"`
	TopReactions    []ReactedMeme    `json:"top_reactions,omitempty"`
	GeneratedAt     int64            `json:"generated_at"`
}

// CacheInfo summarises the meme cache tiers.
type CacheInfo struct {
	RAMSFWKeywords   int `json:"ram_sfw_keywords"`
	RAMSFWPosts      int `json:"ram_sfw_posts"`
	RAMNSFWKeywords  int `json:"ram_nsfw_keywords"`
	RAMNSFWPosts     int `json:"ram_nsfw_posts"`
	DiskSFW          int `json:"disk_sfw"`
	DiskNSFW         int `json:"disk_nsfw"`
	DisabledKeywords int `json:"disabled_keywords"`
}

// String renders the info for admin replies.
func (c CacheInfo) String() string {
	return fmt.Sprintf("🧠 RAM cache: SFW %d keywords, %d posts | NSFW %d keywords, %d posts\n"+
		"💾 Disk cache: SFW %d posts | NSFW %d posts\n"+
		"⛔ Disabled keywords: %d",
		c.RAMSFWKeywords, c.RAMSFWPosts, c.RAMNSFWKeywords, c.RAMNSFWPosts,
		c.DiskSFW, c.DiskNSFW, c.DisabledKeywords)
}
