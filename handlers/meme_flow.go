package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"memer/meme"
	"memer/memecache"
	"memer/models"
	"memer/reddit"

	"github.com/bwmarrin/discordgo"
)

const (
	recentWindow = 20
	maxRepicks   = 5

	viaWarmCache = "warm cache"
	viaLocal     = "local"
)

var (
	errNoMemes = errors.New("no memes found")
	errNoFresh = errors.New("no fresh memes")
)

type memeSource interface {
	Fetch(ctx context.Context, req meme.FetchRequest) models.MemeResult
	SimpleRandom(ctx context.Context, subreddit string) (*models.Post, error)
	MarkSeen(p models.Post)
}

type recentPosts interface {
	RecentPostIDs(ctx context.Context, channelID string, limit int) ([]string, error)
}

type warmSource interface {
	Listings() []string
	PopValid(subreddit, listing string, ok func(models.Post) bool) (models.Post, bool)
}

// memePipeline turns a command into a post: fetch, random fallback,
// channel dedup, then the warm buffer and the local bundle.
type memePipeline struct {
	src         memeSource
	recent      recentPosts
	warm        warmSource
	fallbackDir string
}

type memeQuery struct {
	ChannelID  string
	Subreddits []string
	Keyword    string
	NSFW       bool
	Cache      memecache.Manager
}

type memePick struct {
	Post       models.Post
	Subreddit  string
	Via        string
	GotKeyword bool
}

func (p memePick) fromCache() bool {
	return p.Via == viaWarmCache || p.Via == viaLocal
}

func randomSub(subs []string) string {
	if len(subs) == 0 {
		return ""
	}
	return subs[rand.IntN(len(subs))]
}

func (mp *memePipeline) simpleRandom(ctx context.Context, sub string) *models.Post {
	if sub == "" {
		return nil
	}
	post, err := mp.src.SimpleRandom(ctx, sub)
	if err != nil {
		log.Printf("[Meme] random pick from r/%s failed: %v", sub, err)
		return nil
	}
	return post
}

// Pick serves a /meme or /nsfwmeme request from the guild's subreddits.
func (mp *memePipeline) Pick(ctx context.Context, q memeQuery) (memePick, error) {
	res := mp.src.Fetch(ctx, meme.FetchRequest{
		Subreddits: q.Subreddits,
		Keyword:    q.Keyword,
		NSFW:       q.NSFW,
		Cache:      q.Cache,
	})

	var pick memePick
	if res.Found() {
		pick = memePick{Post: *res.Post, Subreddit: res.SourceSubreddit, Via: res.PickedVia}
		if pick.Subreddit == "" {
			pick.Subreddit = res.Post.Subreddit
		}
		pick.GotKeyword = q.Keyword != "" && (res.PickedVia == models.PickedCache || res.PickedVia == models.PickedLive)
	} else {
		sub := randomSub(q.Subreddits)
		post := mp.simpleRandom(ctx, sub)
		if post == nil {
			return mp.cachedFallback(q, errNoMemes)
		}
		pick = memePick{Post: *post, Subreddit: sub, Via: models.PickedRandom}
	}

	if !mp.avoidRecent(ctx, q.ChannelID, &pick, func() string { return randomSub(q.Subreddits) }) {
		return mp.cachedFallback(q, errNoFresh)
	}
	return pick, nil
}

// PickFrom serves /r_ from a single subreddit. cache is Noop for
// subreddits outside the guild's lists.
func (mp *memePipeline) PickFrom(ctx context.Context, q memeQuery) (memePick, error) {
	sub := q.Subreddits[0]

	var pick memePick
	if q.Keyword != "" {
		res := mp.src.Fetch(ctx, meme.FetchRequest{
			Subreddits: q.Subreddits,
			Keyword:    q.Keyword,
			NSFW:       q.NSFW,
			Cache:      q.Cache,
		})
		if res.Found() {
			pick = memePick{Post: *res.Post, Subreddit: sub, Via: res.PickedVia, GotKeyword: true}
		}
	}
	if pick.Via == "" {
		post := mp.simpleRandom(ctx, sub)
		if post == nil {
			return memePick{}, errNoMemes
		}
		pick = memePick{Post: *post, Subreddit: sub, Via: models.PickedRandom}
	}

	if !mp.avoidRecent(ctx, q.ChannelID, &pick, func() string { return sub }) {
		return memePick{}, errNoFresh
	}
	return pick, nil
}

// avoidRecent re-picks random posts while the current one was among the
// channel's latest sends. It reports whether pick ended up fresh.
func (mp *memePipeline) avoidRecent(ctx context.Context, channelID string, pick *memePick, nextSub func() string) bool {
	ids, err := mp.recent.RecentPostIDs(ctx, channelID, recentWindow)
	if err != nil {
		log.Printf("[Meme] recent post lookup for %s failed: %v", channelID, err)
		return true
	}
	recent := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		recent[id] = struct{}{}
	}

	for attempt := 0; attempt < maxRepicks; attempt++ {
		if _, seen := recent[pick.Post.PostID]; !seen {
			return true
		}
		sub := nextSub()
		post := mp.simpleRandom(ctx, sub)
		if post == nil {
			return false
		}
		*pick = memePick{Post: *post, Subreddit: sub, Via: models.PickedRandom}
	}
	_, seen := recent[pick.Post.PostID]
	return !seen
}

// cachedFallback serves from the warm buffer, then the local bundle, and
// returns cause when both are empty.
func (mp *memePipeline) cachedFallback(q memeQuery, cause error) (memePick, error) {
	if mp.warm != nil {
		subs := append([]string(nil), q.Subreddits...)
		rand.Shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })
		for _, listing := range mp.warm.Listings() {
			for _, sub := range subs {
				post, ok := mp.warm.PopValid(sub, listing, func(p models.Post) bool { return p.DisplayURL() != "" })
				if ok {
					return memePick{Post: post, Subreddit: post.Subreddit, Via: viaWarmCache}, nil
				}
			}
		}
	}

	post, ok, err := meme.LocalFallback(mp.fallbackDir, q.NSFW)
	if err != nil {
		log.Printf("[Meme] local fallback failed: %v", err)
	}
	if ok {
		return memePick{Post: post, Subreddit: post.Subreddit, Via: viaLocal}, nil
	}
	return memePick{}, cause
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// buildMemeMessage lays out a pick. Images go in the embed; anything else
// is posted as a bare link so Discord can unfurl it.
func buildMemeMessage(p memePick, content string) (string, []*discordgo.MessageEmbed) {
	author := p.Post.Author
	if author == "" {
		author = "[deleted]"
	}
	sub := p.Subreddit
	if sub == "" {
		sub = p.Post.Subreddit
	}
	embed := &discordgo.MessageEmbed{
		Title:       truncate(p.Post.Title, 256),
		URL:         p.Post.RedditURL(),
		Description: fmt.Sprintf("r/%s • u/%s", sub, author),
		Footer:      &discordgo.MessageEmbedFooter{Text: "via " + strings.ToUpper(p.Via)},
	}

	url := p.Post.DisplayURL()
	if reddit.IsImageURL(url) {
		embed.Image = &discordgo.MessageEmbedImage{URL: url}
		return content, []*discordgo.MessageEmbed{embed}
	}
	if content != "" {
		return content + "\n" + url, nil
	}
	return url, nil
}

func keywordApology(keyword string) string {
	return fmt.Sprintf("🔍 Sorry, I couldn’t find any memes containing `%s`— here is a random one (random fallback)", keyword)
}

// sendMeme posts the pick as the interaction followup, falling back to a
// plain channel send when the interaction has expired.
func sendMeme(s *discordgo.Session, i *discordgo.InteractionCreate, p memePick, content string) (*discordgo.Message, error) {
	text, embeds := buildMemeMessage(p, content)
	msg, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: text,
		Embeds:  embeds,
	})
	if err == nil {
		return msg, nil
	}
	if !isExpired(err) {
		return nil, err
	}
	log.Printf("Interaction expired; falling back to channel send in %s", i.ChannelID)
	return s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Content: text,
		Embeds:  embeds,
	})
}
