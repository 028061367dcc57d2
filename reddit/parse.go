package reddit

import (
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"

	"memer/models"

	"github.com/tidwall/gjson"
)

var (
	imageExt = []string{".jpg", ".jpeg", ".png", ".gif"}
	videoExt = []string{".mp4", ".webm", ".gifv"}

	embedSrc = regexp.MustCompile(`src=["']([^"']+)`)
)

func hasExt(raw string, exts []string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsImageURL reports whether the URL path ends in an image extension. Query
// strings such as "?width=640" are ignored.
func IsImageURL(raw string) bool {
	return hasExt(raw, imageExt)
}

// IsVideoURL reports whether the URL path ends in a video extension.
func IsVideoURL(raw string) bool {
	return hasExt(raw, videoExt) || strings.Contains(raw, "v.redd.it")
}

// parseListing extracts every t3 child of a listing document.
func parseListing(body []byte) []models.Post {
	var posts []models.Post
	gjson.GetBytes(body, "data.children").ForEach(func(_, child gjson.Result) bool {
		if child.Get("kind").String() == "t3" {
			posts = append(posts, postFromData(child.Get("data")))
		}
		return true
	})
	return posts
}

// parseRandom handles both the [post, comments] pair returned by the random
// endpoint and a plain listing.
func parseRandom(body []byte) (models.Post, bool) {
	doc := gjson.ParseBytes(body)
	if doc.IsArray() {
		doc = doc.Get("0")
	}
	child := doc.Get("data.children.0")
	if !child.Exists() || child.Get("kind").String() != "t3" {
		return models.Post{}, false
	}
	return postFromData(child.Get("data")), true
}

func postFromData(d gjson.Result) models.Post {
	author := d.Get("author").String()
	if author == "" {
		author = "[deleted]"
	}
	return models.Post{
		PostID:     d.Get("id").String(),
		Subreddit:  d.Get("subreddit").String(),
		Title:      html.UnescapeString(d.Get("title").String()),
		URL:        d.Get("url").String(),
		MediaURL:   html.UnescapeString(mediaURL(d)),
		Author:     author,
		Permalink:  d.Get("permalink").String(),
		IsNSFW:     d.Get("over_18").Bool(),
		CreatedUTC: d.Get("created_utc").Float(),
	}
}

// mediaURL picks the best directly embeddable URL for a submission.
func mediaURL(d gjson.Result) string {
	raw := d.Get("url").String()

	for _, attr := range []string{"media", "secure_media"} {
		if fb := d.Get(attr + ".reddit_video.fallback_url").String(); fb != "" {
			return fb
		}
	}

	if strings.HasSuffix(strings.ToLower(raw), ".gif") {
		return raw
	}

	variants := d.Get("preview.images.0.variants")
	if gif := variants.Get("gif.source.url").String(); gif != "" {
		return gif
	}
	if mp4 := variants.Get("mp4.source.url").String(); mp4 != "" {
		return mp4
	}

	for _, attr := range []string{"secure_media_embed", "media_embed"} {
		content := html.UnescapeString(d.Get(attr + ".content").String())
		if m := embedSrc.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}

	if IsImageURL(raw) {
		return raw
	}

	if src := d.Get("preview.images.0.source.url").String(); src != "" {
		return src
	}
	return raw
}

// parseAbout reads a t5 subreddit document.
func parseAbout(body []byte) (Subreddit, bool) {
	doc := gjson.ParseBytes(body)
	if doc.Get("kind").String() != "t5" {
		return Subreddit{}, false
	}
	d := doc.Get("data")
	return Subreddit{
		Name:        d.Get("display_name").String(),
		Over18:      d.Get("over18").Bool(),
		Subscribers: d.Get("subscribers").Int(),
	}, true
}
