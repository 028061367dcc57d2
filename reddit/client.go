package reddit

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"memer/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	tokenURL   = "https://www.reddit.com/api/v1/access_token"
	oauthBase  = "https://oauth.reddit.com"
	publicBase = "https://www.reddit.com"
)

// Subreddit is the subset of /about we care about.
type Subreddit struct {
	Name        string
	Over18      bool
	Subscribers int64
}

// Client is the Reddit surface used by the cache and the fetcher.
type Client interface {
	Listing(ctx context.Context, subreddit, listing string, limit int) ([]models.Post, error)
	Search(ctx context.Context, subreddit, query string, limit int) ([]models.Post, error)
	Random(ctx context.Context, subreddit string) (*models.Post, error)
	About(ctx context.Context, subreddit string) (*Subreddit, error)
}

// HTTPClient talks to the Reddit JSON API. With credentials it uses an
// application-only OAuth token against oauth.reddit.com, otherwise the
// public .json endpoints.
type HTTPClient struct {
	http      *http.Client
	base      string
	suffix    string
	userAgent string
	limiter   *rate.Limiter
	attempts  int
	backoff   time.Duration
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(r)
}

// NewHTTPClient builds a client from the reddit config section.
func NewHTTPClient(cfg models.RedditConfig) *HTTPClient {
	agent := cfg.UserAgent
	if agent == "" {
		agent = "memer-bot/1.0"
	}
	base := &http.Client{
		Timeout:   15 * time.Second,
		Transport: &userAgentTransport{agent: agent, next: http.DefaultTransport},
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	backoff := cfg.RetryBase
	if backoff <= 0 {
		backoff = time.Second
	}

	c := &HTTPClient{
		http:      base,
		base:      publicBase,
		suffix:    ".json",
		userAgent: agent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		attempts:  cfg.RetryAttempts,
		backoff:   backoff,
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.http = cc.Client(ctx)
		c.http.Timeout = base.Timeout
		c.base = oauthBase
		c.suffix = ""
	} else {
		log.Printf("[Reddit] No API credentials configured, using public endpoints.")
	}
	return c
}

func (c *HTTPClient) endpoint(p string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("raw_json", "1")
	return c.base + p + c.suffix + "?" + q.Encode()
}

func (c *HTTPClient) get(ctx context.Context, op, subreddit, endpoint string) ([]byte, error) {
	var body []byte
	err := retry(ctx, op, subreddit, c.attempts, c.backoff, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
			return ErrNotFound
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &statusError{Code: resp.StatusCode}
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}

func normalize(subreddit string) string {
	s := strings.TrimSpace(subreddit)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "r/"), "R/")
	return s
}

// Listing fetches hot, new or top posts. Top uses the all-time window.
func (c *HTTPClient) Listing(ctx context.Context, subreddit, listing string, limit int) ([]models.Post, error) {
	sub := normalize(subreddit)
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if listing == "top" {
		q.Set("t", "all")
	}
	body, err := c.get(ctx, listing, sub, c.endpoint(fmt.Sprintf("/r/%s/%s", url.PathEscape(sub), listing), q))
	if err != nil {
		return nil, err
	}
	return parseListing(body), nil
}

// Search runs a restricted search for query inside the subreddit.
func (c *HTTPClient) Search(ctx context.Context, subreddit, query string, limit int) ([]models.Post, error) {
	sub := normalize(subreddit)
	q := url.Values{
		"q":               {query},
		"restrict_sr":     {"1"},
		"sort":            {"new"},
		"t":               {"all"},
		"include_over_18": {"on"},
		"limit":           {strconv.Itoa(limit)},
	}
	body, err := c.get(ctx, "search", sub, c.endpoint(fmt.Sprintf("/r/%s/search", url.PathEscape(sub)), q))
	if err != nil {
		return nil, err
	}
	return parseListing(body), nil
}

// Random returns one random submission, or nil when the subreddit has none.
func (c *HTTPClient) Random(ctx context.Context, subreddit string) (*models.Post, error) {
	sub := normalize(subreddit)
	body, err := c.get(ctx, "random", sub, c.endpoint(fmt.Sprintf("/r/%s/random", url.PathEscape(sub)), nil))
	if err != nil {
		return nil, err
	}
	p, ok := parseRandom(body)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// About resolves the subreddit metadata. Unknown subreddits yield ErrNotFound.
func (c *HTTPClient) About(ctx context.Context, subreddit string) (*Subreddit, error) {
	sub := normalize(subreddit)
	body, err := c.get(ctx, "about", sub, c.endpoint(fmt.Sprintf("/r/%s/about", url.PathEscape(sub)), nil))
	if err != nil {
		return nil, err
	}
	s, ok := parseAbout(body)
	if !ok {
		return nil, &FetchError{Op: "about", Subreddit: sub, Attempts: 1, Err: ErrNotFound}
	}
	return &s, nil
}
