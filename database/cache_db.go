package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"memer/models"
)

var memeCacheSchema = []string{
	`CREATE TABLE IF NOT EXISTS meme_cache (
        keyword TEXT NOT NULL,
        subreddit TEXT NOT NULL,
        post_id TEXT NOT NULL,
        title TEXT,
        url TEXT,
        media_url TEXT,
        author TEXT,
        permalink TEXT,
        is_nsfw INTEGER NOT NULL DEFAULT 0,
        created_utc REAL,
        cached_at INTEGER NOT NULL,
        PRIMARY KEY (keyword, post_id)
    );`,
	`CREATE INDEX IF NOT EXISTS idx_meme_cache_keyword ON meme_cache(keyword, is_nsfw);`,
	`CREATE INDEX IF NOT EXISTS idx_meme_cache_cached_at ON meme_cache(cached_at);`,
}

const upsertCachedPost = `
    INSERT OR REPLACE INTO meme_cache (
        keyword, subreddit, post_id, title, url, media_url, author, permalink, is_nsfw, created_utc, cached_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

// MemeCacheDB is the disk tier of the meme cache.
type MemeCacheDB struct {
	db *sql.DB
}

// OpenMemeCache opens the meme cache database and ensures its schema.
func OpenMemeCache(dbPath string) (*MemeCacheDB, error) {
	db, err := InitDB(dbPath, memeCacheSchema...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meme cache: %w", err)
	}
	return &MemeCacheDB{db: db}, nil
}

// Close closes the underlying connection.
func (m *MemeCacheDB) Close() error {
	return m.db.Close()
}

// Save stores posts under keyword. A failed batch is retried row by row so a
// single bad row does not drop the rest.
func (m *MemeCacheDB) Save(ctx context.Context, keyword string, posts []models.Post, nsfw bool, now time.Time) error {
	if len(posts) == 0 {
		return nil
	}
	keyword = strings.ToLower(keyword)

	err := m.saveBatch(ctx, keyword, posts, nsfw, now)
	if err == nil {
		return nil
	}
	log.Printf("[MemeCache] batch save for %q failed, falling back to per-row: %v", keyword, err)

	var failed int
	for _, p := range posts {
		if _, err := m.db.ExecContext(ctx, upsertCachedPost, rowArgs(keyword, p, nsfw, now)...); err != nil {
			failed++
			log.Printf("[MemeCache] failed to save post %s: %v", p.PostID, err)
		}
	}
	if failed == len(posts) {
		return fmt.Errorf("failed to save any of %d posts for keyword %q", failed, keyword)
	}
	return nil
}

func (m *MemeCacheDB) saveBatch(ctx context.Context, keyword string, posts []models.Post, nsfw bool, now time.Time) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertCachedPost)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range posts {
		if _, err := stmt.ExecContext(ctx, rowArgs(keyword, p, nsfw, now)...); err != nil {
			return fmt.Errorf("post %s: %w", p.PostID, err)
		}
	}
	return tx.Commit()
}

func rowArgs(keyword string, p models.Post, nsfw bool, now time.Time) []interface{} {
	return []interface{}{
		keyword,
		p.Subreddit,
		p.PostID,
		p.Title,
		p.URL,
		p.MediaURL,
		p.Author,
		p.Permalink,
		boolToInt(nsfw),
		p.CreatedUTC,
		now.Unix(),
	}
}

// Get returns every cached post for keyword with the given nsfw flag.
func (m *MemeCacheDB) Get(ctx context.Context, keyword string, nsfw bool) ([]models.CachedPost, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT keyword, subreddit, post_id, title, url, media_url, author, permalink, is_nsfw, created_utc, cached_at
          FROM meme_cache
         WHERE keyword = ? AND is_nsfw = ?`, strings.ToLower(keyword), boolToInt(nsfw))
	if err != nil {
		return nil, fmt.Errorf("failed to query meme cache: %w", err)
	}
	defer rows.Close()

	var posts []models.CachedPost
	for rows.Next() {
		var (
			cp        models.CachedPost
			title     sql.NullString
			url       sql.NullString
			mediaURL  sql.NullString
			author    sql.NullString
			permalink sql.NullString
			isNSFW    int
			created   sql.NullFloat64
			cachedAt  int64
		)
		if err := rows.Scan(&cp.Keyword, &cp.Subreddit, &cp.PostID, &title, &url, &mediaURL, &author, &permalink, &isNSFW, &created, &cachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached post: %w", err)
		}
		cp.Title = title.String
		cp.URL = url.String
		cp.MediaURL = mediaURL.String
		cp.Author = author.String
		cp.Permalink = permalink.String
		cp.IsNSFW = isNSFW != 0
		cp.CreatedUTC = created.Float64
		cp.CachedAt = time.Unix(cachedAt, 0)
		posts = append(posts, cp)
	}
	return posts, rows.Err()
}

// Counts returns the number of cached rows split by nsfw flag.
func (m *MemeCacheDB) Counts(ctx context.Context) (sfw, nsfw int, err error) {
	rows, err := m.db.QueryContext(ctx, `SELECT is_nsfw, COUNT(*) FROM meme_cache GROUP BY is_nsfw`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count meme cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var flag, count int
		if err := rows.Scan(&flag, &count); err != nil {
			return 0, 0, err
		}
		if flag != 0 {
			nsfw = count
		} else {
			sfw = count
		}
	}
	return sfw, nsfw, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
