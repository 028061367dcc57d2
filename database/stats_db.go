package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"memer/models"
)

var statsTables = []string{
	`CREATE TABLE IF NOT EXISTS stats (key TEXT PRIMARY KEY, value INTEGER NOT NULL DEFAULT 0);`,
	`CREATE TABLE IF NOT EXISTS user_counts (user_id TEXT PRIMARY KEY, count INTEGER NOT NULL DEFAULT 0);`,
	`CREATE TABLE IF NOT EXISTS subreddit_counts (subreddit TEXT PRIMARY KEY, count INTEGER NOT NULL DEFAULT 0);`,
	`CREATE TABLE IF NOT EXISTS keyword_counts (keyword TEXT PRIMARY KEY, count INTEGER NOT NULL DEFAULT 0);`,
	`CREATE TABLE IF NOT EXISTS meme_reactions (
        message_id TEXT NOT NULL,
        emoji TEXT NOT NULL,
        count INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (message_id, emoji)
    );`,
}

// StatsSchema creates every table kept in the stats database.
var StatsSchema = append(append([]string{}, messageSchema...), statsTables...)

// OpenStatsDB opens the stats database used by StatsStore and MessageStore.
func OpenStatsDB(dbPath string) (*sql.DB, error) {
	db, err := InitDB(dbPath, StatsSchema...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stats database: %w", err)
	}
	return db, nil
}

// StatsStore keeps usage counters.
type StatsStore struct {
	db *sql.DB
}

// NewStatsStore wraps an initialised stats database.
func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

// IncStat adds n to a named counter.
func (ss *StatsStore) IncStat(ctx context.Context, key string, n int64) error {
	_, err := ss.db.ExecContext(ctx, `
        INSERT INTO stats (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = value + excluded.value`, key, n)
	if err != nil {
		return fmt.Errorf("failed to increment stat %s: %w", key, err)
	}
	return nil
}

// UpdateStats records one served meme.
func (ss *StatsStore) UpdateStats(ctx context.Context, userID, keyword, subreddit string, nsfw bool) error {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stats update: %w", err)
	}
	defer tx.Rollback()

	bump := func(query string, args ...interface{}) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}

	if err := bump(`INSERT INTO stats (key, value) VALUES ('total_memes', 1)
        ON CONFLICT(key) DO UPDATE SET value = value + 1`); err != nil {
		return fmt.Errorf("failed to update total_memes: %w", err)
	}
	if nsfw {
		if err := bump(`INSERT INTO stats (key, value) VALUES ('nsfw_memes', 1)
            ON CONFLICT(key) DO UPDATE SET value = value + 1`); err != nil {
			return fmt.Errorf("failed to update nsfw_memes: %w", err)
		}
	}
	if userID != "" {
		if err := bump(`INSERT INTO user_counts (user_id, count) VALUES (?, 1)
            ON CONFLICT(user_id) DO UPDATE SET count = count + 1`, userID); err != nil {
			return fmt.Errorf("failed to update user count: %w", err)
		}
	}
	if subreddit != "" {
		if err := bump(`INSERT INTO subreddit_counts (subreddit, count) VALUES (?, 1)
            ON CONFLICT(subreddit) DO UPDATE SET count = count + 1`, subreddit); err != nil {
			return fmt.Errorf("failed to update subreddit count: %w", err)
		}
	}
	if kw := strings.ToLower(strings.TrimSpace(keyword)); kw != "" {
		if err := bump(`INSERT INTO keyword_counts (keyword, count) VALUES (?, 1)
            ON CONFLICT(keyword) DO UPDATE SET count = count + 1`, kw); err != nil {
			return fmt.Errorf("failed to update keyword count: %w", err)
		}
	}
	return tx.Commit()
}

// TrackReaction counts one reaction on a message.
func (ss *StatsStore) TrackReaction(ctx context.Context, messageID, emoji string) error {
	_, err := ss.db.ExecContext(ctx, `
        INSERT INTO meme_reactions (message_id, emoji, count) VALUES (?, ?, 1)
        ON CONFLICT(message_id, emoji) DO UPDATE SET count = count + 1`, messageID, emoji)
	if err != nil {
		return fmt.Errorf("failed to track reaction: %w", err)
	}
	return nil
}

// TopReactedMemes returns sent memes ordered by total reactions.
func (ss *StatsStore) TopReactedMemes(ctx context.Context, limit int) ([]models.ReactedMeme, error) {
	rows, err := ss.db.QueryContext(ctx, `
        SELECT m.message_id, COALESCE(m.url, ''), COALESCE(m.title, ''), COALESCE(m.guild_id, ''), m.channel_id,
               COALESCE(SUM(r.count), 0) AS total
          FROM meme_messages m
          LEFT JOIN meme_reactions r ON r.message_id = m.message_id
         GROUP BY m.message_id
        HAVING total > 0
         ORDER BY total DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top reacted memes: %w", err)
	}
	defer rows.Close()

	var memes []models.ReactedMeme
	for rows.Next() {
		var m models.ReactedMeme
		if err := rows.Scan(&m.MessageID, &m.URL, &m.Title, &m.GuildID, &m.ChannelID, &m.Count); err != nil {
			return nil, fmt.Errorf("failed to scan reacted meme: %w", err)
		}
		memes = append(memes, m)
	}
	return memes, rows.Err()
}

// DashboardStats aggregates every counter.
func (ss *StatsStore) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	out := models.DashboardStats{GeneratedAt: time.Now().Unix()}

	rows, err := ss.db.QueryContext(ctx, `SELECT key, value FROM stats WHERE key IN ('total_memes', 'nsfw_memes')`)
	if err != nil {
		return out, fmt.Errorf("failed to query stats: %w", err)
	}
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return out, err
		}
		switch key {
		case "total_memes":
			out.TotalMemes = value
		case "nsfw_memes":
			out.NSFWMemes = value
		}
	}
	rows.Close()

	if out.UserCounts, err = ss.counts(ctx, "user_counts", "user_id"); err != nil {
		return out, err
	}
	if out.SubredditCounts, err = ss.counts(ctx, "subreddit_counts", "subreddit"); err != nil {
		return out, err
	}
	if out.KeywordCounts, err = ss.counts(ctx, "keyword_counts", "keyword"); err != nil {
		return out, err
	}
	if out.TopReactions, err = ss.TopReactedMemes(ctx, 5); err != nil {
		return out, err
	}
	return out, nil
}

func (ss *StatsStore) counts(ctx context.Context, table, column string) (map[string]int64, error) {
	rows, err := ss.db.QueryContext(ctx, fmt.Sprintf("SELECT %s, count FROM %s", column, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var k string
		var v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Count is a key with its counter value.
type Count struct {
	Key   string
	Value int64
}

// TopCounts returns the n largest entries of m, ties broken by key.
func TopCounts(m map[string]int64, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
