package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"memer/models"
)

var messageSchema = []string{
	`CREATE TABLE IF NOT EXISTS meme_messages (
        message_id TEXT PRIMARY KEY,
        channel_id TEXT NOT NULL,
        guild_id TEXT,
        url TEXT,
        title TEXT,
        post_id TEXT,
        timestamp INTEGER NOT NULL
    );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_meme_messages_channel_post ON meme_messages(channel_id, post_id);`,
	`CREATE INDEX IF NOT EXISTS idx_meme_messages_channel_ts ON meme_messages(channel_id, timestamp);`,
}

// MessageStore records sent meme messages. Writes are queued and flushed in
// batches by the scheduler.
type MessageStore struct {
	db      *sql.DB
	mutex   sync.Mutex
	pending []models.MemeMessage
	now     func() time.Time
}

// NewMessageStore wraps an initialised stats database.
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db, now: time.Now}
}

// Register queues a sent meme for the next flush.
func (ms *MessageStore) Register(msg models.MemeMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = ms.now().Unix()
	}
	ms.mutex.Lock()
	ms.pending = append(ms.pending, msg)
	ms.mutex.Unlock()
}

// Pending returns the number of queued rows.
func (ms *MessageStore) Pending() int {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return len(ms.pending)
}

// Flush writes all queued rows in one transaction. On failure the rows are
// put back on the queue.
func (ms *MessageStore) Flush(ctx context.Context) (int, error) {
	ms.mutex.Lock()
	batch := ms.pending
	ms.pending = nil
	ms.mutex.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	if err := ms.insertBatch(ctx, batch); err != nil {
		ms.mutex.Lock()
		ms.pending = append(batch, ms.pending...)
		ms.mutex.Unlock()
		return 0, err
	}
	log.Printf("[Messages] flushed %d meme messages", len(batch))
	return len(batch), nil
}

func (ms *MessageStore) insertBatch(ctx context.Context, batch []models.MemeMessage) error {
	tx, err := ms.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin message flush: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT OR IGNORE INTO meme_messages (message_id, channel_id, guild_id, url, title, post_id, timestamp)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range batch {
		if _, err := stmt.ExecContext(ctx, m.MessageID, m.ChannelID, m.GuildID, m.URL, m.Title, nullable(m.PostID), m.Timestamp); err != nil {
			return fmt.Errorf("failed to insert meme message %s: %w", m.MessageID, err)
		}
	}
	return tx.Commit()
}

// RecentPostIDs returns up to limit post IDs most recently sent to channelID,
// newest first, including rows that have not been flushed yet.
func (ms *MessageStore) RecentPostIDs(ctx context.Context, channelID string, limit int) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	ms.mutex.Lock()
	for i := len(ms.pending) - 1; i >= 0 && len(ids) < limit; i-- {
		m := ms.pending[i]
		if m.ChannelID == channelID && m.PostID != "" && !seen[m.PostID] {
			seen[m.PostID] = true
			ids = append(ids, m.PostID)
		}
	}
	ms.mutex.Unlock()

	if len(ids) >= limit {
		return ids, nil
	}

	rows, err := ms.db.QueryContext(ctx, `
        SELECT post_id FROM meme_messages
         WHERE channel_id = ? AND post_id IS NOT NULL
         ORDER BY timestamp DESC
         LIMIT ?`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent post ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() && len(ids) < limit {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post id: %w", err)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// HasPostBeenSent reports whether postID was ever sent to channelID.
func (ms *MessageStore) HasPostBeenSent(ctx context.Context, channelID, postID string) (bool, error) {
	ms.mutex.Lock()
	for _, m := range ms.pending {
		if m.ChannelID == channelID && m.PostID == postID {
			ms.mutex.Unlock()
			return true, nil
		}
	}
	ms.mutex.Unlock()

	var one int
	err := ms.db.QueryRowContext(ctx, `SELECT 1 FROM meme_messages WHERE channel_id = ? AND post_id = ? LIMIT 1`, channelID, postID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sent post: %w", err)
	}
	return true, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
