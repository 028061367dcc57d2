package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"memer/utils"
)

// FlushExpired deletes cached rows older than cutoff and compacts the file.
func (m *MemeCacheDB) FlushExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	log.Println("Starting flush of expired meme cache rows...")

	res, err := m.db.ExecContext(ctx, `DELETE FROM meme_cache WHERE cached_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache rows: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// VACUUM must run outside a transaction.
	if _, err := m.db.ExecContext(ctx, `VACUUM`); err != nil {
		return rowsAffected, fmt.Errorf("failed to vacuum meme cache: %w", err)
	}

	log.Printf("Flushed %d expired meme cache rows", rowsAffected)
	if rowsAffected > 0 {
		utils.Info("MemeCache", "FlushExpired", fmt.Sprintf("Removed %d expired rows older than %s", rowsAffected, cutoff.Format(time.RFC3339)))
	}
	return rowsAffected, nil
}
