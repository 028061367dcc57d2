package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"memer/models"

	"github.com/google/uuid"
)

var economySchema = []string{
	`CREATE TABLE IF NOT EXISTS balances (
        user_id TEXT PRIMARY KEY,
        coins INTEGER NOT NULL DEFAULT 0
    );`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        delta INTEGER NOT NULL,
        reason TEXT NOT NULL,
        timestamp INTEGER NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_ts ON transactions(user_id, timestamp);`,
	`CREATE TABLE IF NOT EXISTS daily_claims (
        user_id TEXT PRIMARY KEY,
        last_date TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS lottery_entries (
        user_id TEXT PRIMARY KEY,
        last_date TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS server_settings (
        guild_id TEXT PRIMARY KEY,
        gambling_enabled INTEGER NOT NULL DEFAULT 1
    );`,
}

// Reason patterns used to classify gambling transactions.
var winLossPatterns = []struct {
	Game    string
	Pattern string
}{
	{"Coin Flip", "%Flip%"},
	{"Dice Roll", "%Roll%"},
	{"High-Low", "%HighLow%"},
	{"Slots", "%Slots%"},
	{"Crash", "%Crash%"},
	{"Blackjack", "%Blackjack%"},
}

// Store is the economy ledger: balances plus an append-only transaction log.
type Store struct {
	db       *sql.DB
	now      func() time.Time
	attempts int
	backoff  time.Duration
}

// OpenStore opens the economy database.
func OpenStore(dbPath string) (*Store, error) {
	db, err := InitDB(dbPath, economySchema...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize economy database: %w", err)
	}
	// One writer at a time keeps read-modify-write sequences ordered.
	db.SetMaxOpenConns(1)
	return &Store{db: db, now: time.Now, attempts: 3, backoff: 100 * time.Millisecond}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

// UpdateBalance applies delta to uid's balance, logs the transaction and
// returns the new balance.
func (s *Store) UpdateBalance(ctx context.Context, uid string, delta int64, reason string) (int64, error) {
	var balance int64
	err := withRetry(ctx, s.attempts, s.backoff, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		balance, err = s.applyDelta(ctx, tx, uid, delta, reason)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update balance for %s: %w", uid, err)
	}
	return balance, nil
}

func (s *Store) applyDelta(ctx context.Context, tx *sql.Tx, uid string, delta int64, reason string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO balances (user_id, coins) VALUES (?, ?)
        ON CONFLICT(user_id) DO UPDATE SET coins = coins + excluded.coins`, uid, delta); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO transactions (id, user_id, delta, reason, timestamp) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), uid, delta, reason, s.now().Unix()); err != nil {
		return 0, err
	}
	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT coins FROM balances WHERE user_id = ?`, uid).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// GetBalance returns uid's coins, 0 for unknown users.
func (s *Store) GetBalance(ctx context.Context, uid string) (int64, error) {
	var coins int64
	err := s.db.QueryRowContext(ctx, `SELECT coins FROM balances WHERE user_id = ?`, uid).Scan(&coins)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", uid, err)
	}
	return coins, nil
}

// GetTopBalances returns the n richest users.
func (s *Store) GetTopBalances(ctx context.Context, n int) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, coins FROM balances ORDER BY coins DESC, user_id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top balances: %w", err)
	}
	defer rows.Close()

	var out []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.UserID, &b.Coins); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TryDailyBonus grants amount once per calendar day. It returns false when
// uid already claimed today.
func (s *Store) TryDailyBonus(ctx context.Context, uid string, amount int64) (bool, error) {
	return s.claimOnce(ctx, "daily_claims", uid, amount, "Daily bonus")
}

// TryLottery enters uid into today's lottery, charging cost. It returns
// false when uid already holds a ticket for today.
func (s *Store) TryLottery(ctx context.Context, uid string, cost int64) (bool, error) {
	return s.claimOnce(ctx, "lottery_entries", uid, -cost, "Lottery entry")
}

func (s *Store) claimOnce(ctx context.Context, table, uid string, delta int64, reason string) (bool, error) {
	var claimed bool
	today := s.today()

	err := withRetry(ctx, s.attempts, s.backoff, func() error {
		claimed = false
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
            INSERT INTO %[1]s (user_id, last_date) VALUES (?, ?)
            ON CONFLICT(user_id) DO UPDATE SET last_date = excluded.last_date
             WHERE %[1]s.last_date <> excluded.last_date`, table), uid, today)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if delta != 0 {
			if _, err := s.applyDelta(ctx, tx, uid, delta, reason); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record %s for %s: %w", table, uid, err)
	}
	return claimed, nil
}

// TodayLotteryEntries lists ticket holders since the last draw. The draw
// runs at midnight, so the tickets it sees are dated the previous day.
func (s *Store) TodayLotteryEntries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM lottery_entries WHERE last_date <= ? ORDER BY user_id`, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to query lottery entries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

// ClearLotteryEntries removes every ticket.
func (s *Store) ClearLotteryEntries(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lottery_entries`); err != nil {
		return fmt.Errorf("failed to clear lottery entries: %w", err)
	}
	return nil
}

// GetTransactions returns uid's most recent transactions, newest first.
func (s *Store) GetTransactions(ctx context.Context, uid string, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, delta, reason, timestamp
          FROM transactions
         WHERE user_id = ?
         ORDER BY timestamp DESC, rowid DESC
         LIMIT ?`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Delta, &t.Reason, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetWinLossCounts classifies uid's transactions by game.
func (s *Store) GetWinLossCounts(ctx context.Context, uid string) ([]models.WinLoss, error) {
	out := make([]models.WinLoss, 0, len(winLossPatterns))
	for _, g := range winLossPatterns {
		var wins, losses sql.NullInt64
		err := s.db.QueryRowContext(ctx, `
            SELECT SUM(CASE WHEN delta > 0 THEN 1 ELSE 0 END),
                   SUM(CASE WHEN delta < 0 THEN 1 ELSE 0 END)
              FROM transactions
             WHERE user_id = ? AND reason LIKE ?`, uid, g.Pattern).Scan(&wins, &losses)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s results: %w", g.Game, err)
		}
		out = append(out, models.WinLoss{Game: g.Game, Wins: int(wins.Int64), Losses: int(losses.Int64)})
	}
	return out, nil
}

// IsGamblingEnabled defaults to true for guilds without a setting.
func (s *Store) IsGamblingEnabled(ctx context.Context, guildID string) (bool, error) {
	var enabled int
	err := s.db.QueryRowContext(ctx, `SELECT gambling_enabled FROM server_settings WHERE guild_id = ?`, guildID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read gambling setting: %w", err)
	}
	return enabled != 0, nil
}

// SetGambling stores the guild's gambling toggle.
func (s *Store) SetGambling(ctx context.Context, guildID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO server_settings (guild_id, gambling_enabled) VALUES (?, ?)
        ON CONFLICT(guild_id) DO UPDATE SET gambling_enabled = excluded.gambling_enabled`, guildID, boolToInt(enabled))
	if err != nil {
		return fmt.Errorf("failed to set gambling for %s: %w", guildID, err)
	}
	return nil
}
