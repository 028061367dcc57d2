package models

// Balance is a user's running coin total.
type Balance struct {
	UserID string `json:"user_id"`
	Coins  int64  `json:"coins"`
}

// Transaction is one entry of the append-only ledger.
type Transaction struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Delta     int64  `json:"delta"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// WinLoss counts resolved bets for one game.
type WinLoss struct {
	Game   string
	Wins   int
	Losses int
}
