package economy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"memer/models"
)

// Ledger is the subset of database.Store the economy needs.
type Ledger interface {
	UpdateBalance(ctx context.Context, uid string, delta int64, reason string) (int64, error)
	GetBalance(ctx context.Context, uid string) (int64, error)
	TryDailyBonus(ctx context.Context, uid string, amount int64) (bool, error)
	IsGamblingEnabled(ctx context.Context, guildID string) (bool, error)
}

// RewardRequest describes a completed meme command.
type RewardRequest struct {
	GuildID string
	UserID  string
	Command string
	Keyword string
	// Fallback is set when a keyword was given but a random meme was served.
	Fallback bool
	NoReward bool
}

// Rewarder pays users for using the meme commands.
type Rewarder struct {
	ledger Ledger
	mu     sync.RWMutex
	cfg    models.RewardsConfig
}

// NewRewarder creates a Rewarder.
func NewRewarder(ledger Ledger, cfg models.RewardsConfig) *Rewarder {
	return &Rewarder{ledger: ledger, cfg: cfg}
}

// Apply swaps in a reloaded configuration.
func (r *Rewarder) Apply(cfg models.RewardsConfig) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

// Config returns the active configuration.
func (r *Rewarder) Config() models.RewardsConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Reward credits the daily, base and keyword rewards and returns one line
// per credit. Nothing is paid in DMs, in guilds with gambling disabled, or
// when the request opts out.
func (r *Rewarder) Reward(ctx context.Context, req RewardRequest) ([]string, error) {
	if req.GuildID == "" || req.NoReward {
		return nil, nil
	}
	enabled, err := r.ledger.IsGamblingEnabled(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	cfg := r.Config()
	var lines []string

	claimed, err := r.ledger.TryDailyBonus(ctx, req.UserID, cfg.DailyBonus)
	if err != nil {
		log.Printf("Error granting daily bonus to %s: %v", req.UserID, err)
	} else if claimed {
		lines = append(lines, fmt.Sprintf("🎉 Daily bonus: +%d %s", cfg.DailyBonus, cfg.CoinName))
	}

	if _, err := r.ledger.UpdateBalance(ctx, req.UserID, cfg.BaseReward, "Used /"+req.Command); err != nil {
		return lines, err
	}
	lines = append(lines, fmt.Sprintf("💰 +%d %s for using /%s", cfg.BaseReward, cfg.CoinName, req.Command))

	if req.Keyword != "" && !req.Fallback {
		if _, err := r.ledger.UpdateBalance(ctx, req.UserID, cfg.KeywordBonus, fmt.Sprintf("Bonus for '%s'", req.Keyword)); err != nil {
			return lines, err
		}
		lines = append(lines, fmt.Sprintf("✨ +%d %s bonus for keyword `%s`", cfg.KeywordBonus, cfg.CoinName, req.Keyword))
	}
	return lines, nil
}

// ShopItems maps store items to their price.
var ShopItems = map[string]int64{
	"skipcooldown": 50,
	"premium-sub":  200,
}

// ErrUnknownItem is returned by Buy for items not in ShopItems.
var ErrUnknownItem = errors.New("unknown item")

// InsufficientFundsError reports a balance below what an action costs.
type InsufficientFundsError struct {
	Need int64
	Have int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("need %d, have %d", e.Need, e.Have)
}

// CheckBet verifies that uid can cover amount.
func CheckBet(ctx context.Context, ledger Ledger, uid string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("bet must be positive, got %d", amount)
	}
	bal, err := ledger.GetBalance(ctx, uid)
	if err != nil {
		return err
	}
	if amount > bal {
		return &InsufficientFundsError{Need: amount, Have: bal}
	}
	return nil
}

// Buy charges uid for item and returns the price and new balance.
func Buy(ctx context.Context, ledger Ledger, uid, item string) (int64, int64, error) {
	cost, ok := ShopItems[item]
	if !ok {
		return 0, 0, ErrUnknownItem
	}
	bal, err := ledger.GetBalance(ctx, uid)
	if err != nil {
		return 0, 0, err
	}
	if bal < cost {
		return cost, bal, &InsufficientFundsError{Need: cost, Have: bal}
	}
	bal, err = ledger.UpdateBalance(ctx, uid, -cost, "Bought "+item)
	if err != nil {
		return cost, 0, err
	}
	return cost, bal, nil
}
