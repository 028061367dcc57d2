package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"memer/bot"
	"memer/economy"
	"memer/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	gamblePrefix    = "gamble"
	choiceTimeout   = 30 * time.Second
	tableTimeout    = 120 * time.Second
	crashTick       = 500 * time.Millisecond
	gambleOpTimeout = 10 * time.Second
)

// choiceGame is a flip, highlow or roll waiting for the player's pick.
type choiceGame struct {
	Game        string
	Amount      int64
	Interaction *discordgo.Interaction
}

type crashGame struct {
	Round       *economy.Crash
	UserName    string
	Interaction *discordgo.Interaction
}

type blackjackGame struct {
	Hand        *economy.Blackjack
	UserName    string
	Interaction *discordgo.Interaction
}

// gambleTables holds every open game message.
type gambleTables struct {
	b    *bot.Bot
	rand economy.Rand
	tick time.Duration

	choices *sessionStore[*choiceGame]
	crashes *sessionStore[*crashGame]
	hands   *sessionStore[*blackjackGame]
}

func newGambleTables(b *bot.Bot) *gambleTables {
	t := &gambleTables{b: b, rand: economy.DefaultRand, tick: crashTick}
	t.choices = newSessionStore(gamblePrefix+"-pick", choiceTimeout, t.choiceTimedOut)
	t.crashes = newSessionStore(gamblePrefix+"-crash", tableTimeout, t.crashTimedOut)
	t.hands = newSessionStore(gamblePrefix+"-bj", tableTimeout, t.blackjackTimedOut)
	return t
}

func (t *gambleTables) coin() string {
	return t.b.Rewards.Config().CoinName
}

func (t *gambleTables) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(t.b.Context(), gambleOpTimeout)
}

// settle books a resolved bet. Pushes leave the ledger untouched.
func (t *gambleTables) settle(ctx context.Context, uid string, o economy.Outcome) (int64, error) {
	if o.Delta == 0 {
		return t.b.Economy.GetBalance(ctx, uid)
	}
	return t.b.Economy.UpdateBalance(ctx, uid, o.Delta, o.Reason)
}

func (t *gambleTables) fundsMessage(err error) string {
	var funds *economy.InsufficientFundsError
	if errors.As(err, &funds) {
		return fmt.Sprintf("❌ You need %d %s, but have only %d.", funds.Need, t.coin(), funds.Have)
	}
	return errGeneric
}

// HandleGamble serves /gamble.
func HandleGamble(t *gambleTables) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		opts := optionMap(i.ApplicationCommandData().Options)
		game := stringOpt(opts, "game")
		user := utils.InteractionUser(i)
		t.b.SetLastGambleChannel(i.ChannelID)

		ctx, cancel := t.ctx()
		defer cancel()

		if i.GuildID != "" {
			enabled, err := t.b.Economy.IsGamblingEnabled(ctx, i.GuildID)
			if err != nil {
				log.Printf("Error reading gambling toggle for %s: %v", i.GuildID, err)
				respondEphemeral(s, i, errGeneric)
				return
			}
			if !enabled {
				respondEphemeral(s, i, "❌ Gambling is disabled in this server.")
				return
			}
		}

		switch game {
		case "lottery":
			t.lottery(ctx, s, i, user.ID)
			return
		case "history":
			limit := int64(10)
			if v, ok := intOpt(opts, "limit"); ok {
				limit = min(max(v, 1), 20)
			}
			t.history(ctx, s, i, user.ID, int(limit))
			return
		case "winrate":
			t.winrate(ctx, s, i, user.ID)
			return
		}

		amount, ok := intOpt(opts, "amount")
		if !ok {
			respondEphemeral(s, i, "❌ You must provide an amount for that game.")
			return
		}
		if err := economy.CheckBet(ctx, t.b.Economy, user.ID, amount); err != nil {
			respondEphemeral(s, i, t.fundsMessage(err))
			return
		}
		log.Printf("/gamble %s: user=%s amount=%d", game, user.ID, amount)

		switch game {
		case "flip", "highlow", "roll":
			t.offerChoice(s, i, user.ID, game, amount)
		case "slots":
			t.slots(ctx, s, i, user.ID, amount)
		case "crash":
			t.startCrash(s, i, user, amount)
		case "blackjack":
			t.startBlackjack(s, i, user, amount, boolOpt(opts, "auto_aces"))
		default:
			respondEphemeral(s, i, "❌ Unknown game.")
		}
	}
}

func button(label, customID string, style discordgo.ButtonStyle, disabled bool) discordgo.Button {
	return discordgo.Button{Label: label, CustomID: customID, Style: style, Disabled: disabled}
}

func row(buttons ...discordgo.Button) discordgo.ActionsRow {
	comps := make([]discordgo.MessageComponent, len(buttons))
	for n, b := range buttons {
		comps[n] = b
	}
	return discordgo.ActionsRow{Components: comps}
}

func (t *gambleTables) offerChoice(s *discordgo.Session, i *discordgo.InteractionCreate, uid, game string, amount int64) {
	sess, ok := t.choices.Start(uid, &choiceGame{Game: game, Amount: amount, Interaction: i.Interaction})
	if !ok {
		respondEphemeral(s, i, errBusy)
		return
	}
	id := func(action string) string { return t.choices.CustomID(sess, action) }

	var prompt string
	var r discordgo.ActionsRow
	switch game {
	case "flip":
		prompt = fmt.Sprintf("🎲 Coin flip for **%d** %s! Choose:", amount, t.coin())
		r = row(button("Heads", id("heads"), discordgo.PrimaryButton, false),
			button("Tails", id("tails"), discordgo.PrimaryButton, false))
	case "highlow":
		prompt = fmt.Sprintf("🃏 High-Low for **%d** %s! Choose:", amount, t.coin())
		r = row(button("Higher", id("higher"), discordgo.SuccessButton, false),
			button("Lower", id("lower"), discordgo.DangerButton, false))
	case "roll":
		prompt = fmt.Sprintf("🎲 Dice roll for **%d** %s! Pick a target (2–6):", amount, t.coin())
		var buttons []discordgo.Button
		for target := 2; target <= 6; target++ {
			n := strconv.Itoa(target)
			buttons = append(buttons, button(n, id(n), discordgo.SecondaryButton, false))
		}
		r = row(buttons...)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    prompt,
			Components: []discordgo.MessageComponent{r},
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error offering %s: %v", game, err)
	}
}

// resolveChoice plays a choice game. It returns the result line and the
// outcome to book.
func (t *gambleTables) resolveChoice(g *choiceGame, action string) (string, economy.Outcome, error) {
	coin := t.coin()
	switch g.Game {
	case "flip":
		if action != "heads" && action != "tails" {
			return "", economy.Outcome{}, fmt.Errorf("bad flip guess %q", action)
		}
		result, o := economy.Flip(t.rand, g.Amount, action)
		if o.Win {
			return fmt.Sprintf("🎉 It was **%s** — you win **%d** %s!", result, g.Amount, coin), o, nil
		}
		return fmt.Sprintf("😢 It was **%s** — you lose **%d** %s.", result, g.Amount, coin), o, nil
	case "highlow":
		if action != "higher" && action != "lower" {
			return "", economy.Outcome{}, fmt.Errorf("bad highlow choice %q", action)
		}
		a, b, o := economy.HighLow(t.rand, g.Amount, action)
		if o.Win {
			return fmt.Sprintf("First %d, then %d — you win **%d** %s!", a, b, g.Amount, coin), o, nil
		}
		return fmt.Sprintf("First %d, then %d — you lose **%d** %s.", a, b, g.Amount, coin), o, nil
	case "roll":
		target, err := strconv.Atoi(action)
		if err != nil {
			return "", economy.Outcome{}, fmt.Errorf("bad roll target %q: %w", action, err)
		}
		roll, o, err := economy.Roll(t.rand, g.Amount, target)
		if err != nil {
			return "", economy.Outcome{}, err
		}
		if o.Win {
			return fmt.Sprintf("🎲 Rolled **%d** — you win **%d** %s!", roll, o.Delta, coin), o, nil
		}
		return fmt.Sprintf("🎲 Rolled **%d** — you lose **%d** %s.", roll, g.Amount, coin), o, nil
	}
	return "", economy.Outcome{}, fmt.Errorf("unknown game %q", g.Game)
}

func (t *gambleTables) choiceTimedOut(sess *session[*choiceGame]) {
	disableComponents(t.b.Session, sess.State.Interaction)
}

// disableComponents strips the buttons from an expired game message.
func disableComponents(s *discordgo.Session, in *discordgo.Interaction) {
	comps := []discordgo.MessageComponent{}
	if _, err := s.InteractionResponseEdit(in, &discordgo.WebhookEdit{Components: &comps}); err != nil {
		log.Printf("Error disabling expired game buttons: %v", err)
	}
}

// HandleGambleComponent routes button presses on game messages.
func HandleGambleComponent(t *gambleTables) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		prefix, id, action, ok := parseCustomID(i.MessageComponentData().CustomID)
		if !ok {
			respondEphemeral(s, i, errGeneric)
			return
		}
		switch prefix {
		case t.choices.prefix:
			t.pressChoice(s, i, id, action)
		case t.crashes.prefix:
			t.pressCrash(s, i, id)
		case t.hands.prefix:
			t.pressBlackjack(s, i, id, action)
		default:
			respondEphemeral(s, i, errGeneric)
		}
	}
}

func gameOver(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEphemeral(s, i, "⌛ This game has already ended.")
}

func notYourGame(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEphemeral(s, i, "❌ This game isn't yours.")
}

func (t *gambleTables) pressChoice(s *discordgo.Session, i *discordgo.InteractionCreate, id, action string) {
	sess, ok := t.choices.Get(id)
	if !ok {
		gameOver(s, i)
		return
	}
	uid := utils.InteractionUser(i).ID
	if uid != sess.OwnerID {
		notYourGame(s, i)
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Done() {
		gameOver(s, i)
		return
	}

	ctx, cancel := t.ctx()
	defer cancel()
	g := sess.State
	if err := economy.CheckBet(ctx, t.b.Economy, uid, g.Amount); err != nil {
		t.choices.Finish(sess)
		updateComponentMessage(s, i, &discordgo.InteractionResponseData{
			Content:    t.fundsMessage(err),
			Components: []discordgo.MessageComponent{},
		})
		return
	}

	line, o, err := t.resolveChoice(g, action)
	if err != nil {
		log.Printf("Error resolving %s: %v", g.Game, err)
		respondEphemeral(s, i, errGeneric)
		return
	}
	if _, err := t.settle(ctx, uid, o); err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("%s for %s: %v", g.Game, uid, err))
		respondEphemeral(s, i, errGeneric)
		return
	}
	t.choices.Finish(sess)
	updateComponentMessage(s, i, &discordgo.InteractionResponseData{
		Content:    line,
		Components: []discordgo.MessageComponent{},
	})
}

func (t *gambleTables) slots(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, uid string, amount int64) {
	reels, o := economy.Slots(t.rand, amount)
	if _, err := t.settle(ctx, uid, o); err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("slots for %s: %v", uid, err))
		respondEphemeral(s, i, errGeneric)
		return
	}
	line := strings.Join(reels[:], " | ")
	if o.Win {
		respondEphemeral(s, i, fmt.Sprintf("%s\n🎉 x%d, you win %d!", line, economy.SlotsMultiplier(reels), o.Delta))
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("%s\n😢 no match — you lose %d.", line, amount))
}

func crashEmbed(title, desc string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: desc, Color: 0xE67E22}
}

func (t *gambleTables) crashRunning(c *economy.Crash) *discordgo.MessageEmbed {
	return crashEmbed("Crash 🚀", fmt.Sprintf("Multiplier: **x%.2f**\nClick **Cash Out** before it crashes!", c.Current))
}

func (t *gambleTables) startCrash(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, amount int64) {
	round := economy.NewCrash(t.rand, amount)
	sess, ok := t.crashes.Start(user.ID, &crashGame{Round: round, UserName: user.Username, Interaction: i.Interaction})
	if !ok {
		respondEphemeral(s, i, errBusy)
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{t.crashRunning(round)},
			Components: []discordgo.MessageComponent{
				row(button("Cash Out", t.crashes.CustomID(sess, "cashout"), discordgo.SuccessButton, false)),
			},
		},
	})
	if err != nil {
		log.Printf("Error starting crash: %v", err)
		sess.Lock()
		t.crashes.Finish(sess)
		sess.Unlock()
		return
	}
	go t.runCrash(sess)
}

// runCrash climbs the multiplier until the round crashes or ends.
func (t *gambleTables) runCrash(sess *session[*crashGame]) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-t.b.Context().Done():
			return
		case <-ticker.C:
		}
		if !t.stepCrash(sess) {
			return
		}
	}
}

// stepCrash advances the round once and reports whether it is still live.
func (t *gambleTables) stepCrash(sess *session[*crashGame]) bool {
	sess.Lock()
	defer sess.Unlock()
	if sess.Done() {
		return false
	}
	g := sess.State
	o, crashed := g.Round.Step(t.rand)
	if !crashed {
		t.editCrash(g, t.crashRunning(g.Round), true)
		return true
	}

	ctx, cancel := t.ctx()
	defer cancel()
	if _, err := t.settle(ctx, sess.OwnerID, o); err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("crash for %s: %v", sess.OwnerID, err))
	}
	t.crashes.Finish(sess)
	t.editCrash(g, crashEmbed("💥 Crashed!", fmt.Sprintf("The crash hit **x%.2f** — **%s** lost **%d** %s.",
		g.Round.Point, g.UserName, g.Round.Amount, t.coin())), false)
	return false
}

// editCrash redraws the round. The Cash Out button stays while live.
func (t *gambleTables) editCrash(g *crashGame, embed *discordgo.MessageEmbed, live bool) {
	embeds := []*discordgo.MessageEmbed{embed}
	edit := &discordgo.WebhookEdit{Embeds: &embeds}
	if !live {
		edit.Components = &[]discordgo.MessageComponent{}
	}
	if _, err := t.b.Session.InteractionResponseEdit(g.Interaction, edit); err != nil {
		log.Printf("Error updating crash message: %v", err)
	}
}

func (t *gambleTables) pressCrash(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	sess, ok := t.crashes.Get(id)
	if !ok {
		gameOver(s, i)
		return
	}
	uid := utils.InteractionUser(i).ID
	if uid != sess.OwnerID {
		notYourGame(s, i)
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Done() {
		gameOver(s, i)
		return
	}
	g := sess.State
	o, ok := g.Round.CashOut()
	if !ok {
		gameOver(s, i)
		return
	}

	ctx, cancel := t.ctx()
	defer cancel()
	bal, err := t.settle(ctx, uid, o)
	if err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("crash cash-out for %s: %v", uid, err))
		respondEphemeral(s, i, errGeneric)
		return
	}
	t.crashes.Finish(sess)
	updateComponentMessage(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{crashEmbed("🏁 Cashed Out!",
			fmt.Sprintf("**%s** cashed out at **x%.2f** — won **%d** %s!", g.UserName, g.Round.Current, g.Round.Payout(), t.coin()))},
		Components: []discordgo.MessageComponent{},
	})
	followupEphemeral(s, i, fmt.Sprintf("💰 Your new balance is **%d** %s.", bal, t.coin()))
}

func (t *gambleTables) crashTimedOut(sess *session[*crashGame]) {
	sess.Lock()
	defer sess.Unlock()
	g := sess.State
	if g.Round.Ended {
		return
	}
	o := g.Round.Lose()

	ctx, cancel := t.ctx()
	defer cancel()
	if _, err := t.settle(ctx, sess.OwnerID, o); err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("crash timeout for %s: %v", sess.OwnerID, err))
	}
	t.editCrash(g, crashEmbed("⌛ Crash Timed Out",
		fmt.Sprintf("No cash-out before crash. You lose **%d** %s.", g.Round.Amount, t.coin())), false)
}

func cardName(c int) string {
	if c == 1 {
		return "A"
	}
	return strconv.Itoa(c)
}

func cardList(cards []int) string {
	parts := make([]string, len(cards))
	for n, c := range cards {
		parts[n] = cardName(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (t *gambleTables) blackjackView(sess *session[*blackjackGame]) *discordgo.InteractionResponseData {
	g := sess.State
	h := g.Hand
	desc := fmt.Sprintf("**%s**'s hand: %s — **%d**\nDealer: [%s, '?']\n\n",
		g.UserName, cardList(h.Player), h.PlayerScore(), cardName(h.Dealer[0]))
	pending := h.AcePending()
	if pending {
		desc += "Choose Ace value, or Hit/Stand below."
	} else {
		desc += "Hit to draw, Stand to hold."
	}
	id := func(action string) string { return t.hands.CustomID(sess, action) }
	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{Title: "🃏 Blackjack", Description: desc, Color: 0x2ECC71}},
		Components: []discordgo.MessageComponent{
			row(
				button("Hit", id("hit"), discordgo.PrimaryButton, pending),
				button("Stand", id("stand"), discordgo.SecondaryButton, pending),
				button("Use Ace as 1", id("ace1"), discordgo.SecondaryButton, !pending),
				button("Use Ace as 11", id("ace11"), discordgo.SecondaryButton, !pending),
			),
		},
	}
}

func (t *gambleTables) blackjackResult(g *blackjackGame, o economy.Outcome, result string) *discordgo.MessageEmbed {
	h := g.Hand
	if result == "" {
		switch {
		case o.Win:
			result = fmt.Sprintf("🎉 **%s** wins **%d** %s!", g.UserName, o.Delta, t.coin())
		case o.Push():
			result = "🤝 Push – it's a tie!"
		default:
			result = fmt.Sprintf("😢 **%s** loses %d %s.", g.UserName, h.Amount, t.coin())
		}
	}
	return &discordgo.MessageEmbed{
		Title: "🃏 Blackjack Result",
		Description: fmt.Sprintf("%s\n\nFinal — **%s**: %s (%d), Dealer: %s (%d)",
			result, g.UserName, cardList(h.Player), h.PlayerScore(), cardList(h.Dealer), h.DealerScore()),
		Color: 0x2ECC71,
	}
}

func (t *gambleTables) startBlackjack(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, amount int64, autoAces bool) {
	hand := economy.NewBlackjack(t.rand, amount, autoAces)
	sess, ok := t.hands.Start(user.ID, &blackjackGame{Hand: hand, UserName: user.Username, Interaction: i.Interaction})
	if !ok {
		respondEphemeral(s, i, errBusy)
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: t.blackjackView(sess),
	})
	if err != nil {
		log.Printf("Error starting blackjack: %v", err)
		sess.Lock()
		t.hands.Finish(sess)
		sess.Unlock()
	}
}

func (t *gambleTables) pressBlackjack(s *discordgo.Session, i *discordgo.InteractionCreate, id, action string) {
	sess, ok := t.hands.Get(id)
	if !ok {
		gameOver(s, i)
		return
	}
	uid := utils.InteractionUser(i).ID
	if uid != sess.OwnerID {
		notYourGame(s, i)
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Done() {
		gameOver(s, i)
		return
	}
	g := sess.State

	var (
		o        economy.Outcome
		finished bool
		err      error
	)
	switch action {
	case "hit":
		o, finished, err = g.Hand.Hit()
	case "stand":
		o, err = g.Hand.Stand()
		finished = err == nil
	case "ace1":
		err = g.Hand.SetAce(1)
	case "ace11":
		err = g.Hand.SetAce(11)
	default:
		err = fmt.Errorf("unknown blackjack action %q", action)
	}
	if err != nil {
		log.Printf("Blackjack action %s for %s failed: %v", action, uid, err)
		respondEphemeral(s, i, errGeneric)
		return
	}
	if !finished {
		updateComponentMessage(s, i, t.blackjackView(sess))
		return
	}

	ctx, cancel := t.ctx()
	defer cancel()
	if _, err := t.settle(ctx, uid, o); err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("blackjack for %s: %v", uid, err))
		respondEphemeral(s, i, errGeneric)
		return
	}
	t.hands.Finish(sess)
	updateComponentMessage(s, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{t.blackjackResult(g, o, "")},
		Components: []discordgo.MessageComponent{},
	})
}

func (t *gambleTables) blackjackTimedOut(sess *session[*blackjackGame]) {
	sess.Lock()
	defer sess.Unlock()
	g := sess.State
	o, ok := g.Hand.Forfeit()
	if !ok {
		return
	}

	ctx, cancel := t.ctx()
	defer cancel()
	if _, err := t.settle(ctx, sess.OwnerID, o); err != nil {
		utils.Error("Gamble", "Settle", fmt.Sprintf("blackjack timeout for %s: %v", sess.OwnerID, err))
	}
	embeds := []*discordgo.MessageEmbed{t.blackjackResult(g, o,
		fmt.Sprintf("⌛ Timed out — **%s** loses %d %s.", g.UserName, g.Hand.Amount, t.coin()))}
	comps := []discordgo.MessageComponent{}
	if _, err := t.b.Session.InteractionResponseEdit(g.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &comps,
	}); err != nil {
		log.Printf("Error closing timed out blackjack: %v", err)
	}
}

func (t *gambleTables) lottery(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, uid string) {
	cost := t.b.Rewards.Config().LotteryCost
	bal, err := t.b.Economy.GetBalance(ctx, uid)
	if err != nil {
		log.Printf("Error reading balance for %s: %v", uid, err)
		respondEphemeral(s, i, errGeneric)
		return
	}
	if bal < cost {
		respondEphemeral(s, i, fmt.Sprintf("❌ You need %d coins to enter.", cost))
		return
	}
	entered, err := t.b.Economy.TryLottery(ctx, uid, cost)
	if err != nil {
		utils.Error("Gamble", "Lottery", fmt.Sprintf("entry for %s: %v", uid, err))
		respondEphemeral(s, i, errGeneric)
		return
	}
	if !entered {
		respondEphemeral(s, i, "❌ You’ve already entered today’s lottery.")
		return
	}
	zone, _ := time.Now().Zone()
	respondEphemeral(s, i, fmt.Sprintf("🎟️ You’re in! Lottery ticket bought for %d coins. Draw every day at 00:00 %s.", cost, zone))
}

func (t *gambleTables) history(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, uid string, limit int) {
	txs, err := t.b.Economy.GetTransactions(ctx, uid, limit)
	if err != nil {
		log.Printf("Error reading history for %s: %v", uid, err)
		respondEphemeral(s, i, errGeneric)
		return
	}
	if len(txs) == 0 {
		respondEphemeral(s, i, "You have no transaction history yet.")
		return
	}
	lines := make([]string, len(txs))
	for n, tx := range txs {
		lines[n] = fmt.Sprintf("<t:%d:f>  `%+d`  %s", tx.Timestamp, tx.Delta, tx.Reason)
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "📜 Your Recent Transactions",
		Description: strings.Join(lines, "\n"),
		Color:       0x3498DB,
	}, true)
}

func (t *gambleTables) winrate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, uid string) {
	counts, err := t.b.Economy.GetWinLossCounts(ctx, uid)
	if err != nil {
		log.Printf("Error reading win rates for %s: %v", uid, err)
		respondEphemeral(s, i, errGeneric)
		return
	}
	var lines []string
	for _, c := range counts {
		total := c.Wins + c.Losses
		if total == 0 {
			continue
		}
		pct := float64(c.Wins) / float64(total) * 100
		lines = append(lines, fmt.Sprintf("**%s** — %d/%d wins (%.1f%%)", c.Game, c.Wins, total, pct))
	}
	if len(lines) == 0 {
		respondEphemeral(s, i, "No gambling activity yet.")
		return
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "📊 Your Win Rates",
		Description: strings.Join(lines, "\n"),
		Color:       0x9B59B6,
	}, true)
}
