package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"memer/bot"
	"memer/economy"
	"memer/utils"

	"github.com/bwmarrin/discordgo"
)

const storePrefix = "store"

// HandleStore opens the store menu for the invoking user.
func HandleStore(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		uid := utils.InteractionUser(i).ID
		id := func(action string) string { return storePrefix + ":" + action + ":" + uid }
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "🛒 Welcome to the store!",
				Flags:   discordgo.MessageFlagsEphemeral,
				Components: []discordgo.MessageComponent{
					row(
						button("Balance", id("balance"), discordgo.SecondaryButton, false),
						button(fmt.Sprintf("Buy Skipcooldown (%d)", economy.ShopItems["skipcooldown"]), id("skipcooldown"), discordgo.PrimaryButton, false),
						button(fmt.Sprintf("Buy Premium-Sub (%d)", economy.ShopItems["premium-sub"]), id("premium-sub"), discordgo.PrimaryButton, false),
					),
				},
			},
		})
		if err != nil {
			log.Printf("Error opening store: %v", err)
		}
	}
}

// HandleStoreComponent serves the store buttons. Ids are store:<action>:<owner>.
func HandleStoreComponent(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		parts := strings.SplitN(i.MessageComponentData().CustomID, ":", 3)
		if len(parts) != 3 {
			respondEphemeral(s, i, errGeneric)
			return
		}
		action, owner := parts[1], parts[2]
		uid := utils.InteractionUser(i).ID
		if uid != owner {
			respondEphemeral(s, i, "❌ This store isn't for you.")
			return
		}

		ctx, cancel := contextFor(b)
		defer cancel()

		if action == "balance" {
			bal, err := b.Economy.GetBalance(ctx, uid)
			if err != nil {
				log.Printf("Error reading balance for %s: %v", uid, err)
				respondEphemeral(s, i, errGeneric)
				return
			}
			respondEphemeral(s, i, fmt.Sprintf("💰 You have %d coins.", bal))
			return
		}

		cost, bal, err := economy.Buy(ctx, b.Economy, uid, action)
		var funds *economy.InsufficientFundsError
		switch {
		case errors.As(err, &funds):
			respondEphemeral(s, i, fmt.Sprintf("❌ Need %d coins, but have %d.", funds.Need, funds.Have))
		case err != nil:
			utils.Error("Store", "Buy", fmt.Sprintf("%s for %s: %v", action, uid, err))
			respondEphemeral(s, i, errGeneric)
		default:
			utils.Info("Store", "Buy", fmt.Sprintf("%s bought %s for %d", uid, action, cost))
			respondEphemeral(s, i, fmt.Sprintf("✅ Bought **%s** for %d coins. You now have %d coins.", action, cost, bal))
		}
	}
}
