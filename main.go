package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"memer/bot"
	"memer/command"
	"memer/handlers"

	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memer",
	Short: "memer - Discord meme bot",
	RunE:  runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot (default)",
	RunE:  runBot,
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Inspect or remove registered slash commands",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered slash commands",
	RunE:  runList,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete registered slash commands",
	RunE:  runClear,
}

var guildFlag string

func init() {
	commandsCmd.PersistentFlags().StringVar(&guildFlag, "guild", "", "Guild ID (global commands when empty)")
	commandsCmd.AddCommand(listCmd, clearCmd)
	rootCmd.AddCommand(runCmd, commandsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := bot.Run(handlers.Register, command.GetCommandDefinitions()); err != nil {
		log.Printf("Bot exited: %v", err)
		return err
	}
	return nil
}

func scope(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild " + guildID
}

func runList(cmd *cobra.Command, args []string) error {
	s, appID, err := bot.NewRESTSession()
	if err != nil {
		return err
	}
	cmds, err := bot.ListCommands(s, appID, guildFlag)
	if err != nil {
		return err
	}
	printCommands(cmd.OutOrStdout(), guildFlag, cmds)
	return nil
}

func printCommands(w io.Writer, guildID string, cmds []*discordgo.ApplicationCommand) {
	fmt.Fprintf(w, "%d %s commands\n", len(cmds), scope(guildID))
	name := color.New(color.FgCyan, color.Bold).SprintFunc()
	for _, c := range cmds {
		fmt.Fprintf(w, "  /%-14s %s  %s\n", name(c.Name), color.HiBlackString(c.ID), c.Description)
	}
}

func runClear(cmd *cobra.Command, args []string) error {
	s, appID, err := bot.NewRESTSession()
	if err != nil {
		return err
	}
	n, err := bot.ClearCommands(s, appID, guildFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d %s commands\n", color.GreenString("✔"), n, scope(guildFlag))
	return nil
}
