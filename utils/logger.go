package utils

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

var (
	session   *discordgo.Session
	channelID string

	levelPrefix = map[string]func(a ...interface{}) string{
		"INFO":  color.New(color.FgGreen).SprintFunc(),
		"WARN":  color.New(color.FgYellow).SprintFunc(),
		"ERROR": color.New(color.FgRed, color.Bold).SprintFunc(),
	}
)

// InitLogger initializes the logger with a Discord session.
func InitLogger(s *discordgo.Session, adminChannelID string) {
	session = s
	channelID = adminChannelID
	if channelID == "" {
		log.Println("Warning: admin_channel_id is not set. Logging to channel will be disabled.")
	}
}

// Console writes a level-coloured line to the process log.
func Console(level, module, operation, details string) {
	prefix := "[" + level + "]"
	if paint, ok := levelPrefix[level]; ok {
		prefix = paint(prefix)
	}
	log.Printf("%s Module: %s, Operation: %s, Details: %s", prefix, module, operation, details)
}

// Log sends a log message to the admin channel.
func Log(level, module, operation, details string) {
	Console(level, module, operation, details)
	if session == nil || channelID == "" {
		return
	}

	var embedColor int
	switch level {
	case "INFO":
		embedColor = ColorInfo
	case "WARN":
		embedColor = ColorWarn
	case "ERROR":
		embedColor = ColorError
	default:
		embedColor = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     embedColor,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: details,
			},
		},
	}

	_, err := session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		log.Printf("Error sending log message to Discord: %v", err)
	}
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}
