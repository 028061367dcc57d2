package config

import (
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"
	"time"

	"memer/models"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Overlay JSON files merged on top of config.yaml, in order.
var overlays = []string{"cache", "rewards"}

// LoadConfig loads configuration from several sources:
// 1. .env (environment variables)
// 2. config.yaml (base configuration)
// 3. config/cache.json and config/rewards.json (merged)
// Environment variables override file values with the same key.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found, skipping.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
	bindEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("config.yaml not found, using environment variables and defaults.")
		} else {
			panic(fmt.Errorf("fatal error reading config.yaml: %w", err))
		}
	}

	for _, name := range overlays {
		viper.SetConfigName(name)
		viper.SetConfigType("json")
		viper.AddConfigPath("./config")

		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("config/%s.json not found, skipping merge.", name)
			} else {
				panic(fmt.Errorf("fatal error merging config/%s.json: %w", name, err))
			}
		}
	}

	// Point viper back at config.yaml so WatchConfig follows the base file.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
}

// Load decodes the current viper state into Settings.
func Load() (models.Settings, error) {
	var s models.Settings
	if err := viper.Unmarshal(&s, viper.DecodeHook(DecodeHook())); err != nil {
		return s, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// Watch reloads Settings whenever config.yaml changes on disk.
func Watch(onChange func(models.Settings)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s (%s)", e.Name, e.Op)
		s, err := Load()
		if err != nil {
			log.Printf("Error reloading config: %v", err)
			return
		}
		onChange(s)
	})
	viper.WatchConfig()
}

// DecodeHook lets durations be written as plain seconds or as Go duration strings.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case string:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				return time.Duration(n * float64(time.Second)), nil
			}
		}
		return data, nil
	}
}

func setDefaults() {
	viper.SetDefault("meme_cache.ram_cache_ttl", 900)
	viper.SetDefault("meme_cache.disk_cache_ttl", 3600)
	viper.SetDefault("meme_cache.keyword_disable_after", 1)
	viper.SetDefault("meme_cache.keyword_disable_ttl", 900)
	viper.SetDefault("meme_cache.warmup_interval", 600)
	viper.SetDefault("meme_cache.refresh_interval", 600)
	viper.SetDefault("meme_cache.flush_interval", 3600)
	viper.SetDefault("meme_cache.max_concurrent", 5)
	viper.SetDefault("meme_cache.fetch_concurrency", 2)
	viper.SetDefault("meme_cache.listing_limit", 75)
	viper.SetDefault("meme_cache.recent_ttl", 6*60*60)
	viper.SetDefault("meme_cache.recent_size", 10000)
	viper.SetDefault("meme_cache.fallback_dir", "")
	viper.SetDefault("meme_cache.db_path", "data/meme_cache.db")

	viper.SetDefault("reddit.client_id", "")
	viper.SetDefault("reddit.client_secret", "")
	viper.SetDefault("reddit.user_agent", "memer-bot/1.0")
	viper.SetDefault("reddit.listings", []string{"hot", "new", "top"})
	viper.SetDefault("reddit.retry_attempts", 3)
	viper.SetDefault("reddit.retry_base", 1)
	viper.SetDefault("reddit.requests_per_second", 1.0)

	viper.SetDefault("rewards.coin_name", "coins")
	viper.SetDefault("rewards.base_reward", 10)
	viper.SetDefault("rewards.keyword_bonus", 5)
	viper.SetDefault("rewards.daily_bonus", 50)
	viper.SetDefault("rewards.lottery_cost", 10)
	viper.SetDefault("rewards.lottery_prize", 100)
	viper.SetDefault("rewards.db_path", "data/economy.db")

	viper.SetDefault("voice.sound_folder", "./sounds")
	viper.SetDefault("voice.beep_folder", "./sounds/beeps")
	viper.SetDefault("voice.entrance_data", "./data/entrance_sounds.json")
	viper.SetDefault("voice.channel_cooldown", 10)
	viper.SetDefault("voice.user_cooldown", 10)
	viper.SetDefault("voice.max_failures", 2)
	viper.SetDefault("voice.max_total_failures", 5)
	viper.SetDefault("voice.failure_cooldown", 60)
	viper.SetDefault("voice.idle_timeout", 600)
	viper.SetDefault("voice.audio_cache_size", 100)

	viper.SetDefault("stats_db", "data/stats.db")
	viper.SetDefault("stats_file", "data/stats.json")
	viper.SetDefault("stats_addr", "0.0.0.0:8080")
	viper.SetDefault("subreddits_file", "data/guild_subreddits.json")
	viper.SetDefault("dev_guild_id", "")
	viper.SetDefault("disable_global_commands", false)
	viper.SetDefault("admin_channel_id", "")
}

// bindEnv maps the historical environment variable names onto config keys.
func bindEnv() {
	binds := map[string]string{
		"discord_token":         "DISCORD_TOKEN",
		"meme_cache.db_path":    "MEME_CACHE_DB",
		"stats_db":              "MEME_STATS_DB",
		"rewards.db_path":       "ECONOMY_DB",
		"rewards.coin_name":     "COIN_NAME",
		"rewards.base_reward":   "BASE_REWARD",
		"rewards.keyword_bonus": "KEYWORD_BONUS",
		"rewards.daily_bonus":   "DAILY_BONUS",
		"reddit.client_id":      "REDDIT_CLIENT_ID",
		"reddit.client_secret":  "REDDIT_CLIENT_SECRET",
		"reddit.user_agent":     "REDDIT_USER_AGENT",
		"admin_channel_id":      "ADMIN_CHANNEL_ID",
	}
	for key, env := range binds {
		if err := viper.BindEnv(key, env); err != nil {
			log.Printf("Could not bind %s to %s: %v", env, key, err)
		}
	}
}
