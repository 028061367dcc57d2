package models

import "time"

// CommandsConfig holds the permission settings under the "commands" key.
type CommandsConfig struct {
	Auth AuthConfig `json:"auth" mapstructure:"auth"`
}

// AuthConfig lists privileged users and roles.
type AuthConfig struct {
	Developers  []string `json:"developers" mapstructure:"developers"`
	AdminsRoles []string `json:"adminsRoles" mapstructure:"adminsRoles"`
	Guest       []string `json:"guest" mapstructure:"guest"`
}

// CacheConfig is the "meme_cache" section.
type CacheConfig struct {
	RAMCacheTTL         time.Duration `json:"ram_cache_ttl" mapstructure:"ram_cache_ttl"`
	DiskCacheTTL        time.Duration `json:"disk_cache_ttl" mapstructure:"disk_cache_ttl"`
	KeywordDisableAfter int           `json:"keyword_disable_after" mapstructure:"keyword_disable_after"`
	KeywordDisableTTL   time.Duration `json:"keyword_disable_ttl" mapstructure:"keyword_disable_ttl"`
	WarmupInterval      time.Duration `json:"warmup_interval" mapstructure:"warmup_interval"`
	RefreshInterval     time.Duration `json:"refresh_interval" mapstructure:"refresh_interval"`
	FlushInterval       time.Duration `json:"flush_interval" mapstructure:"flush_interval"`
	MaxConcurrent       int           `json:"max_concurrent" mapstructure:"max_concurrent"`
	FetchConcurrency    int           `json:"fetch_concurrency" mapstructure:"fetch_concurrency"`
	ListingLimit        int           `json:"listing_limit" mapstructure:"listing_limit"`
	RecentTTL           time.Duration `json:"recent_ttl" mapstructure:"recent_ttl"`
	RecentSize          int           `json:"recent_size" mapstructure:"recent_size"`
	FallbackDir         string        `json:"fallback_dir" mapstructure:"fallback_dir"`
	DBPath              string        `json:"db_path" mapstructure:"db_path"`
}

// RedditConfig is the "reddit" section.
type RedditConfig struct {
	ClientID          string        `json:"client_id" mapstructure:"client_id"`
	ClientSecret      string        `json:"client_secret" mapstructure:"client_secret"`
	UserAgent         string        `json:"user_agent" mapstructure:"user_agent"`
	Listings          []string      `json:"listings" mapstructure:"listings"`
	RetryAttempts     int           `json:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBase         time.Duration `json:"retry_base" mapstructure:"retry_base"`
	RequestsPerSecond float64       `json:"requests_per_second" mapstructure:"requests_per_second"`
}

// RewardsConfig tunes the meme economy.
type RewardsConfig struct {
	CoinName     string `json:"coin_name" mapstructure:"coin_name"`
	BaseReward   int64  `json:"base_reward" mapstructure:"base_reward"`
	KeywordBonus int64  `json:"keyword_bonus" mapstructure:"keyword_bonus"`
	DailyBonus   int64  `json:"daily_bonus" mapstructure:"daily_bonus"`
	LotteryCost  int64  `json:"lottery_cost" mapstructure:"lottery_cost"`
	LotteryPrize int64  `json:"lottery_prize" mapstructure:"lottery_prize"`
	DBPath       string `json:"db_path" mapstructure:"db_path"`
}

// VoiceConfig tunes the audio subsystem.
type VoiceConfig struct {
	SoundFolder      string        `json:"sound_folder" mapstructure:"sound_folder"`
	BeepFolder       string        `json:"beep_folder" mapstructure:"beep_folder"`
	EntranceData     string        `json:"entrance_data" mapstructure:"entrance_data"`
	ChannelCooldown  time.Duration `json:"channel_cooldown" mapstructure:"channel_cooldown"`
	UserCooldown     time.Duration `json:"user_cooldown" mapstructure:"user_cooldown"`
	MaxFailures      int           `json:"max_failures" mapstructure:"max_failures"`
	MaxTotalFailures int           `json:"max_total_failures" mapstructure:"max_total_failures"`
	FailureCooldown  time.Duration `json:"failure_cooldown" mapstructure:"failure_cooldown"`
	IdleTimeout      time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	AudioCacheSize   int           `json:"audio_cache_size" mapstructure:"audio_cache_size"`
}

// Settings is the fully decoded configuration.
type Settings struct {
	Cache   CacheConfig   `mapstructure:"meme_cache"`
	Reddit  RedditConfig  `mapstructure:"reddit"`
	Rewards RewardsConfig `mapstructure:"rewards"`
	Voice   VoiceConfig   `mapstructure:"voice"`

	StatsDB        string `mapstructure:"stats_db"`
	StatsFile      string `mapstructure:"stats_file"`
	StatsAddr      string `mapstructure:"stats_addr"`
	SubredditsFile string `mapstructure:"subreddits_file"`
	DevGuildID     string `mapstructure:"dev_guild_id"`
	DisableGlobal  bool   `mapstructure:"disable_global_commands"`
	AdminChannelID string `mapstructure:"admin_channel_id"`
}

// SubredditLists holds one guild's configured subreddits.
type SubredditLists struct {
	SFW  []string `json:"sfw"`
	NSFW []string `json:"nsfw"`
}

// Subreddit list kinds.
const (
	KindSFW  = "sfw"
	KindNSFW = "nsfw"
)
