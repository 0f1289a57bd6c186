// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling only
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
	// MessageCacheSize bounds the cache FetchMessage reads from.
	MessageCacheSize int           `yaml:"message_cache_size"`
	MessageCacheTTL  time.Duration `yaml:"message_cache_ttl"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ConversationConfig tunes the per-user input interception.
type ConversationConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	EditTimeout     time.Duration `yaml:"edit_timeout"`
}

type SettingsConfig struct {
	DataDir       string         `yaml:"data_dir"`
	MaxSplitSize  int64          `yaml:"max_split_size"`
	PremiumUser   bool           `yaml:"premium_user"`
	WriteWorkers  int            `yaml:"write_workers"`
	Defaults      map[string]any `yaml:"defaults"`
	ThumbnailSize int            `yaml:"thumbnail_size"`
}

type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

type Config struct {
	Bot          BotConfig          `yaml:"bot"`
	Log          LogConfig          `yaml:"log"`
	Admin        AdminConfig        `yaml:"admin"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Conversation ConversationConfig `yaml:"conversation"`
	Settings     SettingsConfig     `yaml:"settings"`
	Events       EventsConfig       `yaml:"events"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates required fields.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Conversation.PollInterval >= cfg.Conversation.Timeout {
		return nil, errors.New("conversation.poll_interval must be shorter than conversation.timeout")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.MessageCacheSize <= 0 {
		cfg.Bot.MessageCacheSize = 10_000
	}
	if cfg.Bot.MessageCacheTTL <= 0 {
		cfg.Bot.MessageCacheTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	c := &cfg.Conversation
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 8 * time.Second
	}
	if c.EditTimeout <= 0 {
		c.EditTimeout = 5 * time.Second
	}

	s := &cfg.Settings
	if s.DataDir == "" {
		s.DataDir = "."
	}
	if s.MaxSplitSize <= 0 {
		// 2 GiB for bots, 4 GiB with a premium user session
		s.MaxSplitSize = 2097152000
		if s.PremiumUser {
			s.MaxSplitSize = 4194304000
		}
	}
	if s.WriteWorkers <= 0 {
		s.WriteWorkers = 4
	}
	if s.ThumbnailSize <= 0 {
		s.ThumbnailSize = 320
	}
	if s.Defaults == nil {
		s.Defaults = map[string]any{}
	}

	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "usersettings"
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
