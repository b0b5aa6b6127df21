package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath          = "config.toml"
	DefaultHTTPAddr            = ":8080"
	DefaultAccountID           = "default"
	DefaultRegion              = "feishu"
	DefaultTextChunkLimit      = 4000
	DefaultFetchTimeoutSeconds = 30
	DefaultMediaMaxBytes       = 30 * 1024 * 1024
)

type Config struct {
	Log      LogConfig                `toml:"log" yaml:"log"`
	Server   ServerConfig             `toml:"server" yaml:"server"`
	Media    MediaConfig              `toml:"media" yaml:"media"`
	Reply    ReplyConfig              `toml:"reply" yaml:"reply"`
	Accounts map[string]AccountConfig `toml:"accounts" yaml:"accounts" validate:"dive"`
}

type LogConfig struct {
	Level      string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `toml:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	Output     string `toml:"output" yaml:"output" validate:"omitempty,oneof=stdout file both"`
	File       string `toml:"file" yaml:"file" validate:"required_if=Output file,required_if=Output both"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" validate:"required"`
}

type MediaConfig struct {
	ScratchDir          string `toml:"scratch_dir" yaml:"scratch_dir"`
	MaxBytes            int64  `toml:"max_bytes" yaml:"max_bytes" validate:"gte=0"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds" validate:"gte=0"`
}

type ReplyConfig struct {
	HumanDelayMode  string `toml:"human_delay_mode" yaml:"human_delay_mode" validate:"omitempty,oneof=off natural custom"`
	HumanDelayMinMs int    `toml:"human_delay_min_ms" yaml:"human_delay_min_ms" validate:"gte=0"`
	HumanDelayMaxMs int    `toml:"human_delay_max_ms" yaml:"human_delay_max_ms" validate:"gte=0"`
}

type AccountConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	AppID          string `toml:"app_id" yaml:"app_id"`
	AppSecret      string `toml:"app_secret" yaml:"app_secret"`
	Region         string `toml:"region" yaml:"region" validate:"omitempty,oneof=feishu cn china lark global intl international"`
	RenderMode     string `toml:"render_mode" yaml:"render_mode" validate:"omitempty,oneof=auto raw card"`
	TextChunkLimit int    `toml:"text_chunk_limit" yaml:"text_chunk_limit" validate:"gte=0"`
	ChunkMode      string `toml:"chunk_mode" yaml:"chunk_mode" validate:"omitempty,oneof=text markdown"`
	TableMode      string `toml:"table_mode" yaml:"table_mode" validate:"omitempty,oneof=off bullets code"`
}

// Configured reports whether the account can talk to the platform.
func (a AccountConfig) Configured() bool {
	return a.Enabled && strings.TrimSpace(a.AppID) != "" && strings.TrimSpace(a.AppSecret) != ""
}

func defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Media: MediaConfig{
			MaxBytes:            DefaultMediaMaxBytes,
			FetchTimeoutSeconds: DefaultFetchTimeoutSeconds,
		},
		Reply: ReplyConfig{
			HumanDelayMode: "off",
		},
		Accounts: map[string]AccountConfig{},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode toml config: %w", err)
		}
	}

	cfg.canonicalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// canonicalize trims and lowercases the account enum fields so that
// validation matches the case-insensitive account resolver.
func (c *Config) canonicalize() {
	for id, acct := range c.Accounts {
		acct.Region = strings.ToLower(strings.TrimSpace(acct.Region))
		acct.RenderMode = strings.ToLower(strings.TrimSpace(acct.RenderMode))
		acct.ChunkMode = strings.ToLower(strings.TrimSpace(acct.ChunkMode))
		acct.TableMode = strings.ToLower(strings.TrimSpace(acct.TableMode))
		c.Accounts[id] = acct
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum fields and numeric bounds.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Reply.HumanDelayMode == "custom" && c.Reply.HumanDelayMaxMs < c.Reply.HumanDelayMinMs {
		return fmt.Errorf("invalid config: reply.human_delay_max_ms must be >= human_delay_min_ms")
	}
	return nil
}
