package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/memohai/feishubridge/internal/channel"
	"github.com/memohai/feishubridge/internal/channel/adapters/feishu"
	"github.com/memohai/feishubridge/internal/config"
	"github.com/memohai/feishubridge/internal/logger"
	"github.com/memohai/feishubridge/internal/media"
	"github.com/memohai/feishubridge/internal/metrics"
)

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) (*slog.Logger, error) {
	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.L, nil
}

func provideScratch(cfg config.Config) *media.Scratch {
	return media.NewScratch(cfg.Media.ScratchDir)
}

func provideFeishuAdapter(log *slog.Logger, cfg config.Config, scratch *media.Scratch, m *metrics.Metrics) *feishu.FeishuAdapter {
	timeout := time.Duration(cfg.Media.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeoutSeconds * time.Second
	}
	return feishu.NewFeishuAdapter(log, feishu.Options{
		Accounts:      feishu.NewConfigAccountResolver(cfg.Accounts),
		Scratch:       scratch,
		HTTPClient:    &http.Client{Timeout: timeout},
		Metrics:       m,
		MaxMediaBytes: cfg.Media.MaxBytes,
	})
}

func provideChannelRegistry(adapter *feishu.FeishuAdapter) *channel.Registry {
	registry := channel.NewRegistry()
	registry.MustRegister(adapter)
	return registry
}

func provideReplySequencer(log *slog.Logger, cfg config.Config) *channel.ReplySequencer {
	return channel.NewReplySequencer(log, channel.HumanDelay{
		Mode:  channel.ParseHumanDelayMode(cfg.Reply.HumanDelayMode),
		MinMs: cfg.Reply.HumanDelayMinMs,
		MaxMs: cfg.Reply.HumanDelayMaxMs,
	})
}

// cliEnv is the non-server wiring shared by send and download.
type cliEnv struct {
	cfg       config.Config
	logger    *slog.Logger
	adapter   *feishu.FeishuAdapter
	sequencer *channel.ReplySequencer
}

func newCLIEnv() (*cliEnv, error) {
	cfg, err := provideConfig()
	if err != nil {
		return nil, err
	}
	log, err := provideLogger(cfg)
	if err != nil {
		return nil, err
	}
	adapter := provideFeishuAdapter(log, cfg, provideScratch(cfg), nil)
	return &cliEnv{
		cfg:       cfg,
		logger:    log,
		adapter:   adapter,
		sequencer: provideReplySequencer(log, cfg),
	}, nil
}
