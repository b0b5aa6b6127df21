package feishu

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/memohai/feishubridge/internal/channel"
	"github.com/memohai/feishubridge/internal/media"
	"github.com/memohai/feishubridge/internal/metrics"
)

// Type is the Feishu channel type.
const Type channel.ChannelType = "feishu"

const defaultFetchTimeout = 30 * time.Second

// Options wires the adapter's collaborators. Zero values get defaults.
type Options struct {
	Accounts      AccountResolver
	Scratch       *media.Scratch
	HTTPClient    *http.Client
	Metrics       *metrics.Metrics
	MaxMediaBytes int64
}

// FeishuAdapter sends replies and moves media through the Feishu IM API.
// It is safe for concurrent use; each reply sequence gets its own dispatcher.
type FeishuAdapter struct {
	logger        *slog.Logger
	accounts      AccountResolver
	clients       *clientCache
	scratch       *media.Scratch
	httpClient    *http.Client
	metrics       *metrics.Metrics
	maxMediaBytes int64
}

// NewFeishuAdapter creates a FeishuAdapter with the given logger.
func NewFeishuAdapter(log *slog.Logger, opts Options) *FeishuAdapter {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("adapter", "feishu"))
	accounts := opts.Accounts
	if accounts == nil {
		accounts = NewConfigAccountResolver(nil)
	}
	scratch := opts.Scratch
	if scratch == nil {
		scratch = media.NewScratch("")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &FeishuAdapter{
		logger:        log,
		accounts:      accounts,
		clients:       newClientCache(newLarkClientFactory(log, httpClient)),
		scratch:       scratch,
		httpClient:    httpClient,
		metrics:       opts.Metrics,
		maxMediaBytes: media.EffectiveLimit(opts.MaxMediaBytes),
	}
}

// Type returns the Feishu channel type.
func (a *FeishuAdapter) Type() channel.ChannelType {
	return Type
}

// Descriptor returns the Feishu channel metadata.
func (a *FeishuAdapter) Descriptor() channel.Descriptor {
	return channel.Descriptor{
		Type:        Type,
		DisplayName: "Feishu",
		Capabilities: channel.ChannelCapabilities{
			Text:     true,
			Markdown: true,
			Card:     true,
			Media:    true,
			Reply:    true,
			Mentions: true,
			Typing:   true,
		},
		OutboundPolicy: channel.NormalizeOutboundPolicy(channel.OutboundPolicy{}),
	}
}

// OpenReplyDispatcher implements channel.ReplyDispatcherFactory.
func (a *FeishuAdapter) OpenReplyDispatcher(_ context.Context, target channel.ReplyTarget) (channel.ReplyDispatcher, error) {
	return a.NewReplyDispatcher(ReplyDispatcherOptions{
		AccountID:        target.AccountID,
		To:               target.To,
		ReplyToMessageID: target.ReplyToMessageID,
		Mentions:         target.Mentions,
	})
}

// account resolves accountID and returns the cached client bound to it.
func (a *FeishuAdapter) account(accountID string) (Account, *imClient, error) {
	acct := a.accounts.ResolveAccount(accountID)
	if !acct.Configured {
		return acct, nil, accountNotConfigured(acct.ID)
	}
	return acct, a.clients.get(acct), nil
}

func (a *FeishuAdapter) observe(op string, err error) {
	a.metrics.ObserveRemoteCall(op, err)
}
