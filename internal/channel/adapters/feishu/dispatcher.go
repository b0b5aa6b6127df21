package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/memohai/feishubridge/internal/channel"
)

// ReplyDispatcherOptions addresses one reply sequence.
type ReplyDispatcherOptions struct {
	AccountID        string
	To               string
	ReplyToMessageID string
	Mentions         []channel.Mention
}

// ReplyDispatcher delivers one reply sequence to Feishu and drives the typing
// indicator on the message being answered. Create one per reply.
type ReplyDispatcher struct {
	adapter  *FeishuAdapter
	logger   *slog.Logger
	account  Account
	target   Target
	mentions []channel.Mention
	typing   typingGateway

	mu      sync.Mutex
	started bool
	handle  *typingHandle
}

var _ channel.ReplyDispatcher = (*ReplyDispatcher)(nil)

// NewReplyDispatcher resolves the account and binds a dispatcher to the target.
func (a *FeishuAdapter) NewReplyDispatcher(opts ReplyDispatcherOptions) (*ReplyDispatcher, error) {
	acct, client, err := a.account(opts.AccountID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.To) == "" && strings.TrimSpace(opts.ReplyToMessageID) == "" {
		return nil, ErrInvalidTarget
	}
	return &ReplyDispatcher{
		adapter: a,
		logger: a.logger.With(
			slog.String("account_id", acct.ID),
			slog.String("to", opts.To),
		),
		account: acct,
		target: Target{
			AccountID:        acct.ID,
			To:               strings.TrimSpace(opts.To),
			ReplyToMessageID: strings.TrimSpace(opts.ReplyToMessageID),
		},
		mentions: opts.Mentions,
		typing:   &larkTypingGateway{api: client.Reaction},
	}, nil
}

// OnReplyStart shows the typing indicator on the message being answered.
// Failures are logged; only the first call has any effect.
func (d *ReplyDispatcher) OnReplyStart(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	if d.target.ReplyToMessageID == "" {
		return
	}
	handle, err := addTypingIndicator(ctx, d.typing, d.target.ReplyToMessageID)
	if err != nil {
		d.adapter.metrics.TypingFailed("add")
		d.logger.Warn("add typing indicator failed",
			slog.String("message_id", d.target.ReplyToMessageID),
			slog.Any("error", err))
		return
	}
	d.handle = handle
}

// Deliver sends one fragment: media items first when there are any,
// otherwise the text as cards or posts, chunk by chunk.
func (d *ReplyDispatcher) Deliver(ctx context.Context, payload channel.ReplyPayload, info channel.DeliverInfo) error {
	text := payload.Text
	mediaURLs := payload.MediaList()
	if len(mediaURLs) == 0 && channel.HasMediaToken(text) {
		extracted := channel.ExtractMediaTokens(text)
		if len(extracted.MediaURLs) > 0 {
			text = extracted.Text
			mediaURLs = extracted.MediaURLs
		}
	}

	if len(mediaURLs) > 0 {
		return d.deliverMedia(ctx, text, mediaURLs, info)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return d.deliverText(ctx, text)
}

func (d *ReplyDispatcher) deliverMedia(ctx context.Context, text string, mediaURLs []string, info channel.DeliverInfo) error {
	if strings.TrimSpace(text) != "" {
		if _, err := d.adapter.SendText(ctx, d.target, strings.TrimSpace(text), d.mentions); err != nil {
			return err
		}
		d.adapter.metrics.ChunkDelivered(d.account.ID, string(channel.RenderModeRaw))
	}
	for i, mediaURL := range mediaURLs {
		_, err := d.adapter.SendMedia(ctx, SendMediaInput{
			AccountID:        d.target.AccountID,
			To:               d.target.To,
			MediaURL:         mediaURL,
			ReplyToMessageID: d.target.ReplyToMessageID,
		})
		if err == nil {
			continue
		}
		d.adapter.metrics.MediaItemFailed(d.account.ID)
		d.logger.Error("send media item failed",
			slog.String("kind", string(info.Kind)),
			slog.Int("index", i),
			slog.String("media_url", mediaURL),
			slog.Any("error", err))
		if _, perr := d.adapter.SendText(ctx, d.target, mediaFailurePlaceholder(mediaURL), nil); perr != nil {
			d.logger.Error("send media failure placeholder failed", slog.Int("index", i), slog.Any("error", perr))
		}
	}
	return nil
}

func (d *ReplyDispatcher) deliverText(ctx context.Context, text string) error {
	mode := d.account.RenderMode
	if mode == "" || mode == channel.RenderModeAuto {
		mode = channel.RenderModeRaw
		if channel.ShouldRenderCard(text) {
			mode = channel.RenderModeCard
		}
	}
	if mode == channel.RenderModeRaw {
		text = channel.ConvertMarkdownTables(text, d.account.TableMode)
	}
	for i, chunk := range d.account.OutboundPolicy().Chunk(text) {
		var mentions []channel.Mention
		if i == 0 {
			mentions = d.mentions
		}
		var err error
		if mode == channel.RenderModeCard {
			_, err = d.adapter.SendCard(ctx, d.target, chunk, mentions)
		} else {
			_, err = d.adapter.SendText(ctx, d.target, chunk, mentions)
		}
		if err != nil {
			return fmt.Errorf("send chunk %d: %w", i+1, err)
		}
		d.adapter.metrics.ChunkDelivered(d.account.ID, string(mode))
	}
	return nil
}

// OnIdle removes the typing indicator if one is held. The handle is
// dropped before the remote call, so removal happens at most once.
func (d *ReplyDispatcher) OnIdle(ctx context.Context) {
	d.mu.Lock()
	handle := d.handle
	d.handle = nil
	d.mu.Unlock()
	if handle == nil {
		return
	}
	if err := removeTypingIndicator(ctx, d.typing, handle); err != nil {
		d.adapter.metrics.TypingFailed("remove")
		d.logger.Warn("remove typing indicator failed",
			slog.String("message_id", handle.messageID),
			slog.Any("error", err))
	}
}

// OnError logs a failed fragment and clears the typing indicator.
func (d *ReplyDispatcher) OnError(ctx context.Context, err error, info channel.DeliverInfo) {
	d.logger.Error("reply delivery failed",
		slog.String("kind", string(info.Kind)),
		slog.Any("error", err))
	d.OnIdle(ctx)
}

func mediaFailurePlaceholder(mediaURL string) string {
	name := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	return fmt.Sprintf("⚠️ Failed to send attachment: %s", name)
}
