package channel

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// HumanDelayMode selects the pause inserted between consecutive block replies.
type HumanDelayMode string

const (
	HumanDelayOff     HumanDelayMode = "off"
	HumanDelayNatural HumanDelayMode = "natural"
	HumanDelayCustom  HumanDelayMode = "custom"
)

const (
	naturalDelayMinMs = 800
	naturalDelayMaxMs = 2500
)

// HumanDelay configures a randomized pause between block fragments.
type HumanDelay struct {
	Mode  HumanDelayMode
	MinMs int
	MaxMs int
}

// ParseHumanDelayMode maps config text to a mode, defaulting to off.
func ParseHumanDelayMode(raw string) HumanDelayMode {
	switch HumanDelayMode(strings.ToLower(strings.TrimSpace(raw))) {
	case HumanDelayNatural:
		return HumanDelayNatural
	case HumanDelayCustom:
		return HumanDelayCustom
	default:
		return HumanDelayOff
	}
}

// Next returns the pause to take before the next block fragment.
func (h HumanDelay) Next() time.Duration {
	var lo, hi int
	switch h.Mode {
	case HumanDelayNatural:
		lo, hi = naturalDelayMinMs, naturalDelayMaxMs
	case HumanDelayCustom:
		lo, hi = max(h.MinMs, 0), max(h.MaxMs, 0)
	default:
		return 0
	}
	if hi < lo {
		hi = lo
	}
	ms := lo
	if hi > lo {
		ms += rand.IntN(hi - lo + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

// ReplySequencer drives one ReplyDispatcher through a stream of fragments.
type ReplySequencer struct {
	logger *slog.Logger
	delay  HumanDelay
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewReplySequencer creates a sequencer with the given delay policy.
func NewReplySequencer(log *slog.Logger, delay HumanDelay) *ReplySequencer {
	if log == nil {
		log = slog.Default()
	}
	return &ReplySequencer{
		logger: log.With(slog.String("service", "reply_sequencer")),
		delay:  delay,
		sleep:  sleepContext,
	}
}

// Run delivers fragments to dispatcher one at a time, in order. Delivery
// errors go to OnError and do not stop the sequence; they are returned
// joined. OnIdle is always called before Run returns. Once ctx is done no
// further fragments are started.
func (s *ReplySequencer) Run(ctx context.Context, dispatcher ReplyDispatcher, fragments iter.Seq[ReplyFragment]) error {
	dispatcher.OnReplyStart(ctx)
	defer dispatcher.OnIdle(context.WithoutCancel(ctx))

	var errs []error
	previousBlock := false
	for fragment := range fragments {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		kind := fragment.Kind
		if kind == "" {
			kind = ReplyKindFinal
		}
		if kind == ReplyKindBlock && previousBlock {
			if err := s.sleep(ctx, s.delay.Next()); err != nil {
				errs = append(errs, err)
				break
			}
		}
		previousBlock = kind == ReplyKindBlock

		info := DeliverInfo{Kind: kind}
		if err := dispatcher.Deliver(ctx, fragment.Payload, info); err != nil {
			s.logger.Warn("deliver fragment failed",
				slog.String("kind", string(kind)),
				slog.Any("error", err))
			dispatcher.OnError(ctx, err, info)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fragments adapts a slice to the sequence Run consumes.
func Fragments(items []ReplyFragment) iter.Seq[ReplyFragment] {
	return func(yield func(ReplyFragment) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
