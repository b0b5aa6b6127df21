// Package channel holds the platform-neutral pieces of reply delivery:
// reply payload types, the dispatcher contract, text chunking, markdown
// helpers, inline media token extraction and the reply sequencer.
package channel

import "strings"

// ChannelType identifies a messaging platform (e.g., "feishu").
type ChannelType string

// String returns the channel type as a plain string.
func (c ChannelType) String() string {
	return string(c)
}

// ReplyKind tells a dispatcher where a fragment sits in a reply.
type ReplyKind string

const (
	ReplyKindTool  ReplyKind = "tool"
	ReplyKindBlock ReplyKind = "block"
	ReplyKindFinal ReplyKind = "final"
)

// ReplyPayload is one unit of agent output: optional text plus zero or more
// media URLs. MediaURL is the legacy single-item form.
type ReplyPayload struct {
	Text      string   `json:"text,omitempty"`
	MediaURL  string   `json:"media_url,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// MediaList merges MediaURLs and MediaURL, dropping blanks. MediaURLs wins
// when both are set.
func (p ReplyPayload) MediaList() []string {
	items := make([]string, 0, len(p.MediaURLs)+1)
	for _, raw := range p.MediaURLs {
		if v := strings.TrimSpace(raw); v != "" {
			items = append(items, v)
		}
	}
	if len(items) == 0 {
		if v := strings.TrimSpace(p.MediaURL); v != "" {
			items = append(items, v)
		}
	}
	return items
}

// IsEmpty reports whether the payload carries neither text nor media.
func (p ReplyPayload) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == "" && len(p.MediaList()) == 0
}

// DeliverInfo carries per-fragment context.
type DeliverInfo struct {
	Kind ReplyKind `json:"kind"`
}

// ReplyFragment pairs a payload with its kind.
type ReplyFragment struct {
	Payload ReplyPayload `json:"payload"`
	Kind    ReplyKind    `json:"kind"`
}

// Mention is a user to @-mention at the start of a reply.
type Mention struct {
	OpenID string `json:"open_id"`
	Name   string `json:"name,omitempty"`
}

// RenderMode selects how reply text is rendered.
type RenderMode string

const (
	RenderModeAuto RenderMode = "auto"
	RenderModeRaw  RenderMode = "raw"
	RenderModeCard RenderMode = "card"
)

// ParseRenderMode maps config text to a RenderMode, defaulting to auto.
func ParseRenderMode(raw string) RenderMode {
	switch RenderMode(strings.ToLower(strings.TrimSpace(raw))) {
	case RenderModeRaw:
		return RenderModeRaw
	case RenderModeCard:
		return RenderModeCard
	default:
		return RenderModeAuto
	}
}

// TableMode selects how markdown tables are rewritten for raw rendering.
type TableMode string

const (
	TableModeOff     TableMode = "off"
	TableModeBullets TableMode = "bullets"
	TableModeCode    TableMode = "code"
)

// ParseTableMode maps config text to a TableMode, defaulting to bullets.
func ParseTableMode(raw string) TableMode {
	switch TableMode(strings.ToLower(strings.TrimSpace(raw))) {
	case TableModeOff:
		return TableModeOff
	case TableModeCode:
		return TableModeCode
	default:
		return TableModeBullets
	}
}
