package feishu

import (
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"

	"github.com/memohai/feishubridge/internal/channel"
	"github.com/memohai/feishubridge/internal/config"
)

const (
	regionFeishu = "feishu"
	regionLark   = "lark"
)

// Account is a resolved Feishu app plus its outbound rendering settings.
type Account struct {
	ID             string
	Configured     bool
	AppID          string
	AppSecret      string
	Region         string
	RenderMode     channel.RenderMode
	TextChunkLimit int
	ChunkMode      channel.ChunkerMode
	TableMode      channel.TableMode
}

// OutboundPolicy returns the chunking policy for this account.
func (a Account) OutboundPolicy() channel.OutboundPolicy {
	return channel.NormalizeOutboundPolicy(channel.OutboundPolicy{
		TextChunkLimit: a.TextChunkLimit,
		ChunkerMode:    a.ChunkMode,
	})
}

func (a Account) openBaseURL() string {
	if a.Region == regionLark {
		return lark.LarkBaseUrl
	}
	return lark.FeishuBaseUrl
}

// AccountResolver maps an account id to its settings. Unknown ids resolve to
// an unconfigured Account rather than an error.
type AccountResolver interface {
	ResolveAccount(accountID string) Account
}

// ConfigAccountResolver serves accounts from the [accounts.<id>] config tables.
type ConfigAccountResolver struct {
	accounts map[string]config.AccountConfig
}

func NewConfigAccountResolver(accounts map[string]config.AccountConfig) *ConfigAccountResolver {
	normalized := make(map[string]config.AccountConfig, len(accounts))
	for id, acct := range accounts {
		normalized[normalizeAccountID(id)] = acct
	}
	return &ConfigAccountResolver{accounts: normalized}
}

func (r *ConfigAccountResolver) ResolveAccount(accountID string) Account {
	id := normalizeAccountID(accountID)
	raw, ok := r.accounts[id]
	if !ok {
		return Account{ID: id}
	}
	region, err := normalizeRegion(raw.Region)
	if err != nil {
		return Account{ID: id}
	}
	return Account{
		ID:             id,
		Configured:     raw.Configured(),
		AppID:          strings.TrimSpace(raw.AppID),
		AppSecret:      strings.TrimSpace(raw.AppSecret),
		Region:         region,
		RenderMode:     channel.ParseRenderMode(raw.RenderMode),
		TextChunkLimit: raw.TextChunkLimit,
		ChunkMode:      channel.ParseChunkerMode(raw.ChunkMode),
		TableMode:      channel.ParseTableMode(raw.TableMode),
	}
}

func normalizeAccountID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return config.DefaultAccountID
	}
	return id
}

func normalizeRegion(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", regionFeishu, "cn", "china":
		return regionFeishu, nil
	case regionLark, "global", "intl", "international":
		return regionLark, nil
	default:
		return "", fmt.Errorf("feishu region must be feishu or lark")
	}
}
