package feishu

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/feishubridge/internal/channel"
	"github.com/memohai/feishubridge/internal/config"
)

func TestConfigAccountResolver(t *testing.T) {
	t.Parallel()

	resolver := NewConfigAccountResolver(map[string]config.AccountConfig{
		" default ": {Enabled: true, AppID: " cli_1 ", AppSecret: "s1", RenderMode: "card", TableMode: "code", TextChunkLimit: 100},
		"intl":      {Enabled: true, AppID: "cli_2", AppSecret: "s2", Region: "global"},
		"off":       {Enabled: false, AppID: "cli_3", AppSecret: "s3"},
		"bad":       {Enabled: true, AppID: "cli_4", AppSecret: "s4", Region: "mars"},
	})

	def := resolver.ResolveAccount("")
	require.True(t, def.Configured)
	assert.Equal(t, "default", def.ID)
	assert.Equal(t, "cli_1", def.AppID)
	assert.Equal(t, channel.RenderModeCard, def.RenderMode)
	assert.Equal(t, channel.TableModeCode, def.TableMode)
	assert.Equal(t, 100, def.OutboundPolicy().TextChunkLimit)
	assert.Equal(t, lark.FeishuBaseUrl, def.openBaseURL())

	intl := resolver.ResolveAccount("intl")
	require.True(t, intl.Configured)
	assert.Equal(t, regionLark, intl.Region)
	assert.Equal(t, lark.LarkBaseUrl, intl.openBaseURL())

	assert.False(t, resolver.ResolveAccount("off").Configured)
	assert.False(t, resolver.ResolveAccount("bad").Configured)
	missing := resolver.ResolveAccount("nope")
	assert.False(t, missing.Configured)
	assert.Equal(t, "nope", missing.ID)
}

func TestClientCacheRebuildsOnCredentialChange(t *testing.T) {
	t.Parallel()

	builds := 0
	cache := newClientCache(func(Account) *imClient {
		builds++
		return &imClient{}
	})
	acct := Account{ID: "default", AppID: "cli", AppSecret: "s", Region: regionFeishu}
	first := cache.get(acct)
	assert.Same(t, first, cache.get(acct))
	acct.AppSecret = "rotated"
	assert.NotSame(t, first, cache.get(acct))
	assert.Equal(t, 2, builds)
}

type countingTransport struct{ calls atomic.Int32 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("offline")
}

func TestAdapterClientsUseConfiguredHTTPClient(t *testing.T) {
	t.Parallel()

	transport := &countingTransport{}
	a := NewFeishuAdapter(slog.New(slog.DiscardHandler), Options{
		Accounts:   NewConfigAccountResolver(map[string]config.AccountConfig{"default": configuredAccount()}),
		HTTPClient: &http.Client{Transport: transport},
	})
	_, client, err := a.account("")
	require.NoError(t, err)

	_, err = client.Image.Get(context.Background(), larkim.NewGetImageReqBuilder().ImageKey("img_1").Build())
	require.Error(t, err)
	assert.Positive(t, transport.calls.Load())
}
