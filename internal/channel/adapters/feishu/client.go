package feishu

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/memohai/feishubridge/internal/logger"
)

type imageAPI interface {
	Create(ctx context.Context, req *larkim.CreateImageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateImageResp, error)
	Get(ctx context.Context, req *larkim.GetImageReq, options ...larkcore.RequestOptionFunc) (*larkim.GetImageResp, error)
}

type fileAPI interface {
	Create(ctx context.Context, req *larkim.CreateFileReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateFileResp, error)
}

type messageAPI interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
	Reply(ctx context.Context, req *larkim.ReplyMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.ReplyMessageResp, error)
}

type messageResourceAPI interface {
	Get(ctx context.Context, req *larkim.GetMessageResourceReq, options ...larkcore.RequestOptionFunc) (*larkim.GetMessageResourceResp, error)
}

type messageReactionAPI interface {
	Create(ctx context.Context, req *larkim.CreateMessageReactionReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageReactionResp, error)
	Delete(ctx context.Context, req *larkim.DeleteMessageReactionReq, options ...larkcore.RequestOptionFunc) (*larkim.DeleteMessageReactionResp, error)
}

// imClient is the slice of the IM v1 API this adapter calls.
type imClient struct {
	Image           imageAPI
	File            fileAPI
	Message         messageAPI
	MessageResource messageResourceAPI
	Reaction        messageReactionAPI
}

type clientFactory func(acct Account) *imClient

func newLarkClientFactory(log *slog.Logger, httpClient *http.Client) clientFactory {
	larkLogger := logger.NewLarkLogger(log)
	return func(acct Account) *imClient {
		opts := []lark.ClientOptionFunc{
			lark.WithOpenBaseUrl(acct.openBaseURL()),
			lark.WithLogger(larkLogger),
			lark.WithLogLevel(larkcore.LogLevelInfo),
		}
		if httpClient != nil {
			opts = append(opts, lark.WithHttpClient(httpClient))
		}
		client := lark.NewClient(acct.AppID, acct.AppSecret, opts...)
		return &imClient{
			Image:           client.Im.V1.Image,
			File:            client.Im.V1.File,
			Message:         client.Im.V1.Message,
			MessageResource: client.Im.V1.MessageResource,
			Reaction:        client.Im.V1.MessageReaction,
		}
	}
}

// clientCache keeps one SDK client per account and rebuilds it when the
// account's credentials or region change.
type clientCache struct {
	mu      sync.Mutex
	factory clientFactory
	clients map[string]cachedClient
}

type cachedClient struct {
	appID  string
	secret string
	region string
	client *imClient
}

func newClientCache(factory clientFactory) *clientCache {
	return &clientCache{factory: factory, clients: map[string]cachedClient{}}
}

func (c *clientCache) get(acct Account) *imClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.clients[acct.ID]; ok &&
		cached.appID == acct.AppID && cached.secret == acct.AppSecret && cached.region == acct.Region {
		return cached.client
	}
	client := c.factory(acct)
	c.clients[acct.ID] = cachedClient{
		appID:  acct.AppID,
		secret: acct.AppSecret,
		region: acct.Region,
		client: client,
	}
	return client
}
