package feishu

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/memohai/feishubridge/internal/config"
	"github.com/memohai/feishubridge/internal/media"
	"github.com/memohai/feishubridge/internal/metrics"
)

type sentMessage struct {
	reply     bool
	receiveID string
	msgType   string
	content   string
}

// fakeIM records every IM call the adapter makes.
type fakeIM struct {
	mu          sync.Mutex
	messages    []sentMessage
	imageBodies [][]byte
	fileNames   []string
	fileTypes   []string
	fileBodies  [][]byte
	messageErr  error
	imageResp   *larkim.CreateImageResp
	getImage    *larkim.GetImageResp
	getResource *larkim.GetMessageResourceResp
}

func (f *fakeIM) client() *imClient {
	return &imClient{
		Image:           fakeImageAPI{f},
		File:            fakeFileAPI{f},
		Message:         fakeMessageAPI{f},
		MessageResource: fakeResourceAPI{f},
		Reaction:        &fakeReactionAPI{},
	}
}

func (f *fakeIM) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

type fakeImageAPI struct{ f *fakeIM }

func (a fakeImageAPI) Create(_ context.Context, req *larkim.CreateImageReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateImageResp, error) {
	body, err := io.ReadAll(req.Body.Image)
	if err != nil {
		return nil, err
	}
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.imageBodies = append(a.f.imageBodies, body)
	if a.f.imageResp != nil {
		return a.f.imageResp, nil
	}
	return &larkim.CreateImageResp{
		Data: &larkim.CreateImageRespData{ImageKey: larkcore.StringPtr("img_v2_1")},
	}, nil
}

func (a fakeImageAPI) Get(_ context.Context, _ *larkim.GetImageReq, _ ...larkcore.RequestOptionFunc) (*larkim.GetImageResp, error) {
	return a.f.getImage, nil
}

type fakeFileAPI struct{ f *fakeIM }

func (a fakeFileAPI) Create(_ context.Context, req *larkim.CreateFileReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateFileResp, error) {
	body, err := io.ReadAll(req.Body.File)
	if err != nil {
		return nil, err
	}
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.fileBodies = append(a.f.fileBodies, body)
	a.f.fileNames = append(a.f.fileNames, deref(req.Body.FileName))
	a.f.fileTypes = append(a.f.fileTypes, deref(req.Body.FileType))
	return &larkim.CreateFileResp{
		Data: &larkim.CreateFileRespData{FileKey: larkcore.StringPtr("file_v2_1")},
	}, nil
}

type fakeMessageAPI struct{ f *fakeIM }

func (a fakeMessageAPI) Create(_ context.Context, req *larkim.CreateMessageReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if a.f.messageErr != nil {
		return nil, a.f.messageErr
	}
	a.f.messages = append(a.f.messages, sentMessage{
		receiveID: deref(req.Body.ReceiveId),
		msgType:   deref(req.Body.MsgType),
		content:   deref(req.Body.Content),
	})
	return &larkim.CreateMessageResp{
		Data: &larkim.CreateMessageRespData{
			MessageId: larkcore.StringPtr("om_created"),
			ChatId:    larkcore.StringPtr("oc_chat"),
		},
	}, nil
}

func (a fakeMessageAPI) Reply(_ context.Context, req *larkim.ReplyMessageReq, _ ...larkcore.RequestOptionFunc) (*larkim.ReplyMessageResp, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if a.f.messageErr != nil {
		return nil, a.f.messageErr
	}
	a.f.messages = append(a.f.messages, sentMessage{
		reply:   true,
		msgType: deref(req.Body.MsgType),
		content: deref(req.Body.Content),
	})
	return &larkim.ReplyMessageResp{
		Data: &larkim.ReplyMessageRespData{
			MessageId: larkcore.StringPtr("om_reply"),
			ChatId:    larkcore.StringPtr("oc_chat"),
		},
	}, nil
}

type fakeResourceAPI struct{ f *fakeIM }

func (a fakeResourceAPI) Get(_ context.Context, _ *larkim.GetMessageResourceReq, _ ...larkcore.RequestOptionFunc) (*larkim.GetMessageResourceResp, error) {
	return a.f.getResource, nil
}

type fakeReactionAPI struct {
	createCode int
	deleteCode int
	creates    int
	deletes    int
}

func (a *fakeReactionAPI) Create(_ context.Context, _ *larkim.CreateMessageReactionReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateMessageReactionResp, error) {
	a.creates++
	return &larkim.CreateMessageReactionResp{
		CodeError: larkcore.CodeError{Code: a.createCode, Msg: "reaction rejected"},
		Data:      &larkim.CreateMessageReactionRespData{ReactionId: larkcore.StringPtr(" r_1 ")},
	}, nil
}

func (a *fakeReactionAPI) Delete(_ context.Context, _ *larkim.DeleteMessageReactionReq, _ ...larkcore.RequestOptionFunc) (*larkim.DeleteMessageReactionResp, error) {
	a.deletes++
	return &larkim.DeleteMessageReactionResp{
		CodeError: larkcore.CodeError{Code: a.deleteCode, Msg: "reaction gone"},
	}, nil
}

type fakeTypingGateway struct {
	mu          sync.Mutex
	addCalls    []struct{ messageID, reactionType string }
	removeCalls []struct{ messageID, reactionID string }
	addErr      error
	removeErr   error
}

func (g *fakeTypingGateway) Add(_ context.Context, messageID, reactionType string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addCalls = append(g.addCalls, struct{ messageID, reactionType string }{messageID, reactionType})
	if g.addErr != nil {
		return "", g.addErr
	}
	return "reaction-1", nil
}

func (g *fakeTypingGateway) Remove(_ context.Context, messageID, reactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeCalls = append(g.removeCalls, struct{ messageID, reactionID string }{messageID, reactionID})
	return g.removeErr
}

func configuredAccount() config.AccountConfig {
	return config.AccountConfig{
		Enabled:   true,
		AppID:     "cli_test",
		AppSecret: "secret",
	}
}

// newTestAdapter builds an adapter whose default account talks to a fakeIM
// and whose scratch directory is returned for leak checks.
func newTestAdapter(t *testing.T, acct config.AccountConfig) (*FeishuAdapter, *fakeIM, string) {
	t.Helper()
	scratchDir := t.TempDir()
	fake := &fakeIM{}
	a := NewFeishuAdapter(slog.New(slog.DiscardHandler), Options{
		Accounts: NewConfigAccountResolver(map[string]config.AccountConfig{"default": acct}),
		Scratch:  media.NewScratch(scratchDir),
		Metrics:  metrics.New(),
	})
	a.clients = newClientCache(func(Account) *imClient { return fake.client() })
	return a, fake, scratchDir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}
