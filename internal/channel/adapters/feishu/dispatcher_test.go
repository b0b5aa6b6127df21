package feishu

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/memohai/feishubridge/internal/channel"
	"github.com/memohai/feishubridge/internal/config"
)

func newTestDispatcher(t *testing.T, acct config.AccountConfig, opts ReplyDispatcherOptions) (*ReplyDispatcher, *fakeIM, *fakeTypingGateway) {
	t.Helper()
	a, fake, _ := newTestAdapter(t, acct)
	d, err := a.NewReplyDispatcher(opts)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	gateway := &fakeTypingGateway{}
	d.typing = gateway
	return d, fake, gateway
}

func TestNewReplyDispatcherValidation(t *testing.T) {
	t.Parallel()

	a, _, _ := newTestAdapter(t, configuredAccount())
	if _, err := a.NewReplyDispatcher(ReplyDispatcherOptions{}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := a.NewReplyDispatcher(ReplyDispatcherOptions{AccountID: "other", To: "oc_1"}); !errors.Is(err, ErrAccountNotConfigured) {
		t.Fatalf("expected ErrAccountNotConfigured, got %v", err)
	}
	d, err := a.OpenReplyDispatcher(context.Background(), channel.ReplyTarget{ReplyToMessageID: "om_1"})
	if err != nil || d == nil {
		t.Fatalf("open dispatcher: %v", err)
	}
}

func TestDispatcherMediaPartialFailure(t *testing.T) {
	t.Parallel()

	srv := newMediaServer(t)
	d, fake, _ := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{To: "oc_1"})

	err := d.Deliver(context.Background(), channel.ReplyPayload{
		Text:      "here you go",
		MediaURLs: []string{srv.URL + "/a.png", srv.URL + "/b.pdf", srv.URL + "/c.txt"},
	}, channel.DeliverInfo{Kind: channel.ReplyKindFinal})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	sent := fake.sent()
	if len(sent) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(sent), sent)
	}
	wantTypes := []string{larkim.MsgTypePost, larkim.MsgTypeImage, larkim.MsgTypePost, larkim.MsgTypeFile}
	for i, want := range wantTypes {
		if sent[i].msgType != want {
			t.Fatalf("message %d: got %s, want %s", i, sent[i].msgType, want)
		}
	}
	if !strings.Contains(sent[0].content, "here you go") {
		t.Fatalf("expected leading text first: %s", sent[0].content)
	}
	if !strings.Contains(sent[2].content, "Failed to send attachment: b.pdf") {
		t.Fatalf("expected placeholder for second item: %s", sent[2].content)
	}
	if fake.fileNames[0] != "c.txt" {
		t.Fatalf("unexpected third item: %v", fake.fileNames)
	}

	scrape := httptest.NewRecorder()
	d.adapter.metrics.Handler().ServeHTTP(scrape, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(scrape.Body)
	if !strings.Contains(string(body), `feishubridge_media_item_failures_total{account="default"} 1`) {
		t.Fatalf("media failure not counted:\n%s", body)
	}
}

func TestDispatcherInlineMediaTokens(t *testing.T) {
	t.Parallel()

	d, fake, _ := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{To: "oc_1"})
	missing := filepath.Join(t.TempDir(), "chart.png")

	err := d.Deliver(context.Background(), channel.ReplyPayload{
		Text: "See the chart\nMEDIA: " + missing,
	}, channel.DeliverInfo{Kind: channel.ReplyKindBlock})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	sent := fake.sent()
	if len(sent) != 2 {
		t.Fatalf("expected text plus placeholder, got %+v", sent)
	}
	if strings.Contains(sent[0].content, "MEDIA:") || !strings.Contains(sent[0].content, "See the chart") {
		t.Fatalf("unexpected cleaned text: %s", sent[0].content)
	}
	if !strings.Contains(sent[1].content, "chart.png") {
		t.Fatalf("unexpected placeholder: %s", sent[1].content)
	}
}

func TestDispatcherStructuredMediaWinsOverTokens(t *testing.T) {
	t.Parallel()

	d, fake, _ := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{To: "oc_1"})
	dir := t.TempDir()

	err := d.Deliver(context.Background(), channel.ReplyPayload{
		Text:     "MEDIA: " + filepath.Join(dir, "ignored.png"),
		MediaURL: filepath.Join(dir, "used.pdf"),
	}, channel.DeliverInfo{Kind: channel.ReplyKindFinal})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	sent := fake.sent()
	if len(sent) != 2 {
		t.Fatalf("expected raw text plus placeholder, got %+v", sent)
	}
	if !strings.Contains(sent[0].content, "MEDIA:") {
		t.Fatalf("text should be kept verbatim: %s", sent[0].content)
	}
	if !strings.Contains(sent[1].content, "used.pdf") {
		t.Fatalf("placeholder should name the structured item: %s", sent[1].content)
	}
}

func TestDispatcherRenderModes(t *testing.T) {
	t.Parallel()

	table := "| a | b |\n|---|---|\n| 1 | 2 |"
	cases := []struct {
		name       string
		renderMode string
		text       string
		wantType   string
		notContain string
	}{
		{name: "auto plain", renderMode: "auto", text: "just words", wantType: larkim.MsgTypePost},
		{name: "auto fenced", renderMode: "auto", text: "```go\nx := 1\n```", wantType: larkim.MsgTypeInteractive},
		{name: "auto table", renderMode: "", text: table, wantType: larkim.MsgTypeInteractive},
		{name: "raw converts tables", renderMode: "raw", text: table, wantType: larkim.MsgTypePost, notContain: "|---|"},
		{name: "card keeps tables", renderMode: "card", text: "plain", wantType: larkim.MsgTypeInteractive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			acct := configuredAccount()
			acct.RenderMode = tc.renderMode
			d, fake, _ := newTestDispatcher(t, acct, ReplyDispatcherOptions{To: "oc_1"})
			if err := d.Deliver(context.Background(), channel.ReplyPayload{Text: tc.text}, channel.DeliverInfo{Kind: channel.ReplyKindFinal}); err != nil {
				t.Fatalf("deliver: %v", err)
			}
			sent := fake.sent()
			if len(sent) != 1 || sent[0].msgType != tc.wantType {
				t.Fatalf("unexpected messages: %+v", sent)
			}
			if tc.notContain != "" && strings.Contains(sent[0].content, tc.notContain) {
				t.Fatalf("content still contains %q: %s", tc.notContain, sent[0].content)
			}
		})
	}
}

func TestDispatcherChunksAndMentions(t *testing.T) {
	t.Parallel()

	acct := configuredAccount()
	acct.RenderMode = "raw"
	acct.TextChunkLimit = 12
	d, fake, _ := newTestDispatcher(t, acct, ReplyDispatcherOptions{
		To:       "oc_1",
		Mentions: []channel.Mention{{OpenID: "ou_mention", Name: "Ann"}},
	})
	err := d.Deliver(context.Background(), channel.ReplyPayload{Text: "first line\nsecond line\nthird line"}, channel.DeliverInfo{Kind: channel.ReplyKindFinal})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	sent := fake.sent()
	if len(sent) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(sent))
	}
	for i, msg := range sent {
		hasMention := strings.Contains(msg.content, "ou_mention")
		if hasMention != (i == 0) {
			t.Fatalf("chunk %d mention presence = %v", i, hasMention)
		}
	}
}

func TestDispatcherEmptyPayload(t *testing.T) {
	t.Parallel()

	d, fake, _ := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{To: "oc_1"})
	if err := d.Deliver(context.Background(), channel.ReplyPayload{Text: "  \n"}, channel.DeliverInfo{}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(fake.sent()) != 0 {
		t.Fatalf("expected nothing sent")
	}
}

func TestDispatcherTextFailureReturnsError(t *testing.T) {
	t.Parallel()

	d, fake, _ := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{To: "oc_1"})
	boom := errors.New("network down")
	fake.messageErr = boom
	err := d.Deliver(context.Background(), channel.ReplyPayload{Text: "hello"}, channel.DeliverInfo{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestDispatcherTypingLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d, _, gateway := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{ReplyToMessageID: "om_parent"})

	d.OnReplyStart(ctx)
	d.OnReplyStart(ctx)
	if len(gateway.addCalls) != 1 {
		t.Fatalf("expected one add, got %d", len(gateway.addCalls))
	}
	if gateway.addCalls[0].messageID != "om_parent" || gateway.addCalls[0].reactionType != typingReactionType {
		t.Fatalf("unexpected add call: %+v", gateway.addCalls[0])
	}

	d.OnIdle(ctx)
	d.OnIdle(ctx)
	d.OnError(ctx, errors.New("late"), channel.DeliverInfo{Kind: channel.ReplyKindFinal})
	if len(gateway.removeCalls) != 1 {
		t.Fatalf("expected one remove, got %d", len(gateway.removeCalls))
	}
	if gateway.removeCalls[0].reactionID != "reaction-1" {
		t.Fatalf("unexpected remove call: %+v", gateway.removeCalls[0])
	}
}

func TestDispatcherTypingAddFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d, _, gateway := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{ReplyToMessageID: "om_parent"})
	gateway.addErr = errors.New("rate limited")

	d.OnReplyStart(ctx)
	d.OnIdle(ctx)
	if len(gateway.removeCalls) != 0 {
		t.Fatalf("remove must not follow a failed add")
	}
}

func TestDispatcherTypingWithoutReplyTarget(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d, _, gateway := newTestDispatcher(t, configuredAccount(), ReplyDispatcherOptions{To: "oc_1"})
	d.OnReplyStart(ctx)
	d.OnError(ctx, errors.New("x"), channel.DeliverInfo{})
	if len(gateway.addCalls) != 0 || len(gateway.removeCalls) != 0 {
		t.Fatalf("expected no typing calls")
	}
}
