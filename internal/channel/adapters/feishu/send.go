package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/memohai/feishubridge/internal/channel"
)

// Target addresses an outbound message. When ReplyToMessageID is set the
// message is posted as a reply to it; otherwise it is created in To.
type Target struct {
	AccountID        string
	To               string
	ReplyToMessageID string
}

// SendResult identifies the message the platform created.
type SendResult struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
}

// SendText posts text as a rich-text post with a markdown element.
func (a *FeishuAdapter) SendText(ctx context.Context, target Target, text string, mentions []channel.Mention) (SendResult, error) {
	content, err := buildPostContent(text, mentions)
	if err != nil {
		return SendResult{}, err
	}
	return a.send(ctx, target, larkim.MsgTypePost, content)
}

// SendCard posts markdown as an interactive card.
func (a *FeishuAdapter) SendCard(ctx context.Context, target Target, markdown string, mentions []channel.Mention) (SendResult, error) {
	content, err := buildMarkdownCard(markdown, mentions)
	if err != nil {
		return SendResult{}, err
	}
	return a.send(ctx, target, larkim.MsgTypeInteractive, content)
}

// SendImage posts a previously uploaded image.
func (a *FeishuAdapter) SendImage(ctx context.Context, target Target, imageKey string) (SendResult, error) {
	content, err := sonic.MarshalString(map[string]string{"image_key": imageKey})
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal image content: %w", err)
	}
	return a.send(ctx, target, larkim.MsgTypeImage, content)
}

// SendFile posts a previously uploaded file.
func (a *FeishuAdapter) SendFile(ctx context.Context, target Target, fileKey string) (SendResult, error) {
	content, err := sonic.MarshalString(map[string]string{"file_key": fileKey})
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal file content: %w", err)
	}
	return a.send(ctx, target, larkim.MsgTypeFile, content)
}

func (a *FeishuAdapter) send(ctx context.Context, target Target, msgType, content string) (SendResult, error) {
	_, client, err := a.account(target.AccountID)
	if err != nil {
		return SendResult{}, err
	}
	if replyTo := strings.TrimSpace(target.ReplyToMessageID); replyTo != "" {
		req := larkim.NewReplyMessageReqBuilder().
			MessageId(replyTo).
			Body(larkim.NewReplyMessageReqBodyBuilder().
				Content(content).
				MsgType(msgType).
				Uuid(uuid.NewString()).
				Build()).
			Build()
		resp, err := client.Message.Reply(ctx, req)
		return a.handleReplyResponse(target, msgType, resp, err)
	}

	receiveID, receiveType, err := resolveReceiveID(target.To)
	if err != nil {
		return SendResult{}, err
	}
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Uuid(uuid.NewString()).
			Build()).
		Build()
	resp, err := client.Message.Create(ctx, req)
	return a.handleResponse(target, msgType, resp, err)
}

func (a *FeishuAdapter) handleReplyResponse(target Target, msgType string, resp *larkim.ReplyMessageResp, err error) (SendResult, error) {
	if err == nil && resp != nil && !resp.Success() {
		err = &RemoteError{Op: "message.reply", Code: resp.Code, Msg: resp.Msg}
	}
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: message_id", ErrMissingResultKey)
	}
	a.observe("message.reply", err)
	if err != nil {
		a.logger.Error("reply failed",
			slog.String("account_id", target.AccountID),
			slog.String("msg_type", msgType),
			slog.Any("error", err))
		return SendResult{}, err
	}
	result := SendResult{}
	if resp.Data != nil {
		result.MessageID = deref(resp.Data.MessageId)
		result.ChatID = deref(resp.Data.ChatId)
	}
	a.logger.Debug("reply success", slog.String("account_id", target.AccountID), slog.String("message_id", result.MessageID))
	return result, nil
}

func (a *FeishuAdapter) handleResponse(target Target, msgType string, resp *larkim.CreateMessageResp, err error) (SendResult, error) {
	if err == nil && resp != nil && !resp.Success() {
		err = &RemoteError{Op: "message.create", Code: resp.Code, Msg: resp.Msg}
	}
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: message_id", ErrMissingResultKey)
	}
	a.observe("message.create", err)
	if err != nil {
		a.logger.Error("send failed",
			slog.String("account_id", target.AccountID),
			slog.String("msg_type", msgType),
			slog.Any("error", err))
		return SendResult{}, err
	}
	result := SendResult{}
	if resp.Data != nil {
		result.MessageID = deref(resp.Data.MessageId)
		result.ChatID = deref(resp.Data.ChatId)
	}
	a.logger.Debug("send success", slog.String("account_id", target.AccountID), slog.String("message_id", result.MessageID))
	return result, nil
}

var receiveIDPrefixes = []struct {
	prefix string
	idType string
}{
	{"open_id:", larkim.ReceiveIdTypeOpenId},
	{"user_id:", larkim.ReceiveIdTypeUserId},
	{"union_id:", larkim.ReceiveIdTypeUnionId},
	{"chat_id:", larkim.ReceiveIdTypeChatId},
	{"email:", larkim.ReceiveIdTypeEmail},
}

// resolveReceiveID splits a target into receive id and receive id type.
// Explicit prefixes win; otherwise the type is inferred from the id format.
func resolveReceiveID(raw string) (string, string, error) {
	value := strings.TrimSpace(raw)
	for _, platform := range []string{"feishu:", "lark:"} {
		if len(value) >= len(platform) && strings.EqualFold(value[:len(platform)], platform) {
			value = strings.TrimSpace(value[len(platform):])
			break
		}
	}
	if value == "" {
		return "", "", ErrInvalidTarget
	}
	for _, p := range receiveIDPrefixes {
		if strings.HasPrefix(value, p.prefix) {
			id := strings.TrimSpace(strings.TrimPrefix(value, p.prefix))
			if id == "" {
				return "", "", ErrInvalidTarget
			}
			return id, p.idType, nil
		}
	}
	switch {
	case strings.HasPrefix(value, "oc_"):
		return value, larkim.ReceiveIdTypeChatId, nil
	case strings.HasPrefix(value, "ou_"):
		return value, larkim.ReceiveIdTypeOpenId, nil
	case strings.HasPrefix(value, "on_"):
		return value, larkim.ReceiveIdTypeUnionId, nil
	case strings.Contains(value, "@"):
		return value, larkim.ReceiveIdTypeEmail, nil
	default:
		return value, larkim.ReceiveIdTypeUserId, nil
	}
}

type postElement = map[string]any

// buildPostContent wraps text in a zh_cn post with one md element, prefixed
// by <at> tags for mentions.
func buildPostContent(text string, mentions []channel.Mention) (string, error) {
	body := textMentionPrefix(mentions) + text
	post := map[string]any{
		"zh_cn": map[string]any{
			"content": [][]postElement{{
				{"tag": "md", "text": body},
			}},
		},
	}
	content, err := sonic.MarshalString(post)
	if err != nil {
		return "", fmt.Errorf("marshal post content: %w", err)
	}
	return content, nil
}

func textMentionPrefix(mentions []channel.Mention) string {
	var sb strings.Builder
	for _, m := range mentions {
		id := strings.TrimSpace(m.OpenID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(m.Name)
		fmt.Fprintf(&sb, `<at user_id="%s">%s</at> `, id, name)
	}
	return sb.String()
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
