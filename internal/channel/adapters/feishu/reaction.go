package feishu

import (
	"context"
	"fmt"
	"strings"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// typingReactionType stands in for a typing indicator, which Feishu lacks.
const typingReactionType = "Typing"

type typingGateway interface {
	Add(ctx context.Context, messageID, reactionType string) (string, error)
	Remove(ctx context.Context, messageID, reactionID string) error
}

type larkTypingGateway struct {
	api messageReactionAPI
}

func (g *larkTypingGateway) Add(ctx context.Context, messageID, reactionType string) (string, error) {
	if g == nil || g.api == nil {
		return "", fmt.Errorf("feishu reaction api not configured")
	}
	req := larkim.NewCreateMessageReactionReqBuilder().
		MessageId(messageID).
		Body(larkim.NewCreateMessageReactionReqBodyBuilder().
			ReactionType(larkim.NewEmojiBuilder().EmojiType(reactionType).Build()).
			Build()).
		Build()
	resp, err := g.api.Create(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil || !resp.Success() {
		code, msg := 0, ""
		if resp != nil {
			code, msg = resp.Code, resp.Msg
		}
		return "", &RemoteError{Op: "message_reaction.create", Code: code, Msg: msg}
	}
	if resp.Data == nil || resp.Data.ReactionId == nil || strings.TrimSpace(*resp.Data.ReactionId) == "" {
		return "", fmt.Errorf("%w: reaction_id", ErrMissingResultKey)
	}
	return strings.TrimSpace(*resp.Data.ReactionId), nil
}

func (g *larkTypingGateway) Remove(ctx context.Context, messageID, reactionID string) error {
	if g == nil || g.api == nil {
		return fmt.Errorf("feishu reaction api not configured")
	}
	req := larkim.NewDeleteMessageReactionReqBuilder().
		MessageId(messageID).
		ReactionId(reactionID).
		Build()
	resp, err := g.api.Delete(ctx, req)
	if err != nil {
		return err
	}
	if resp == nil || !resp.Success() {
		code, msg := 0, ""
		if resp != nil {
			code, msg = resp.Code, resp.Msg
		}
		return &RemoteError{Op: "message_reaction.delete", Code: code, Msg: msg}
	}
	return nil
}

// typingHandle is the state of one active typing indicator.
type typingHandle struct {
	messageID  string
	reactionID string
}

func addTypingIndicator(ctx context.Context, gateway typingGateway, messageID string) (*typingHandle, error) {
	if gateway == nil {
		return nil, fmt.Errorf("typing gateway not configured")
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, nil
	}
	reactionID, err := gateway.Add(ctx, messageID, typingReactionType)
	if err != nil {
		return nil, err
	}
	return &typingHandle{messageID: messageID, reactionID: reactionID}, nil
}

func removeTypingIndicator(ctx context.Context, gateway typingGateway, handle *typingHandle) error {
	if handle == nil {
		return nil
	}
	if gateway == nil {
		return fmt.Errorf("typing gateway not configured")
	}
	if handle.messageID == "" || handle.reactionID == "" {
		return nil
	}
	return gateway.Remove(ctx, handle.messageID, handle.reactionID)
}
