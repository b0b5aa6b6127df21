package feishu

import (
	"context"
	"errors"
	"testing"
)

func TestLarkTypingGateway(t *testing.T) {
	t.Parallel()

	api := &fakeReactionAPI{}
	gateway := &larkTypingGateway{api: api}
	ctx := context.Background()

	id, err := gateway.Add(ctx, "om_1", typingReactionType)
	if err != nil || id != "r_1" {
		t.Fatalf("add: %q %v", id, err)
	}
	if err := gateway.Remove(ctx, "om_1", id); err != nil {
		t.Fatalf("remove: %v", err)
	}

	api.createCode = 231001
	if _, err := gateway.Add(ctx, "om_1", typingReactionType); !errors.Is(err, ErrRemoteOperationFailed) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	api.deleteCode = 231002
	if err := gateway.Remove(ctx, "om_1", "r_1"); !errors.Is(err, ErrRemoteOperationFailed) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if api.creates != 2 || api.deletes != 2 {
		t.Fatalf("unexpected call counts: %d %d", api.creates, api.deletes)
	}
}

func TestTypingHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gateway := &fakeTypingGateway{}

	handle, err := addTypingIndicator(ctx, gateway, "  ")
	if err != nil || handle != nil {
		t.Fatalf("blank message id should be a no-op: %v %v", handle, err)
	}
	if err := removeTypingIndicator(ctx, gateway, nil); err != nil {
		t.Fatalf("nil handle: %v", err)
	}
	if err := removeTypingIndicator(ctx, gateway, &typingHandle{messageID: "om_1"}); err != nil {
		t.Fatalf("empty reaction id: %v", err)
	}
	if len(gateway.addCalls) != 0 || len(gateway.removeCalls) != 0 {
		t.Fatalf("expected no gateway calls")
	}
	if _, err := addTypingIndicator(ctx, nil, "om_1"); err == nil {
		t.Fatalf("expected error for nil gateway")
	}
}
