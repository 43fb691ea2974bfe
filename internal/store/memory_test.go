package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatvault/chatvault/models"
)

func newMemoryPair() (KeyRecordRepository, ConversationRepository) {
	keys := NewMemoryKeyRecordRepository()
	return keys, NewMemoryConversationRepository(keys)
}

func TestMemoryDeleteConversation_RemovesWrappedKey(t *testing.T) {
	ctx := context.Background()
	keys, convs := newMemoryPair()

	now := time.Now().UTC()
	if err := convs.SaveConversation(ctx, models.Conversation{ID: "c1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("save conversation: %v", err)
	}
	if err := keys.SaveWrappedKey(ctx, models.WrappedKey{ConversationID: "c1", WrappedKey: []byte{0x01}}); err != nil {
		t.Fatalf("save wrapped key: %v", err)
	}

	if err := convs.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}

	if _, err := keys.GetWrappedKey(ctx, "c1"); !errors.Is(err, ErrWrappedKeyNotFound) {
		t.Fatalf("expected ErrWrappedKeyNotFound, got %v", err)
	}
}

func TestMemoryDeleteAllConversations_KeepsVaultParams(t *testing.T) {
	ctx := context.Background()
	keys, convs := newMemoryPair()

	if err := keys.SaveVaultParams(ctx, models.VaultParams{Salt: []byte{0x01}}); err != nil {
		t.Fatalf("save vault params: %v", err)
	}
	if err := convs.SaveConversation(ctx, models.Conversation{ID: "c1"}); err != nil {
		t.Fatalf("save conversation: %v", err)
	}
	if err := keys.SaveWrappedKey(ctx, models.WrappedKey{ConversationID: "c1"}); err != nil {
		t.Fatalf("save wrapped key: %v", err)
	}

	if err := convs.DeleteAllConversations(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	if _, err := keys.GetWrappedKey(ctx, "c1"); !errors.Is(err, ErrWrappedKeyNotFound) {
		t.Fatalf("expected wrapped keys cleared, got %v", err)
	}
	if _, err := keys.GetVaultParams(ctx); err != nil {
		t.Fatalf("vault params must survive a conversation wipe: %v", err)
	}
}

func TestMemoryListPersistent_OrderAndExclusion(t *testing.T) {
	ctx := context.Background()
	_, convs := newMemoryPair()

	base := time.Now().UTC()
	for _, c := range []models.Conversation{
		{ID: "old", Title: "Old", UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: "new", Title: "New", UpdatedAt: base},
		{ID: "tmp", Title: "Temp", IsTemporary: true, UpdatedAt: base.Add(time.Hour)},
	} {
		if err := convs.SaveConversation(ctx, c); err != nil {
			t.Fatalf("save conversation %s: %v", c.ID, err)
		}
	}

	list, err := convs.ListPersistent(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 persistent conversations, got %d", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "old" {
		t.Errorf("expected most recently updated first, got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestMemoryMessagesAfter_IDOrder(t *testing.T) {
	ctx := context.Background()
	_, convs := newMemoryPair()

	base := time.Now().UTC()
	if err := convs.SaveConversation(ctx, models.Conversation{ID: "c1"}); err != nil {
		t.Fatalf("save conversation: %v", err)
	}
	// m2 carries the oldest timestamp on purpose: ID order, not timestamp
	// order, decides what is "after" the watermark.
	offsets := map[string]time.Duration{"m1": time.Second, "m2": -time.Hour, "m3": 3 * time.Second}
	for _, id := range []string{"m3", "m1", "m2"} {
		if err := convs.AppendMessage(ctx, models.Message{
			ID:             id,
			ConversationID: "c1",
			Timestamp:      base.Add(offsets[id]),
		}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	msgs, err := convs.MessagesAfter(ctx, "")
	if err != nil {
		t.Fatalf("messages after: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[1].ID != "m2" || msgs[2].ID != "m3" {
		t.Errorf("expected ID order m1,m2,m3, got %s,%s,%s", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}

	msgs, err = convs.MessagesAfter(ctx, "m2")
	if err != nil {
		t.Fatalf("messages after: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m3" {
		t.Fatalf("expected only m3, got %v", msgs)
	}
}
