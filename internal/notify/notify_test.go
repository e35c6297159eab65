package notify

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/pkg/models"
)

func TestStoreNotifier_WritesSystemRoomMessage(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	user := uuid.NewString()
	n := NewStoreNotifier(db)
	if err := n.Notify(context.Background(), user, "有人上传了您需要的商品", CategoryChatMessage); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.Notify(context.Background(), user, "item-123", CategoryItemID); err != nil {
		t.Fatalf("notify: %v", err)
	}

	room, err := db.GetRoomByName(models.SystemRoomName(user))
	if err != nil || room == nil {
		t.Fatalf("system room missing: %v", err)
	}
	if !room.IsSystemRoom {
		t.Fatal("room not flagged as system room")
	}

	msgs, err := db.ListMessages(room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Category != CategoryChatMessage || msgs[1].Category != CategoryItemID {
		t.Fatalf("categories = %q, %q", msgs[0].Category, msgs[1].Category)
	}
	if msgs[0].Content != "有人上传了您需要的商品" {
		t.Fatalf("content = %q", msgs[0].Content)
	}
}
