package listings

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/internal/match"
	"github.com/racktic/bookmarket/pkg/models"
)

type recordedNote struct {
	RecipientID string
	Content     string
	Category    string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []recordedNote
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID, content, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, recordedNote{recipientID, content, category})
	return nil
}

func (f *fakeNotifier) byRecipient(id string) []recordedNote {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedNote
	for _, n := range f.notes {
		if n.RecipientID == id {
			out = append(out, n)
		}
	}
	return out
}

var testEngine *match.Engine

type env struct {
	svc    *Service
	db     *database.DB
	notes  *fakeNotifier
	seller *models.User
	buyer  *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	if testEngine == nil {
		e, err := match.NewEngine()
		if err != nil {
			t.Fatalf("load match engine: %v", err)
		}
		testEngine = e
	}
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seller := &models.User{ID: uuid.NewString(), Username: "张三", Email: "zhangsan@mails.tsinghua.edu.cn"}
	buyer := &models.User{ID: uuid.NewString(), Username: "李四", Email: "lisi@mails.tsinghua.edu.cn"}
	for _, u := range []*models.User{seller, buyer} {
		u.EmailHash = u.ID
		if err := db.CreateUser(u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	notes := &fakeNotifier{}
	svc := NewService(db, testEngine, notes, t.TempDir())
	return &env{svc: svc, db: db, notes: notes, seller: seller, buyer: buyer}
}

func score(n int) *int { return &n }

func itemInput() ItemInput {
	return ItemInput{
		Title:           "微积分教程",
		PriceLowerBound: 10,
		PriceUpperBound: 30,
		Meta: models.MetaInfo{
			Author: "同济大学", Course: "微积分", Teacher: "王老师",
			Description: "九成新", New: score(9),
		},
	}
}

func needInput() NeedInput {
	return NeedInput{
		Title:           "微积分",
		PriceLowerBound: 15,
		PriceUpperBound: 40,
		Meta:            models.MetaInfo{Author: "同济大学", Course: "微积分", Teacher: "王老师"},
	}
}

func TestUploadItem_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ItemInput)
		wantErr error
	}{
		{"empty title", func(in *ItemInput) { in.Title = "" }, ErrEmptyTitle},
		{"missing author", func(in *ItemInput) { in.Meta.Author = "" }, ErrInvalidMeta},
		{"missing description", func(in *ItemInput) { in.Meta.Description = "" }, ErrInvalidMeta},
		{"missing condition", func(in *ItemInput) { in.Meta.New = nil }, ErrInvalidMeta},
		{"condition out of range", func(in *ItemInput) { in.Meta.New = score(11) }, ErrInvalidMeta},
		{"negative lower bound", func(in *ItemInput) { in.PriceLowerBound = -1 }, ErrInvalidPrice},
		{"inverted bounds", func(in *ItemInput) { in.PriceLowerBound = 40 }, ErrInvalidPrice},
		{"above max price", func(in *ItemInput) { in.PriceUpperBound = 1000000 }, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := itemInput()
			tt.mutate(&in)
			if _, err := e.svc.UploadItem(ctx, e.seller, in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	item, err := e.svc.UploadItem(ctx, e.seller, itemInput())
	if err != nil {
		t.Fatalf("valid upload: %v", err)
	}
	if item.Username != e.seller.Email || item.UserID != e.seller.ID {
		t.Fatalf("owner fields not set: %+v", item)
	}
}

func TestUploadItem_NotifiesMatchingNeed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.RaiseNeed(ctx, e.buyer, needInput()); err != nil {
		t.Fatalf("raise need: %v", err)
	}
	item, err := e.svc.UploadItem(ctx, e.seller, itemInput())
	if err != nil {
		t.Fatalf("upload item: %v", err)
	}

	buyerNotes := e.notes.byRecipient(e.buyer.ID)
	if len(buyerNotes) != 2 {
		t.Fatalf("buyer notes = %d, want text + item id", len(buyerNotes))
	}
	if buyerNotes[0].Category != "chat_message" || buyerNotes[1].Category != "item_id" {
		t.Fatalf("buyer note categories: %+v", buyerNotes)
	}
	if buyerNotes[1].Content != item.ID {
		t.Fatalf("item id note = %q, want %q", buyerNotes[1].Content, item.ID)
	}
	sellerNotes := e.notes.byRecipient(e.seller.ID)
	if len(sellerNotes) != 1 || sellerNotes[0].Category != "chat_message" {
		t.Fatalf("seller notes: %+v", sellerNotes)
	}
}

func TestUploadItem_NoNotificationWithoutMatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Price ranges do not overlap, so the scan must skip this need.
	in := needInput()
	in.PriceLowerBound = 50
	in.PriceUpperBound = 80
	if _, err := e.svc.RaiseNeed(ctx, e.buyer, in); err != nil {
		t.Fatalf("raise need: %v", err)
	}
	if _, err := e.svc.UploadItem(ctx, e.seller, itemInput()); err != nil {
		t.Fatalf("upload item: %v", err)
	}
	if notes := e.notes.byRecipient(e.buyer.ID); len(notes) != 0 {
		t.Fatalf("unexpected notifications: %+v", notes)
	}
}

func TestUploadItem_OwnNeedNeverMatches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.RaiseNeed(ctx, e.seller, needInput()); err != nil {
		t.Fatalf("raise need: %v", err)
	}
	if _, err := e.svc.UploadItem(ctx, e.seller, itemInput()); err != nil {
		t.Fatalf("upload item: %v", err)
	}
	if notes := e.notes.byRecipient(e.seller.ID); len(notes) != 0 {
		t.Fatalf("self-match should not notify: %+v", notes)
	}
}

func TestModifyItem_Rules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	item, err := e.svc.UploadItem(ctx, e.seller, itemInput())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := e.svc.ModifyItem(ctx, e.buyer.ID, item.ID, itemInput()); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner modify: got %v, want ErrNotOwner", err)
	}
	if _, err := e.svc.ModifyItem(ctx, e.seller.ID, uuid.NewString(), itemInput()); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("missing item: got %v, want ErrItemNotFound", err)
	}

	in := itemInput()
	in.Title = "线性代数入门"
	in.PriceUpperBound = 25.999
	got, err := e.svc.ModifyItem(ctx, e.seller.ID, item.ID, in)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if got.Title != "线性代数入门" || got.PriceUpperBound != 26 {
		t.Fatalf("modify did not apply: %+v", got)
	}

	item.Sold = true
	if err := e.db.UpdateItem(item); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if _, err := e.svc.ModifyItem(ctx, e.seller.ID, item.ID, in); !errors.Is(err, ErrItemSold) {
		t.Fatalf("sold modify: got %v, want ErrItemSold", err)
	}
}

func TestDeleteItem_OwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	item, err := e.svc.UploadItem(ctx, e.seller, itemInput())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := e.svc.DeleteItem(e.buyer.ID, item.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner delete: got %v, want ErrNotOwner", err)
	}
	if err := e.svc.DeleteItem(e.seller.ID, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.svc.GetItem(item.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("item still present after delete: %v", err)
	}
}

func TestNeedLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.RaiseNeed(ctx, e.buyer, NeedInput{Title: "微积分"}); !errors.Is(err, ErrInvalidMeta) {
		t.Fatalf("missing meta: got %v, want ErrInvalidMeta", err)
	}

	need, err := e.svc.RaiseNeed(ctx, e.buyer, needInput())
	if err != nil {
		t.Fatalf("raise: %v", err)
	}

	// Condition score is optional for needs.
	in := needInput()
	in.Meta.New = score(8)
	if _, err := e.svc.ModifyNeed(ctx, e.buyer.ID, need.ID, in); err != nil {
		t.Fatalf("modify with condition: %v", err)
	}
	if _, err := e.svc.ModifyNeed(ctx, e.seller.ID, need.ID, in); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner modify: got %v, want ErrNotOwner", err)
	}

	// Reads are public.
	if _, err := e.svc.GetNeed(need.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	needs, err := e.svc.UserNeeds(e.buyer.ID)
	if err != nil || len(needs) != 1 {
		t.Fatalf("user needs = %v, %v", needs, err)
	}

	if err := e.svc.DeleteNeed(e.seller.ID, need.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner delete: got %v, want ErrNotOwner", err)
	}
	if err := e.svc.DeleteNeed(e.buyer.ID, need.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.svc.GetNeed(need.ID); !errors.Is(err, ErrNeedNotFound) {
		t.Fatalf("need still present: %v", err)
	}
}

func TestSearchByField(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.UploadItem(ctx, e.seller, itemInput()); err != nil {
		t.Fatalf("upload: %v", err)
	}
	other := itemInput()
	other.Title = "大学物理"
	other.Meta.Course = "大学物理"
	other.Meta.Teacher = "赵老师"
	if _, err := e.svc.UploadItem(ctx, e.seller, other); err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := e.svc.SearchByField("title", "微积分", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "微积分教程" {
		t.Fatalf("title search: %+v", got)
	}

	got, err = e.svc.SearchByField("teacher", "赵老师", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "大学物理" {
		t.Fatalf("teacher search: %+v", got)
	}

	// The searcher's own items are excluded.
	got, err = e.svc.SearchByField("title", "微积分", e.seller.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("own items leaked: %+v", got)
	}
}
