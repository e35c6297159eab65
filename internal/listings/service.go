// Package listings owns the item and need lifecycle: validation,
// persistence, the match scan that pairs new items with standing needs,
// and the notification fan-out to both sides of a match.
package listings

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/internal/match"
	"github.com/racktic/bookmarket/internal/notify"
	"github.com/racktic/bookmarket/pkg/models"
)

type Service struct {
	db       *database.DB
	engine   *match.Engine
	notifier notify.Notifier
	mediaDir string
}

func NewService(db *database.DB, engine *match.Engine, notifier notify.Notifier, mediaDir string) *Service {
	return &Service{db: db, engine: engine, notifier: notifier, mediaDir: mediaDir}
}

// ItemInput carries the client-supplied fields of an item.
type ItemInput struct {
	Title           string          `json:"title"`
	PriceLowerBound float64         `json:"price_lower_bound"`
	PriceUpperBound float64         `json:"price_upper_bound"`
	Meta            models.MetaInfo `json:"meta_info"`
	Picture         string          `json:"picture,omitempty"`
}

// NeedInput carries the client-supplied fields of a need.
type NeedInput struct {
	Title           string          `json:"title"`
	PriceLowerBound float64         `json:"price_lower_bound"`
	PriceUpperBound float64         `json:"price_upper_bound"`
	Meta            models.MetaInfo `json:"meta_info"`
}

func validatePrices(lower, upper float64) (float64, float64, error) {
	if lower < 0 || upper > models.MaxPrice || lower > upper {
		return 0, 0, ErrInvalidPrice
	}
	return math.Round(lower*100) / 100, math.Round(upper*100) / 100, nil
}

// validateItemMeta enforces the required item fields: author, course,
// teacher, description, and a condition score in 0..10.
func validateItemMeta(m models.MetaInfo) error {
	if m.Author == "" || m.Course == "" || m.Teacher == "" || m.Description == "" {
		return fmt.Errorf("%w: author, course, teacher and description are required", ErrInvalidMeta)
	}
	if m.New == nil {
		return fmt.Errorf("%w: new is required", ErrInvalidMeta)
	}
	if *m.New < 0 || *m.New > 10 {
		return fmt.Errorf("%w: new must be in 0..10", ErrInvalidMeta)
	}
	return nil
}

// validateNeedMeta enforces the required need fields; the condition
// score is optional for needs.
func validateNeedMeta(m models.MetaInfo) error {
	if m.Author == "" || m.Course == "" || m.Teacher == "" {
		return fmt.Errorf("%w: author, course and teacher are required", ErrInvalidMeta)
	}
	if m.New != nil && (*m.New < 0 || *m.New > 10) {
		return fmt.Errorf("%w: new must be in 0..10", ErrInvalidMeta)
	}
	return nil
}

// UploadItem validates and stores a new item, then scans standing needs
// and notifies both sides of every match.
func (s *Service) UploadItem(ctx context.Context, owner *models.User, in ItemInput) (*models.Item, error) {
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateItemMeta(in.Meta); err != nil {
		return nil, err
	}
	lower, upper, err := validatePrices(in.PriceLowerBound, in.PriceUpperBound)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item := &models.Item{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Username:        owner.Email,
		PriceLowerBound: lower,
		PriceUpperBound: upper,
		UserID:          owner.ID,
		Meta:            in.Meta,
		Picture:         in.Picture,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.CreateItem(item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.scanNeedsFor(ctx, item)
	return item, nil
}

// ModifyItem overwrites a listing's client-editable fields. Only the
// owner may modify, and a sold item is immutable.
func (s *Service) ModifyItem(ctx context.Context, ownerID, itemID string, in ItemInput) (*models.Item, error) {
	item, err := s.db.GetItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if item.UserID != ownerID {
		return nil, ErrNotOwner
	}
	if item.Sold {
		return nil, ErrItemSold
	}
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateItemMeta(in.Meta); err != nil {
		return nil, err
	}
	lower, upper, err := validatePrices(in.PriceLowerBound, in.PriceUpperBound)
	if err != nil {
		return nil, err
	}

	item.Title = in.Title
	item.PriceLowerBound = lower
	item.PriceUpperBound = upper
	item.Meta = in.Meta
	if in.Picture != "" {
		item.Picture = in.Picture
	}
	item.UpdatedAt = time.Now()
	if err := s.db.UpdateItem(item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	s.scanNeedsFor(ctx, item)
	return item, nil
}

// DeleteItem removes a listing and its stored picture, if any.
func (s *Service) DeleteItem(ownerID, itemID string) error {
	item, err := s.db.GetItem(itemID)
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return ErrItemNotFound
	}
	if item.UserID != ownerID {
		return ErrNotOwner
	}
	if err := s.db.DeleteItem(itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if item.Picture != "" {
		path := filepath.Join(s.mediaDir, filepath.Base(item.Picture))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("listings: removing picture %s: %v", path, err)
		}
	}
	return nil
}

// GetItem returns an item by id regardless of sold state.
func (s *Service) GetItem(itemID string) (*models.Item, error) {
	item, err := s.db.GetItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// UserItems returns a user's unsold listings.
func (s *Service) UserItems(userID string) ([]models.Item, error) {
	return s.db.ListItemsByUser(userID)
}

// RaiseNeed validates and stores a standing need, then scans unsold
// items of other users for matches.
func (s *Service) RaiseNeed(ctx context.Context, owner *models.User, in NeedInput) (*models.Need, error) {
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateNeedMeta(in.Meta); err != nil {
		return nil, err
	}
	lower, upper, err := validatePrices(in.PriceLowerBound, in.PriceUpperBound)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	need := &models.Need{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Username:        owner.Email,
		PriceLowerBound: lower,
		PriceUpperBound: upper,
		UserID:          owner.ID,
		Meta:            in.Meta,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.CreateNeed(need); err != nil {
		return nil, fmt.Errorf("create need: %w", err)
	}
	s.scanItemsFor(ctx, need)
	return need, nil
}

// ModifyNeed overwrites a need's client-editable fields; owner only.
func (s *Service) ModifyNeed(ctx context.Context, ownerID, needID string, in NeedInput) (*models.Need, error) {
	need, err := s.db.GetNeed(needID)
	if err != nil {
		return nil, fmt.Errorf("load need: %w", err)
	}
	if need == nil {
		return nil, ErrNeedNotFound
	}
	if need.UserID != ownerID {
		return nil, ErrNotOwner
	}
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateNeedMeta(in.Meta); err != nil {
		return nil, err
	}
	lower, upper, err := validatePrices(in.PriceLowerBound, in.PriceUpperBound)
	if err != nil {
		return nil, err
	}

	need.Title = in.Title
	need.PriceLowerBound = lower
	need.PriceUpperBound = upper
	need.Meta = in.Meta
	need.UpdatedAt = time.Now()
	if err := s.db.UpdateNeed(need); err != nil {
		return nil, fmt.Errorf("update need: %w", err)
	}
	s.scanItemsFor(ctx, need)
	return need, nil
}

// DeleteNeed removes a need; owner only.
func (s *Service) DeleteNeed(ownerID, needID string) error {
	need, err := s.db.GetNeed(needID)
	if err != nil {
		return fmt.Errorf("load need: %w", err)
	}
	if need == nil {
		return ErrNeedNotFound
	}
	if need.UserID != ownerID {
		return ErrNotOwner
	}
	return s.db.DeleteNeed(needID)
}

// GetNeed returns a need by id; reads are public.
func (s *Service) GetNeed(needID string) (*models.Need, error) {
	need, err := s.db.GetNeed(needID)
	if err != nil {
		return nil, fmt.Errorf("load need: %w", err)
	}
	if need == nil {
		return nil, ErrNeedNotFound
	}
	return need, nil
}

// UserNeeds returns a user's open needs.
func (s *Service) UserNeeds(userID string) ([]models.Need, error) {
	return s.db.ListNeedsByUser(userID)
}

// FindMatchingNeeds returns the unfulfilled needs of other users whose
// price range overlaps the item's and whose text matches it.
func (s *Service) FindMatchingNeeds(item *models.Item) ([]models.Need, error) {
	needs, err := s.db.ListOpenNeeds()
	if err != nil {
		return nil, fmt.Errorf("list needs: %w", err)
	}
	var out []models.Need
	for i := range needs {
		n := &needs[i]
		if n.UserID == item.UserID {
			continue
		}
		if !match.PriceOverlap(n.PriceLowerBound, n.PriceUpperBound, item.PriceLowerBound, item.PriceUpperBound) {
			continue
		}
		if s.engine.Matches(item, n) {
			out = append(out, *n)
		}
	}
	return out, nil
}

// FindMatchingItems returns the unsold items of other users whose price
// range overlaps the need's and whose text matches it.
func (s *Service) FindMatchingItems(need *models.Need) ([]models.Item, error) {
	items, err := s.db.ListOpenItems()
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	var out []models.Item
	for i := range items {
		it := &items[i]
		if it.UserID == need.UserID {
			continue
		}
		if !match.PriceOverlap(it.PriceLowerBound, it.PriceUpperBound, need.PriceLowerBound, need.PriceUpperBound) {
			continue
		}
		if s.engine.Matches(it, need) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *Service) scanNeedsFor(ctx context.Context, item *models.Item) {
	needs, err := s.FindMatchingNeeds(item)
	if err != nil {
		log.Printf("listings: match scan for item %s: %v", item.ID, err)
		return
	}
	for i := range needs {
		s.notifyMatch(ctx, item, &needs[i])
	}
}

func (s *Service) scanItemsFor(ctx context.Context, need *models.Need) {
	items, err := s.FindMatchingItems(need)
	if err != nil {
		log.Printf("listings: match scan for need %s: %v", need.ID, err)
		return
	}
	for i := range items {
		s.notifyMatch(ctx, &items[i], need)
	}
}

// notifyMatch pushes the match to both sides. The buyer gets a text
// line plus a separate item-id line the frontend turns into a link; the
// seller gets a text line. Delivery failures are logged and never
// surfaced to the caller.
func (s *Service) notifyMatch(ctx context.Context, item *models.Item, need *models.Need) {
	buyerMessage := fmt.Sprintf("以为您的需求 '%s' 匹配到新发布的商品！请点击下访链接跳转到商品页面并与卖家联系。", need.Title)
	if err := s.notifier.Notify(ctx, need.UserID, buyerMessage, notify.CategoryChatMessage); err != nil {
		log.Printf("listings: notify buyer %s: %v", need.UserID, err)
	}
	if err := s.notifier.Notify(ctx, need.UserID, item.ID, notify.CategoryItemID); err != nil {
		log.Printf("listings: notify buyer %s: %v", need.UserID, err)
	}
	sellerMessage := fmt.Sprintf("您的物品 '%s' 与已有需求匹配！请查看您的聊天中是否有买家联系您。", item.Title)
	if err := s.notifier.Notify(ctx, item.UserID, sellerMessage, notify.CategoryChatMessage); err != nil {
		log.Printf("listings: notify seller %s: %v", item.UserID, err)
	}
}

// SearchByField segments the keyword and returns unsold items where any
// token is contained in the chosen field. Unknown fields fall back to
// title. excludeUserID removes the searcher's own listings when set.
func (s *Service) SearchByField(contentType, keyword, excludeUserID string) ([]models.Item, error) {
	items, err := s.db.ListOpenItems()
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	tokens := s.engine.Tokenizer().Tokens(keyword)
	if len(tokens) == 0 {
		return []models.Item{}, nil
	}
	out := []models.Item{}
	for _, it := range items {
		if excludeUserID != "" && it.UserID == excludeUserID {
			continue
		}
		if match.KeywordHit(searchField(&it, contentType), tokens) {
			out = append(out, it)
		}
	}
	return out, nil
}

func searchField(it *models.Item, contentType string) string {
	switch contentType {
	case "course":
		return it.Meta.Course
	case "teacher":
		return it.Meta.Teacher
	case "author":
		return it.Meta.Author
	case "username":
		return it.Username
	case "description":
		return it.Meta.Description
	default:
		return it.Title
	}
}
