// Package purchase implements the offer/response negotiation between a
// buyer and a seller over a single item. Each (item, seller, buyer)
// triple owns at most one live negotiation; transitions are serialized
// by a keyed lock so concurrent polls cannot interleave.
package purchase

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/pkg/models"
)

// lockTable hands out one mutex per key so unrelated negotiations never
// contend with each other. Entries are never reclaimed; the table grows
// with the number of distinct triples, which is bounded by the data set.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (lt *lockTable) get(key string) *sync.Mutex {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.locks == nil {
		lt.locks = make(map[string]*sync.Mutex)
	}
	l, ok := lt.locks[key]
	if !ok {
		l = &sync.Mutex{}
		lt.locks[key] = l
	}
	return l
}

// Service drives the negotiation state machine on top of the database.
type Service struct {
	db     *database.DB
	window time.Duration
	now    func() time.Time
	locks  lockTable
}

// NewService builds a Service with the given confirmation window: once
// the counterpart has read an offer, the seller has this long to decide
// before the negotiation auto-declines.
func NewService(db *database.DB, window time.Duration) *Service {
	return &Service{db: db, window: window, now: time.Now}
}

func tripleKey(itemID, sellerID, buyerID string) string {
	return itemID + "|" + sellerID + "|" + buyerID
}

func snapshot(p *models.Purchase, itemSold bool) *models.Snapshot {
	return &models.Snapshot{
		Price:    p.Price,
		Time:     p.Time,
		Place:    p.Place,
		RoomSold: p.RoomSold,
		Sold:     itemSold,
		Results:  p.Results,
	}
}

// Raise creates or overwrites the negotiation terms for a triple. Either
// party may raise; once a negotiation exists only its current raiser may
// overwrite it. Overwriting resets every read/decision flag, so a fresh
// raise after a decline starts a clean cycle.
func (s *Service) Raise(itemID, sellerID, buyerID, raiserID string, price float64, timeSlot, place string) error {
	if sellerID == buyerID {
		return ErrSameParty
	}
	if raiserID != sellerID && raiserID != buyerID {
		return ErrNotParty
	}
	if price < 0 || price > models.MaxPrice {
		return ErrInvalidPrice
	}
	price = math.Round(price*100) / 100

	lock := s.locks.get(tripleKey(itemID, sellerID, buyerID))
	lock.Lock()
	defer lock.Unlock()

	item, err := s.db.GetItem(itemID)
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return ErrItemNotFound
	}
	if item.UserID != sellerID {
		return ErrSellerMismatch
	}
	if item.Sold {
		return ErrItemSold
	}

	p, err := s.db.GetPurchase(itemID, sellerID, buyerID)
	if err != nil {
		return fmt.Errorf("load purchase: %w", err)
	}
	if p == nil {
		now := s.now()
		return s.db.CreatePurchase(&models.Purchase{
			ID:        uuid.NewString(),
			ItemID:    itemID,
			SellerID:  sellerID,
			BuyerID:   buyerID,
			RaiserID:  raiserID,
			Price:     price,
			Time:      timeSlot,
			Place:     place,
			Results:   models.ResultPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if p.RaiserID != raiserID {
		return ErrNotRaiser
	}
	return s.db.ReplacePurchaseTerms(p.ID, price, place, timeSlot)
}

// Load reads the negotiation state on behalf of checkerID and advances
// the read-once bookkeeping. The first read by each side in each phase
// succeeds with a snapshot; a repeated read returns the same snapshot
// together with ErrNoNewData so callers can answer 404-with-body the
// way the original frontend expects.
//
// A negotiation that sat undecided longer than the window after being
// read is declined here, lazily, before any branching.
func (s *Service) Load(itemID, sellerID, buyerID, checkerID string) (*models.Snapshot, error) {
	if checkerID != sellerID && checkerID != buyerID {
		return nil, ErrNotParty
	}

	lock := s.locks.get(tripleKey(itemID, sellerID, buyerID))
	lock.Lock()
	defer lock.Unlock()

	item, err := s.db.GetItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	p, err := s.db.GetPurchase(itemID, sellerID, buyerID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p == nil {
		return nil, ErrPurchaseNotFound
	}

	if p.Checked && p.Results == models.ResultPending && p.CheckedAt != nil &&
		s.now().Sub(*p.CheckedAt) > s.window {
		if err := s.db.SetPurchaseResults(p.ID, models.ResultDeclined); err != nil {
			return nil, fmt.Errorf("expire purchase: %w", err)
		}
		p.Results = models.ResultDeclined
	}

	if checkerID != p.RaiserID {
		// Counterpart side: sees the offer exactly once.
		if !p.Checked {
			at := s.now()
			if err := s.db.MarkPurchaseChecked(p.ID, at); err != nil {
				return nil, fmt.Errorf("mark checked: %w", err)
			}
			p.Checked = true
			p.CheckedAt = &at
			return snapshot(p, item.Sold), nil
		}
		return snapshot(p, item.Sold), ErrNoNewData
	}

	// Raiser side: nothing to see until the counterpart decided.
	if p.Results == models.ResultPending {
		return nil, ErrNothingToCheck
	}
	if !p.BuyerChecked {
		if err := s.db.MarkPurchaseBuyerChecked(p.ID); err != nil {
			return nil, fmt.Errorf("mark buyer checked: %w", err)
		}
		p.BuyerChecked = true
		return snapshot(p, item.Sold), nil
	}
	return snapshot(p, item.Sold), ErrNoNewData
}

// Confirm records the seller's decision and returns the resulting
// results value. Accepting inside the window marks the purchase
// accepted and the item sold atomically; anything else, including a
// confirm that arrives after the window or before the seller ever read
// the offer, declines.
func (s *Service) Confirm(itemID, sellerID, buyerID, responderID string, confirm bool) (int, error) {
	if responderID != sellerID {
		return 0, ErrNotSeller
	}

	lock := s.locks.get(tripleKey(itemID, sellerID, buyerID))
	lock.Lock()
	defer lock.Unlock()

	item, err := s.db.GetItem(itemID)
	if err != nil {
		return 0, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return 0, ErrItemNotFound
	}
	p, err := s.db.GetPurchase(itemID, sellerID, buyerID)
	if err != nil {
		return 0, fmt.Errorf("load purchase: %w", err)
	}
	if p == nil {
		return 0, ErrPurchaseNotFound
	}
	if p.Results != models.ResultPending {
		return 0, ErrAlreadyDecided
	}

	inWindow := p.Checked && p.CheckedAt != nil && s.now().Sub(*p.CheckedAt) <= s.window
	if confirm && inWindow {
		if err := s.db.AcceptPurchase(p.ID, itemID); err != nil {
			return 0, fmt.Errorf("accept: %w", err)
		}
		return models.ResultAccepted, nil
	}
	if err := s.db.SetPurchaseResults(p.ID, models.ResultDeclined); err != nil {
		return 0, fmt.Errorf("decline: %w", err)
	}
	return models.ResultDeclined, nil
}
