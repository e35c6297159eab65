package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/racktic/bookmarket/pkg/models"
)

const purchaseColumns = `id, item_id, seller_id, buyer_id, raiser_id, price, time_slot, place,
	checked, checked_at, buyer_checked, room_sold, results, created_at, updated_at`

func scanPurchase(row interface{ Scan(...interface{}) error }) (*models.Purchase, error) {
	p := &models.Purchase{}
	var checkedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.ItemID, &p.SellerID, &p.BuyerID, &p.RaiserID,
		&p.Price, &p.Time, &p.Place,
		&p.Checked, &checkedAt, &p.BuyerChecked, &p.RoomSold, &p.Results,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if checkedAt.Valid {
		t := checkedAt.Time
		p.CheckedAt = &t
	}
	return p, nil
}

// CreatePurchase inserts a fresh purchase row for a triple.
func (db *DB) CreatePurchase(p *models.Purchase) error {
	const q = `INSERT INTO purchases (id, item_id, seller_id, buyer_id, raiser_id, price, time_slot, place,
	           checked, checked_at, buyer_checked, room_sold, results, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(q,
		p.ID, p.ItemID, p.SellerID, p.BuyerID, p.RaiserID, p.Price, p.Time, p.Place,
		p.Checked, nullTime(p.CheckedAt), p.BuyerChecked, p.RoomSold, p.Results,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPurchase returns the live purchase for an (item, seller, buyer) triple.
func (db *DB) GetPurchase(itemID, sellerID, buyerID string) (*models.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE item_id = ? AND seller_id = ? AND buyer_id = ?`
	return scanPurchase(db.conn.QueryRow(q, itemID, sellerID, buyerID))
}

// ReplacePurchaseTerms overwrites the negotiated terms of an existing
// purchase and resets its read/decision state to the initial values.
func (db *DB) ReplacePurchaseTerms(id string, price float64, place, timeSlot string) error {
	const q = `UPDATE purchases SET price = ?, place = ?, time_slot = ?,
	           checked = 0, checked_at = NULL, buyer_checked = 0, room_sold = 0, results = ?, updated_at = ?
	           WHERE id = ?`
	_, err := db.conn.Exec(q, price, place, timeSlot, models.ResultPending, time.Now(), id)
	return err
}

// MarkPurchaseChecked records the counterpart's first read.
func (db *DB) MarkPurchaseChecked(id string, at time.Time) error {
	const q = `UPDATE purchases SET checked = 1, checked_at = ?, updated_at = ? WHERE id = ?`
	_, err := db.conn.Exec(q, at, at, id)
	return err
}

// MarkPurchaseBuyerChecked records the raiser's post-decision read.
func (db *DB) MarkPurchaseBuyerChecked(id string) error {
	const q = `UPDATE purchases SET buyer_checked = 1, updated_at = ? WHERE id = ?`
	_, err := db.conn.Exec(q, time.Now(), id)
	return err
}

// SetPurchaseResults writes a decision value.
func (db *DB) SetPurchaseResults(id string, results int) error {
	const q = `UPDATE purchases SET results = ?, updated_at = ? WHERE id = ?`
	_, err := db.conn.Exec(q, results, time.Now(), id)
	return err
}

// AcceptPurchase marks the purchase accepted and the item sold in one
// transaction, so no reader can observe one without the other.
func (db *DB) AcceptPurchase(purchaseID, itemID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin accept: %w", err)
	}
	now := time.Now()
	if _, err := tx.Exec(
		`UPDATE purchases SET results = ?, room_sold = 1, updated_at = ? WHERE id = ?`,
		models.ResultAccepted, now, purchaseID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("accept purchase: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE items SET sold = 1, updated_at = ? WHERE id = ?`, now, itemID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("mark item sold: %w", err)
	}
	return tx.Commit()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
