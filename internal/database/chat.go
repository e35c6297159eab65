package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/racktic/bookmarket/pkg/models"
)

const roomColumns = `id, room_name, seller_id, buyer_id, item_id, is_system_room, created_at`

func scanRoom(row interface{ Scan(...interface{}) error }) (*models.ChatRoom, error) {
	r := &models.ChatRoom{}
	err := row.Scan(&r.ID, &r.RoomName, &r.SellerID, &r.BuyerID, &r.ItemID, &r.IsSystemRoom, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRoomByName looks up a chat room by its canonical name.
// Returns (nil, nil) when the room does not exist.
func (db *DB) GetRoomByName(name string) (*models.ChatRoom, error) {
	q := `SELECT ` + roomColumns + ` FROM chat_rooms WHERE room_name = ?`
	return scanRoom(db.conn.QueryRow(q, name))
}

// CreateRoom inserts a chat room.
func (db *DB) CreateRoom(r *models.ChatRoom) error {
	const q = `INSERT INTO chat_rooms (id, room_name, seller_id, buyer_id, item_id, is_system_room, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(q, r.ID, r.RoomName, r.SellerID, r.BuyerID, r.ItemID, r.IsSystemRoom, r.CreatedAt)
	return err
}

// GetOrCreateItemRoom returns the negotiation room for an (item, seller,
// buyer) triple, creating it on first use. The second result reports
// whether a new room was created.
func (db *DB) GetOrCreateItemRoom(itemID, sellerID, buyerID string) (*models.ChatRoom, bool, error) {
	name := models.RoomName(itemID, sellerID, buyerID)
	if room, err := db.GetRoomByName(name); err != nil {
		return nil, false, err
	} else if room != nil {
		return room, false, nil
	}

	room := &models.ChatRoom{
		ID:        uuid.New().String(),
		RoomName:  name,
		SellerID:  sellerID,
		BuyerID:   buyerID,
		ItemID:    itemID,
		CreatedAt: time.Now(),
	}
	if err := db.CreateRoom(room); err != nil {
		return nil, false, fmt.Errorf("create room %s: %w", name, err)
	}
	return room, true, nil
}

// GetOrCreateSystemRoom returns a user's system notification room,
// creating it lazily. System rooms carry only the recipient.
func (db *DB) GetOrCreateSystemRoom(userID string) (*models.ChatRoom, error) {
	name := models.SystemRoomName(userID)
	if room, err := db.GetRoomByName(name); err != nil {
		return nil, err
	} else if room != nil {
		return room, nil
	}

	room := &models.ChatRoom{
		ID:           uuid.New().String(),
		RoomName:     name,
		BuyerID:      userID,
		IsSystemRoom: true,
		CreatedAt:    time.Now(),
	}
	if err := db.CreateRoom(room); err != nil {
		return nil, fmt.Errorf("create system room %s: %w", name, err)
	}
	return room, nil
}

// ListRoomsByUser returns every room the user participates in, system
// rooms included, oldest first.
func (db *DB) ListRoomsByUser(userID string) ([]models.ChatRoom, error) {
	q := `SELECT ` + roomColumns + ` FROM chat_rooms WHERE seller_id = ? OR buyer_id = ? ORDER BY created_at`
	rows, err := db.conn.Query(q, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatRoom
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CreateMessage persists one chat line.
func (db *DB) CreateMessage(m *models.Message) error {
	const q = `INSERT INTO messages (id, room_id, sender_id, content, category, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(q, m.ID, m.RoomID, m.SenderID, m.Content, m.Category, m.CreatedAt)
	return err
}

// ListMessages returns a room's messages oldest first.
func (db *DB) ListMessages(roomID string) ([]models.Message, error) {
	const q = `SELECT id, room_id, sender_id, content, category, created_at FROM messages WHERE room_id = ? ORDER BY created_at`
	rows, err := db.conn.Query(q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Category, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
