// Package models defines the persisted shapes shared across the market
// services: users, items, needs, purchases, class schedules and chat rooms.
// JSON tags follow the wire format of the public API.
package models

import (
	"fmt"
	"time"
)

// MaxPrice is the upper bound for any price field, inclusive.
const MaxPrice = 999999.99

// User is a registered student. Accounts are provisioned by the campus
// account system; this service stores no credentials.
type User struct {
	ID            string       `json:"id"`
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	EmailHash     string       `json:"-"`
	ClassSchedule []ClassEntry `json:"class_schedule,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// MetaInfo holds the structured metadata attached to items and needs.
// Items require every field; needs omit Description and may omit New.
type MetaInfo struct {
	Author      string `json:"author"`
	Course      string `json:"course"`
	Teacher     string `json:"teacher"`
	Description string `json:"description,omitempty"`
	// New grades condition 0..10; nil means "not stated" (needs only).
	New *int `json:"new,omitempty"`
}

// Item is a listing offered for sale.
type Item struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Username        string    `json:"username"` // owner's campus email
	PriceLowerBound float64   `json:"price_lower_bound"`
	PriceUpperBound float64   `json:"price_upper_bound"`
	UserID          string    `json:"user_id"`
	Meta            MetaInfo  `json:"meta_info"`
	Picture         string    `json:"picture,omitempty"`
	Sold            bool      `json:"sold"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Need is a standing request to buy something.
type Need struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Username        string    `json:"username"`
	PriceLowerBound float64   `json:"price_lower_bound"`
	PriceUpperBound float64   `json:"price_upper_bound"`
	UserID          string    `json:"user_id"`
	Meta            MetaInfo  `json:"meta_info"`
	IsFulfilled     bool      `json:"is_fulfilled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Purchase results values.
const (
	ResultPending  = 0
	ResultAccepted = 1
	ResultDeclined = 2
)

// Purchase is the live negotiation state for one (item, seller, buyer)
// triple. At most one row exists per triple; re-raising overwrites it.
type Purchase struct {
	ID           string     `json:"id"`
	ItemID       string     `json:"item_id"`
	SellerID     string     `json:"seller_id"`
	BuyerID      string     `json:"buyer_id"`
	RaiserID     string     `json:"raiser_id"`
	Price        float64    `json:"price"`
	Time         string     `json:"time"` // free-text slot label, e.g. 星期一第2节
	Place        string     `json:"place"`
	Checked      bool       `json:"checked"`
	CheckedAt    *time.Time `json:"checked_at,omitempty"`
	BuyerChecked bool       `json:"buyer_checked"`
	RoomSold     bool       `json:"room_sold"`
	Results      int        `json:"results"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Snapshot is the read view of a purchase returned by load calls.
type Snapshot struct {
	Price    float64 `json:"price"`
	Time     string  `json:"time"`
	Place    string  `json:"place"`
	RoomSold bool    `json:"room_sold"`
	Sold     bool    `json:"sold"`
	Results  int     `json:"results"`
}

// ClassEntry is one weekly class occurrence in a user's schedule.
// Day and Section are human labels validated against fixed lookup tables.
type ClassEntry struct {
	Course   string `json:"course"`
	Teacher  string `json:"teacher"`
	Location string `json:"location"`
	Day      string `json:"day"`
	Section  string `json:"section"`
}

// ChatRoom pairs a buyer with a seller around one item, or holds system
// notifications for a single user.
type ChatRoom struct {
	ID           string    `json:"id"`
	RoomName     string    `json:"room_name"`
	SellerID     string    `json:"seller_id,omitempty"`
	BuyerID      string    `json:"buyer_id,omitempty"`
	ItemID       string    `json:"item_id,omitempty"`
	IsSystemRoom bool      `json:"is_system_room"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is one persisted chat line.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomName returns the canonical name for an item negotiation room.
func RoomName(itemID, sellerID, buyerID string) string {
	return fmt.Sprintf("room_%s_%s_%s", itemID, sellerID, buyerID)
}

// SystemRoomName returns the canonical name for a user's system room.
func SystemRoomName(userID string) string {
	return "system_room_" + userID
}
