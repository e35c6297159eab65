package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/racktic/bookmarket/pkg/identity"
	"github.com/racktic/bookmarket/pkg/models"
)

// CreateUser provisions an account. Emails are normalized and hashed so
// alias spellings of the same campus address collapse to one user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" {
		jsonMessage(w, http.StatusBadRequest, "username and email are required")
		return
	}

	hash := identity.EmailHash(req.Email)
	existing, err := h.db.GetUserByEmailHash(hash)
	if err != nil {
		serviceError(w, err)
		return
	}
	if existing != nil {
		jsonMessage(w, http.StatusConflict, "User already exists")
		return
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     identity.NormalizeEmail(req.Email),
		EmailHash: hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.db.CreateUser(user); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"id":      user.ID,
	})
}

// CreateChatRoom creates or reuses the room pairing a buyer with an
// item's seller.
func (h *Handler) CreateChatRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID     string `json:"item_id"`
		BuyerEmail string `json:"buyer_email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	buyer := h.userByEmail(w, req.BuyerEmail)
	if buyer == nil {
		return
	}
	item, err := h.listings.GetItem(req.ItemID)
	if err != nil {
		serviceError(w, err)
		return
	}

	room, created, err := h.db.GetOrCreateItemRoom(item.ID, item.UserID, buyer.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	message := "Chat room already exists."
	if created {
		message = "Chat room created successfully."
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message":   message,
		"room_name": room.RoomName,
		"created":   created,
	})
}

// CheckChatRooms lists the caller's rooms, system room included.
func (h *Handler) CheckChatRooms(w http.ResponseWriter, r *http.Request) {
	user := h.userByEmail(w, r.URL.Query().Get("username"))
	if user == nil {
		return
	}
	rooms, err := h.db.ListRoomsByUser(user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(rooms))
	for _, room := range rooms {
		data := map[string]interface{}{
			"room_name":      room.RoomName,
			"is_system_room": room.IsSystemRoom,
		}
		if room.IsSystemRoom {
			data["buyer_email"] = h.emailOf(room.BuyerID)
			data["buyer_id"] = room.BuyerID
		} else {
			data["seller_email"] = h.emailOf(room.SellerID)
			data["buyer_email"] = h.emailOf(room.BuyerID)
			data["seller_id"] = room.SellerID
			data["buyer_id"] = room.BuyerID
		}
		out = append(out, data)
	}
	jsonResponse(w, http.StatusOK, out)
}

// ChatMessages returns a room's messages oldest first.
func (h *Handler) ChatMessages(w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("room_name")
	room, err := h.db.GetRoomByName(roomName)
	if err != nil {
		serviceError(w, err)
		return
	}
	if room == nil {
		jsonMessage(w, http.StatusNotFound, "Room not found")
		return
	}
	msgs, err := h.db.ListMessages(room.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	jsonResponse(w, http.StatusOK, msgs)
}

func (h *Handler) emailOf(userID string) string {
	if userID == "" {
		return ""
	}
	user, err := h.db.GetUserByID(userID)
	if err != nil || user == nil {
		return ""
	}
	return user.Email
}
