// bookmarket - campus second-hand book marketplace
// Copyright (C) 2025  bookmarket contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

// Package notify delivers match notifications to users. Messages land in
// each recipient's system chat room; delivery goes either straight to the
// store or through a Kafka outbox consumed by a worker.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/pkg/models"
)

// Categories mirror the websocket message kinds the original frontend
// switches on.
const (
	CategoryChatMessage = "chat_message"
	CategoryItemID      = "item_id"
)

// Notification is one message headed for a user's system room.
type Notification struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	Category    string `json:"category"`
}

// Notifier is the capability the listings service depends on. Failures
// are logged by callers and never roll back the transition that
// triggered the notification.
type Notifier interface {
	Notify(ctx context.Context, recipientID, content, category string) error
}

// StoreNotifier writes notifications directly into the recipient's
// system chat room. It is the default path when Kafka is not configured.
type StoreNotifier struct {
	db *database.DB
}

func NewStoreNotifier(db *database.DB) *StoreNotifier {
	return &StoreNotifier{db: db}
}

func (n *StoreNotifier) Notify(ctx context.Context, recipientID, content, category string) error {
	return Deliver(n.db, Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Content:     content,
		Category:    category,
	})
}

// Deliver persists a notification as a system-room message. The system
// room is created lazily on first delivery.
func Deliver(db *database.DB, msg Notification) error {
	room, err := db.GetOrCreateSystemRoom(msg.RecipientID)
	if err != nil {
		return fmt.Errorf("system room for %s: %w", msg.RecipientID, err)
	}
	return db.CreateMessage(&models.Message{
		ID:        msg.ID,
		RoomID:    room.ID,
		SenderID:  "",
		Content:   msg.Content,
		Category:  msg.Category,
		CreatedAt: time.Now(),
	})
}
