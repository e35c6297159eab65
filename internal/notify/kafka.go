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

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"

	"github.com/racktic/bookmarket/internal/database"
)

const (
	// DefaultOutboxTopic is where the web service publishes notifications.
	DefaultOutboxTopic = "notify-outbox"

	// DefaultDLQTopic receives messages that exhaust all retries so they
	// can be inspected and replayed without blocking the consumer.
	DefaultDLQTopic = "notify-dlq"

	// maxRetries is the number of store-write attempts before a message
	// is routed to the DLQ. Each attempt adds a short backoff.
	maxRetries = 3
)

// KafkaNotifier publishes notifications to the outbox topic. Async mode
// keeps Notify from blocking the HTTP request that triggered it; a lost
// notification costs the user a system-room line, not data.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultOutboxTopic
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, recipientID, content, category string) error {
	msg := Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Content:     content,
		Category:    category,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(recipientID),
		Value: value,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// Consumer drains the outbox topic and writes each notification into
// the recipient's system room. Offsets are committed only after the
// store write, giving at-least-once delivery; a duplicate shows the
// user the same line twice rather than silently losing it.
type Consumer struct {
	reader *kafka.Reader
	dlq    *kafka.Writer
	db     *database.DB
}

func NewConsumer(brokers []string, outboxTopic, dlqTopic string, db *database.DB) *Consumer {
	if outboxTopic == "" {
		outboxTopic = DefaultOutboxTopic
	}
	if dlqTopic == "" {
		dlqTopic = DefaultDLQTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          outboxTopic,
		GroupID:        "bookmarket-notify",
		MinBytes:       1,
		MaxBytes:       1 << 20, // 1 MiB
		CommitInterval: 0,       // explicit commits only
		StartOffset:    kafka.LastOffset,
	})
	dlq := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        dlqTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Consumer{reader: reader, dlq: dlq, db: db}
}

// Run blocks, consuming notifications until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("notify: consuming from topic %q", c.reader.Config().Topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		if err := c.dispatch(ctx, m); err != nil {
			// dispatch already sent the message to the DLQ; commit so
			// the consumer keeps making progress.
			log.Printf("notify: routed message key=%s to DLQ: %v", string(m.Key), err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("notify: commit failed (message may be redelivered): %v", err)
		}
	}
}

func (c *Consumer) Close() error {
	rerr := c.reader.Close()
	werr := c.dlq.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// dispatch writes the notification to the store, retrying with backoff
// before giving up to the DLQ.
func (c *Consumer) dispatch(ctx context.Context, m kafka.Message) error {
	var msg Notification
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return c.sendToDLQ(ctx, m, fmt.Errorf("unmarshal: %w", err))
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = Deliver(c.db, msg)
		if lastErr == nil {
			return nil
		}

		log.Printf("notify: attempt %d/%d failed for id=%s: %v", attempt, maxRetries, msg.ID, lastErr)

		if attempt < maxRetries {
			backoff := time.Duration(attempt) * 2 * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return c.sendToDLQ(ctx, m, lastErr)
}

func (c *Consumer) sendToDLQ(ctx context.Context, original kafka.Message, reason error) error {
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   original.Key,
		Value: original.Value,
	})
	if err != nil {
		log.Printf("notify: could not write to DLQ: %v", err)
	}
	return reason
}
