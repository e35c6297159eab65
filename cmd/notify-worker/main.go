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

// notify-worker is a long-running Kafka consumer that drains the
// notification outbox topic and writes each message into the
// recipient's system chat room. Run it next to the server when
// notifications should be delivered out of process; consumers share a
// group, so scaling out splits the load rather than duplicating it.
//
// Configuration is done entirely via environment variables:
//
//	KAFKA_BROKERS           comma-separated broker list, e.g. "kafka:9092"
//	KAFKA_NOTIFY_TOPIC      outbox topic (default "notify-outbox")
//	KAFKA_NOTIFY_DLQ_TOPIC  dead-letter topic (default "notify-dlq")
//	DB_PATH                 SQLite database shared with the server
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/racktic/bookmarket/config"
	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/internal/notify"
)

func main() {
	cfg := config.Load()

	brokers := cfg.Kafka.Brokerlist()
	if len(brokers) == 0 {
		log.Fatal("notify-worker: required environment variable \"KAFKA_BROKERS\" is not set")
	}

	db, err := database.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("notify-worker: failed to open database: %v", err)
	}
	defer db.Close()

	consumer := notify.NewConsumer(brokers, cfg.Kafka.OutboxTopic, cfg.Kafka.DLQTopic, db)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Printf("notify-worker: error closing consumer: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("notify-worker: starting (brokers=%s db=%s)", cfg.Kafka.Brokers, cfg.DB.Path)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("notify-worker: fatal error: %v", err)
	}
	log.Println("notify-worker: shutdown complete")
}
