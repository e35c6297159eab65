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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/racktic/bookmarket/config"
	"github.com/racktic/bookmarket/internal/database"
	"github.com/racktic/bookmarket/internal/listings"
	"github.com/racktic/bookmarket/internal/match"
	"github.com/racktic/bookmarket/internal/notify"
	"github.com/racktic/bookmarket/internal/purchase"
	"github.com/racktic/bookmarket/internal/recommend"
	"github.com/racktic/bookmarket/internal/web/handlers"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bookmarket-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg := config.Load()

	// Initialize SQLite database.
	db, err := database.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Load the word segmenter once; the embedded dictionary takes a
	// moment to parse and is shared by matching and ranking.
	engine, err := match.NewEngine()
	if err != nil {
		log.Fatalf("Failed to load segmentation dictionary: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notifications are published to Kafka when brokers are configured
	// (delivery is then the notify-worker's job), otherwise written
	// straight to the chat store.
	var notifier notify.Notifier
	if brokers := cfg.Kafka.Brokerlist(); len(brokers) > 0 {
		kn := notify.NewKafkaNotifier(brokers, cfg.Kafka.OutboxTopic)
		defer kn.Close()
		notifier = kn
	} else {
		notifier = notify.NewStoreNotifier(db)
	}

	listingsService := listings.NewService(db, engine, notifier, cfg.Media.Dir)
	purchaseService := purchase.NewService(db, time.Duration(cfg.Purchase.ConfirmWindowSeconds)*time.Second)
	ranker := recommend.NewRanker(engine.Tokenizer())

	// Initialize router.
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	h := handlers.New(db, cfg, listingsService, purchaseService, ranker)
	h.Routes(r)

	// Item pictures.
	fileServer := http.FileServer(http.Dir(cfg.Media.Dir))
	r.Handle("/media/*", http.StripPrefix("/media/", fileServer))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("bookmarket-server %s listening on :%s (env: %s)", version, cfg.Server.Port, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
