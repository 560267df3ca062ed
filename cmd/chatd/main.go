package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parley/chatd/internal/ban"
	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/config"
	"github.com/parley/chatd/internal/directory"
	"github.com/parley/chatd/internal/expiry"
	"github.com/parley/chatd/internal/messaging"
	"github.com/parley/chatd/internal/ratelimit"
	"github.com/parley/chatd/internal/server"
	"github.com/parley/chatd/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/chatd.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	log.Printf("chatd starting")
	log.Printf("  listen_addr:      %s", cfg.ListenAddr)
	log.Printf("  http_addr:        %s", cfg.HTTPAddr)
	log.Printf("  strikes_limit:    %d", cfg.StrikesLimit)
	log.Printf("  ban_period:       %s", cfg.BanPeriod.Std())
	log.Printf("  message_lifetime: %s", cfg.MessageLifetime.Std())
	log.Printf("  chat_dump_path:   %s", cfg.ChatDumpPath)
	log.Printf("  users_dump_path:  %s", cfg.UsersDumpPath)

	// --- State ---
	dir := directory.New(ban.Policy{Limit: cfg.StrikesLimit, Window: cfg.BanPeriod.Std()})
	history := chat.NewHistory()

	st := store.New(cfg.ChatDumpPath, cfg.UsersDumpPath)
	msgs, users, err := st.Load()
	if err != nil {
		log.Fatalf("load snapshots: %v", err)
	}
	history.Restore(msgs)
	dir.Restore(users)
	log.Printf("restored %d messages, %d users", len(msgs), len(users))

	saver := store.NewSaver(st, func() ([]chat.Message, []directory.UserState) {
		return history.Export(), dir.Export()
	}, cfg.SaveDebounce.Std())

	// --- Redis (optional, rate limiting) ---
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		cancel()
		defer rdb.Close()
		limiter = ratelimit.NewLimiter(rdb)
		log.Printf("  redis_addr:       %s (rate limiting on)", cfg.RedisAddr)
	}

	// --- NATS (optional, event publishing) ---
	var events *messaging.Client
	if cfg.NATSURL != "" {
		natsCfg := messaging.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		events, err = messaging.Connect(natsCfg)
		if err != nil {
			log.Fatalf("connect to nats at %s: %v", cfg.NATSURL, err)
		}
		defer events.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go saver.Run(ctx)

	worker := expiry.New(expiry.Config{
		Interval:        cfg.ExpiryInterval.Std(),
		MessageLifetime: cfg.MessageLifetime.Std(),
		PrivateLifetime: cfg.PrivateLifetime.Std(),
	}, history, dir, saver)
	go worker.Run(ctx)

	srv := server.New(cfg, dir, history, saver, limiter, events)
	if err := srv.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	cancel()

	if err := saver.Flush(); err != nil {
		log.Printf("final snapshot failed: %v", err)
	} else {
		log.Printf("final snapshot written")
	}
}
