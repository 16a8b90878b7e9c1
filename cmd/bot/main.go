package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ChipSentinel/internal/api"
	"ChipSentinel/internal/cache"
	"ChipSentinel/internal/collector"
	"ChipSentinel/internal/config"
	"ChipSentinel/internal/metrics"
	"ChipSentinel/internal/notifier"
	"ChipSentinel/internal/scheduler"
	"ChipSentinel/internal/screener"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] ChipSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	default:
		fetcher = collector.NewFinMindFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIToken, cfg.Proxy)
	}
	fetcher = collector.NewThrottledFetcher(fetcher, cfg.DataSource.Throttle)
	log.Printf("[INFO] data source: %s (throttle %v)", fetcher.Name(), cfg.DataSource.Throttle)

	// Init cache
	store := openCache(cfg)
	defer store.Close()
	log.Printf("[INFO] series cache: %s (ttl %v)", store.Name(), cfg.Cache.TTL)

	// Init collector and screener
	col := collector.NewCollector(fetcher, store, cfg.Cache.TTL, m)
	scr := screener.New(col, cfg.Strategy, m)
	scr.SingleLookback = cfg.Single.LookbackDays
	scr.ScanLookback = cfg.Scan.LookbackDays
	health := metrics.NewHealthStatus(fetcher.Name(), store.Name())
	scr.Health = health

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	sched := scheduler.NewScheduler(ctx, scr, nil, cfg.Scan.Watchlist)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sched.Notifier = tn
	} else {
		log.Println("[WARN] Telegram not configured, scan reports will only be logged")
	}

	// Init scheduler
	if err := sched.RegisterAll(cfg.Scan.Cron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Start HTTP API
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(scr, cfg.Scan.Watchlist, health, reg).Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] HTTP API listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] HTTP server: %v", err)
		}
	}()

	// Optional: run immediately on start
	if config.EnvBool("RUN_ON_START") {
		log.Println("[INFO] RUN_ON_START enabled, executing watchlist scan now")
		sched.RunScanAsync()
	}

	log.Println("[INFO] ChipSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] HTTP shutdown: %v", err)
	}
	log.Println("[INFO] ChipSentinel stopped")
}

// openCache builds the configured backend, falling back to memory when it cannot connect.
func openCache(cfg *config.Config) cache.Cache {
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNoop()
	case "redis":
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			log.Printf("[WARN] init redis cache failed, using memory: %v", err)
			return cache.NewMemory()
		}
		return rc
	case "sqlite":
		sc, err := cache.NewSQLite(cfg.Cache.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite cache failed, using memory: %v", err)
			return cache.NewMemory()
		}
		return sc
	default:
		return cache.NewMemory()
	}
}
