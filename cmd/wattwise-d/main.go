package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmax-ai/wattwise/pkg/analysis"
	"github.com/rmax-ai/wattwise/pkg/api"
	"github.com/rmax-ai/wattwise/pkg/chat"
	"github.com/rmax-ai/wattwise/pkg/config"
	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
	ledgerredis "github.com/rmax-ai/wattwise/pkg/ledger/redis"
	"github.com/rmax-ai/wattwise/pkg/logging"
	"github.com/rmax-ai/wattwise/pkg/provider"
	"github.com/rmax-ai/wattwise/pkg/provider/gemini"
	"github.com/rmax-ai/wattwise/pkg/publisher"
)

const (
	ratesDebounce   = 250 * time.Millisecond
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "wattwise-d: %v\n", err)
		os.Exit(2)
	}

	if _, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "wattwise-d: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "component", "wattwise-d", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	slog.Info("system_started", "component", "wattwise-d", "addr", cfg.Addr, "store", cfg.Store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}
	l := ledger.New(store)
	defer func() {
		if err := l.Close(); err != nil {
			slog.Error("failed_to_close_store", "error", err)
		}
	}()

	analyzer, err := newAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}

	gateway := chat.NewGateway(newProvider(cfg), chat.WithRateLimit(cfg.ChatRPS))
	srv := api.NewServer(l, forecast.NewPredictor(), analyzer, gateway, cfg.Addr)

	if cfg.MQTTBroker != "" {
		pub, err := publisher.New(publisher.Config{
			Broker:      cfg.MQTTBroker,
			TopicPrefix: cfg.MQTTTopic,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer pub.Close()

		l.OnChange(func(_ context.Context, entries []ledger.Entry) {
			if err := pub.Appliances(entries); err != nil {
				slog.Warn("mqtt_publish_failed", "topic", "appliances", "error", err)
			}
		})
		srv.SetPublisher(pub)
		slog.Info("mqtt_connected", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown_initiated")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("failed_to_stop_server", "error", err)
	}

	slog.Info("shutdown_complete")
	return nil
}

func openStore(ctx context.Context, cfg Config) (ledger.Store, error) {
	switch cfg.Store {
	case "sqlite":
		st, err := ledger.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("store_initialized", "store", "sqlite", "path", cfg.DBPath)
		return st, nil
	case "redis":
		st, err := ledgerredis.Dial(ctx, cfg.RedisAddr, "")
		if err != nil {
			return nil, err
		}
		slog.Info("store_initialized", "store", "redis", "addr", cfg.RedisAddr)
		return st, nil
	default:
		return ledger.NewMemoryStore(), nil
	}
}

// newAnalyzer loads the optional rates file and keeps it in sync on disk changes.
func newAnalyzer(ctx context.Context, cfg Config) (*analysis.Analyzer, error) {
	if cfg.RatesPath == "" {
		return analysis.New(nil), nil
	}

	tables, err := config.LoadRates(cfg.RatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}
	book := analysis.NewRateBook(tables)
	slog.Info("rates_loaded", "path", cfg.RatesPath)

	go func() {
		err := config.WatchRates(ctx, cfg.RatesPath, ratesDebounce, func(t analysis.Tables) {
			book.Store(t)
			slog.Info("rates_reloaded", "path", cfg.RatesPath)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("rates_watch_failed", "path", cfg.RatesPath, "error", err)
		}
	}()

	return analysis.New(book), nil
}

// newProvider returns nil when no API key is set; the gateway then serves
// canned answers only.
func newProvider(cfg Config) provider.Provider {
	if cfg.GeminiAPIKey == "" {
		slog.Warn("chat_provider_disabled", "reason", "GEMINI_API_KEY not set")
		return nil
	}
	return gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.ChatTimeout,
	})
}
