// Command server runs the AlphaBase API: document storage with per-collection
// access rules, realtime change broadcast, and the MQTT device bridge.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"alphabase/internal/auth"
	authhandler "alphabase/internal/auth/handler"
	"alphabase/internal/auth/token"
	"alphabase/internal/bridge"
	"alphabase/internal/document"
	dochandler "alphabase/internal/document/handler"
	"alphabase/internal/files"
	fileshandler "alphabase/internal/files/handler"
	"alphabase/internal/platform/config"
	"alphabase/internal/platform/httpserver"
	"alphabase/internal/platform/logger"
	"alphabase/internal/platform/metrics"
	"alphabase/internal/realtime"
	"alphabase/internal/rules"
	ruleshandler "alphabase/internal/rules/handler"
	"alphabase/internal/system"
	httptransport "alphabase/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	issuer := token.NewIssuer(cfg.JWTSigningKey)
	hub := realtime.NewHub(log, m)
	ruleEngine := rules.NewEngine()

	documentStore, userStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	documents := document.NewService(documentStore, ruleEngine, hub, log, m)
	accounts := auth.NewService(userStore, issuer, log)
	storage := files.NewService(files.NewInMemoryStore(), cfg.UploadDir, log)

	var consumer *bridge.MQTTConsumer
	var busStatus system.BusStatus
	if cfg.MQTTBrokerURL != "" {
		deviceBridge := bridge.New(documents, log, m)
		consumer = bridge.NewMQTTConsumer(cfg.MQTTBrokerURL, cfg.MQTTTopicPrefix, "alphabase-server", deviceBridge, log)
		busStatus = consumer
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Auth:      authhandler.New(accounts, issuer, log),
		Documents: dochandler.New(documents, issuer, log),
		Files:     fileshandler.New(storage, issuer, log),
		Rules:     ruleshandler.New(ruleEngine, issuer, log),
		System:    system.New(hub, busStatus, issuer, log),
		WebSocket: realtime.NewWebSocketHandler(hub, log),
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if consumer != nil {
		group.Go(func() error {
			return consumer.Run(groupCtx)
		})
	}

	return group.Wait()
}

// buildStores selects the storage backend. The returned cleanup closes any
// backend connections and is safe to call once.
func buildStores(ctx context.Context, cfg config.Server) (document.Store, auth.Store, func(), error) {
	switch cfg.StorageBackend {
	case "memory", "":
		return document.NewInMemoryStore(), auth.NewInMemoryStore(), func() {}, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}

		documentStore := document.NewPostgresStore(db)
		userStore := auth.NewPostgresStore(db)
		if err := documentStore.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		if err := userStore.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return documentStore, userStore, func() { _ = db.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		// User accounts stay in memory on the redis backend; only documents
		// need the shared store for multi-node fan-in.
		return document.NewRedisStore(client), auth.NewInMemoryStore(), func() { _ = client.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
