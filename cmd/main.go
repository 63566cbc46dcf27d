package main

import (
	"context"
	logg "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaam8/council_bot/internal/api"
	"github.com/jaam8/council_bot/internal/config"
	"github.com/jaam8/council_bot/internal/repository"
	"github.com/jaam8/council_bot/internal/server"
	srv "github.com/jaam8/council_bot/internal/service"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/jaam8/council_bot/pkg/logger"
	rds "github.com/jaam8/council_bot/pkg/redis"
	"github.com/jaam8/council_bot/pkg/tarantool"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		logg.Fatalf("failed to load config: %s", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		logg.Fatalf("failed to initalize logger: %s", err)
	}
	defer log.Sync()

	checks := map[string]server.Check{}
	var store srv.SessionStore
	var closers []func()
	switch cfg.Ballot.SessionBackend {
	case config.SessionBackendTarantool:
		conn, err := tarantool.New(cfg.Tarantool)
		if err != nil {
			log.Fatal("failed to connect to Tarantool", zap.Error(err))
		}
		if err = tarantool.Ping(conn); err != nil {
			log.Fatal("failed to ping Tarantool", zap.Error(err))
		}
		checks["tarantool"] = func(context.Context) error { return tarantool.Ping(conn) }
		closers = append(closers, func() { conn.CloseGraceful() })
		store = repository.NewTarantoolSessionStore(conn, cfg.Ballot.SessionTTL, log)
	case config.SessionBackendRedis:
		rdb, err := rds.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		closers = append(closers, func() { _ = rdb.Close() })
		store = repository.NewRedisSessionStore(rdb, cfg.Ballot.SessionTTL, log)
	default:
		store = repository.NewMemorySessionStore(cfg.Ballot.SessionTTL, log)
	}
	log.Info("session store ready", zap.String("backend", cfg.Ballot.SessionBackend))

	edgeClient := edge.New(cfg.Edge, log)
	resolver := srv.NewRegionResolver(edgeClient, log)
	ballotService := srv.NewBallotService(edgeClient, resolver, store, log)
	candidateService := srv.NewCandidateService(edgeClient, log, cfg.Ballot.CandidateCacheSize, cfg.Ballot.CandidateCacheTTL)
	adminService := srv.NewAdminService(edgeClient, srv.NewAdminGate(cfg.Admin.PortalPass, cfg.Admin.UnlockTTL), log)

	client := model.NewAPIv4Client(cfg.MmURL)
	client.SetToken(cfg.BotToken)
	webSocketClient, err := model.NewWebSocketClient4(cfg.MmWsURL, cfg.BotToken)
	if err != nil {
		log.Fatal("failed to connect to webSocket", zap.Error(err))
	}

	router := api.NewRouter(
		api.NewBallotHandler(ballotService, candidateService, log, cfg.Contact),
		api.NewAdminHandler(adminService, client, log),
		client, log, cfg.Ballot.CommandRate, cfg.Ballot.CommandBurst,
	)

	var botID string
	if user, _, err := client.GetUser("me", ""); err != nil {
		log.Fatal("failed to get user", zap.Error(err))
	} else {
		botID = user.Id
	}

	ops := server.New(cfg.RestPort, checks, log)
	ops.Start()

	webSocketClient.Listen()
	go func() {
		for event := range webSocketClient.EventChannel {
			if event.EventType() == model.WebsocketEventPosted {
				log.Debug("new message", zap.String("event", event.EventType()))
				router.HandleEvent(ctx, event, botID)
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	webSocketClient.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = ops.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop ops server", zap.Error(err))
	}
	for _, closeFn := range closers {
		closeFn()
	}
	log.Info("server graceful stopped")
}
