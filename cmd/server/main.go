// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/handlers"
	"github.com/jason-s-yu/uno/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "", "optional path to a configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := initAuth(cfg.Auth); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	// Redis and Postgres are optional; rooms run without history when either is missing.
	if cfg.Redis.Addr != "" {
		cache.QueueName = cfg.Redis.Queue
		if err := cache.ConnectRedis(cfg.Redis.Addr, cfg.Redis.DB); err != nil {
			logger.Warnf("action log disabled: %v", err)
		} else {
			logger.Infof("publishing room actions to redis %s (%s)", cfg.Redis.Addr, cfg.Redis.Queue)
		}
	}
	if dsn := cfg.Database.DSN(); dsn != "" {
		if err := database.ConnectDB(ctx, dsn); err != nil {
			logger.Warnf("room results disabled: %v", err)
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx); err != nil {
				logger.Warnf("schema: %v", err)
			}
		}
	}

	rooms := game.NewRoomStore()
	rooms.DefaultRules = game.HouseRules{
		Stacking:          cfg.Rooms.Stacking,
		ShuffleHandsCards: cfg.Rooms.ShuffleHandsCards,
		HandSize:          cfg.Rooms.HandSize,
		MaxPlayers:        cfg.Rooms.MaxPlayers,
	}
	if err := rooms.DefaultRules.Validate(); err != nil {
		logger.Fatalf("default house rules: %v", err)
	}
	rooms.RequireSeatToken = cfg.Rooms.RequireSeatToken
	if !rooms.RequireSeatToken {
		logger.Warn("rooms.require_seat_token is off: any client that knows a player id can take over that disconnected seat")
	}
	rooms.IssueToken = auth.CreateSeatToken
	rooms.IdleTTL = cfg.Rooms.IdleTTL

	srv := handlers.NewGameServer(logger, rooms)
	srv.OriginPatterns = cfg.Server.AllowedOrigins
	srv.OutboxSize = cfg.Server.OutboxSize
	srv.PingInterval = cfg.Server.PingInterval
	srv.VerifyToken = auth.VerifySeatToken

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.LogMiddleware(logger)(handlers.NewRouter(srv)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rooms.RunReaper(gctx, cfg.Rooms.ReapInterval)
		return nil
	})
	g.Go(func() error {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("shutdown: %v", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func initAuth(cfg config.AuthConfig) error {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL)
	}
	return auth.Init(cfg.TokenTTL)
}

// newLogger builds the handler logger and applies the same settings to the package-level
// logger used by the game package.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if cfg.JSON {
		formatter = &logrus.JSONFormatter{}
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	return logger
}
