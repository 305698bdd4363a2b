// cmd/historian/main.go is the asynchronous historian service. It pops room action records
// from the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var configPath = flag.String("config", "", "optional path to a configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.Database.DSN()
	if dsn == "" {
		log.Fatal("historian requires DATABASE_URL or PG_HOST")
	}
	if err := database.ConnectDB(ctx, dsn); err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	addr := cfg.Redis.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Redis.DB})
	defer rdb.Close()

	svc := historian.NewService(
		&historian.RedisSource{Client: rdb, Queue: cfg.Redis.Queue},
		historian.DBSink{},
		historian.Config{
			BatchSize:  cfg.Historian.BatchSize,
			FlushDelay: cfg.Historian.FlushDelay,
			Inactivity: cfg.Historian.Inactivity,
		},
	)
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("historian: %v", err)
	}
}
