package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/point-ledger/internal/config"
	"github.com/baharkarakas/point-ledger/internal/db"
	"github.com/baharkarakas/point-ledger/internal/events"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/baharkarakas/point-ledger/internal/repository/memory"
	"github.com/baharkarakas/point-ledger/internal/repository/pebblestore"
	"github.com/baharkarakas/point-ledger/internal/repository/postgres"
	"github.com/baharkarakas/point-ledger/internal/repository/redisstore"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	balances  repo.Balances
	histories repo.Histories
	close     func() error
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, error) {
	noClose := func() error { return nil }

	switch cfg.StoreBackend {
	case "", "memory":
		repos := memory.NewRepositories()
		return stores{repos.Balances, repos.Histories, noClose}, nil

	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return stores{}, fmt.Errorf("migrations: %w", err)
			}
			log.Info("migrations applied")
		}
		repos := postgres.NewRepositories(pool)
		return stores{repos.Balances, repos.Histories, func() error { pool.Close(); return nil }}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return stores{}, fmt.Errorf("redis ping: %w", err)
		}
		repos := redisstore.NewRepositories(rdb)
		return stores{repos.Balances, repos.Histories, rdb.Close}, nil

	case "pebble":
		s, err := pebblestore.Open(cfg.PebbleDir)
		if err != nil {
			return stores{}, err
		}
		return stores{s.Balances, s.Histories, s.Close}, nil

	default:
		return stores{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func newPublisher(cfg config.Config) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case "", "noop":
		return events.Noop{}, nil
	case "kafka":
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "sarama":
		return events.NewSaramaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.EventsDriver)
	}
}
