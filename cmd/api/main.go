package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/4ndr33w/projecthub-backend/config"
	"github.com/4ndr33w/projecthub-backend/internal/bootstrap"
	"github.com/4ndr33w/projecthub-backend/internal/cache"
	"github.com/4ndr33w/projecthub-backend/internal/cleanup"
	memrepo "github.com/4ndr33w/projecthub-backend/internal/memberships/repository"
	projectssvc "github.com/4ndr33w/projecthub-backend/internal/projects/service"
	"github.com/4ndr33w/projecthub-backend/internal/storage/postgres"
	"github.com/4ndr33w/projecthub-backend/internal/tasks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	var aggCache projectssvc.AggregateCache
	if cfg.Redis.Enabled {
		client, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		aggCache = cache.NewAggregateCache(client)
	}

	pool := tasks.NewPool(cfg.Workers.PoolSize)

	janitor := cleanup.NewJanitor(memrepo.NewMembershipRepository(db))
	if err := janitor.Start(cfg.Workers.CleanupSpec); err != nil {
		log.Fatalf("janitor: %v", err)
	}
	defer janitor.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "projecthub-backend",
		Version:     cfg.App.Version,
		DB:          db,
		Pool:        pool,
		Cache:       aggCache,
		RateLimit:   rate.Limit(cfg.Server.RateLimitRPS),
		RateBurst:   cfg.Server.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[info] operation=main listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[info] operation=main shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] operation=main shutdown error=%v", err)
	}

	// Let in-flight aggregations finish before the DB handle closes.
	pool.Drain()
}
