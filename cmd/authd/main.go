package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/config"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/httpserver"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/logger"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/pg"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/profile"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/redis"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/resend"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/svc/auth"
)

func main() {
	log := logger.New(logger.WithJSONFormatter())

	if err := run(context.Background(), log); err != nil {
		log.Error("authd exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		httpCfg    httpserver.Config
		pgCfg      pg.Config
		redisCfg   redis.Config
		gatewayCfg gateway.Config
		authCfg    auth.Config
	)
	config.MustLoad(&httpCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&gatewayCfg)
	config.MustLoad(&authCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	profiles := profile.NewPostgresStore(pool)
	tokens := gateway.NewRedisStore(redisClient, "authd", 0, 24*time.Hour)

	gw := gateway.NewClient(gatewayCfg, tokens,
		gateway.WithLogger(log),
		gateway.WithProfileChecker(profiles),
	)

	coordinator := profile.NewCoordinator(profiles, tokens, profile.WithLogger(log))
	resender := resend.NewController(gw,
		resend.WithCooldown(authCfg.ResendCooldown),
		resend.WithLogger(log),
	)

	svc := auth.New(authCfg, gw, tokens, coordinator, resender, auth.WithLogger(log))

	router := chi.NewRouter()
	router.Get("/health", httpserver.HealthHandler(map[string]func(context.Context) error{
		"postgres": pg.Healthcheck(pool),
		"redis":    redis.Healthcheck(redisClient),
	}))
	router.Mount("/", svc.Router())

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}
