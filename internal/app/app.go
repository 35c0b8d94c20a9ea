package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/lidiakram/bottlespin/internal/config"
	http_init "github.com/lidiakram/bottlespin/internal/delivery/http/init"
	http_ratelimit_middleware "github.com/lidiakram/bottlespin/internal/delivery/http/middleware/ratelimit"
	http_room "github.com/lidiakram/bottlespin/internal/delivery/http/room"
	ws_room "github.com/lidiakram/bottlespin/internal/delivery/ws/room"
	infra_postgres_ban "github.com/lidiakram/bottlespin/internal/infra/postgres/ban"
	infra_postgres_gamestate "github.com/lidiakram/bottlespin/internal/infra/postgres/gamestate"
	infra_pg_init "github.com/lidiakram/bottlespin/internal/infra/postgres/init"
	infra_postgres_message "github.com/lidiakram/bottlespin/internal/infra/postgres/message"
	infra_postgres_room "github.com/lidiakram/bottlespin/internal/infra/postgres/room"
	infra_postgres_user "github.com/lidiakram/bottlespin/internal/infra/postgres/user"
	infra_redis_init "github.com/lidiakram/bottlespin/internal/infra/redis/init"
	infra_ratelimit "github.com/lidiakram/bottlespin/internal/infra/redis/ratelimit"
	infra_s3 "github.com/lidiakram/bottlespin/internal/infra/s3"
	"github.com/lidiakram/bottlespin/internal/infra/s3mock"
	"github.com/lidiakram/bottlespin/internal/session"
	usecase_room "github.com/lidiakram/bottlespin/internal/usecase/room"
)

// media is satisfied by both the real S3 storage and the mock.
type media interface {
	http_room.Media
	session.MediaStore
}

func Go(cfg *config.Config) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)

	var mediaStore media
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		mediaStore = s3mock.New()
	} else {
		s3conn := infra_s3.MustEstablishConn()
		mediaStore = infra_s3.New(cfg.S3.Bucket, s3conn, cfg.S3.Prefix)
	}

	roomRepo := infra_postgres_room.New(pgConn)
	userRepo := infra_postgres_user.New(pgConn)
	stateRepo := infra_postgres_gamestate.New(pgConn)
	messageRepo := infra_postgres_message.New(pgConn)
	banRepo := infra_postgres_ban.New(pgConn)

	limiter := infra_ratelimit.New(redisConn, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	timings := session.DefaultTimings()
	timings.VoteTimeout = cfg.Game.VoteTimeout
	timings.PresenceGrace = cfg.Game.PresenceGrace
	timings.InactivityWarn = cfg.Game.InactivityWarn
	timings.InactivityKick = cfg.Game.InactivityKick
	timings.ReapInterval = cfg.Game.ReapInterval
	timings.RoomTTL = cfg.Game.RoomTTL

	hub := ws_room.NewHub(logger)
	registry := session.NewRegistry(session.Deps{
		Rooms:     roomRepo,
		Users:     userRepo,
		States:    stateRepo,
		Messages:  messageRepo,
		Bans:      banRepo,
		Media:     mediaStore,
		Broadcast: hub,
		Logger:    logger,
		Timings:   timings,
	})
	go registry.Run(context.Background())
	defer registry.CloseAll()

	roomUC := usecase_room.New(roomRepo, stateRepo, banRepo)

	controllerPool := http_init.NewControllerPool(
		http_ratelimit_middleware.New(limiter, "http"),
	)
	controllerPool.Add(http_room.New(roomUC, mediaStore))
	controllerPool.Add(ws_room.New(registry, hub, limiter, logger))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
