package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/workforce-services/internal/adapters/httpapi"
	"github.com/ogurasousui/workforce-services/internal/adapters/peerhttp"
	"github.com/ogurasousui/workforce-services/internal/adapters/repository/postgres"
	"github.com/ogurasousui/workforce-services/internal/core/user"
	"github.com/ogurasousui/workforce-services/internal/platform/config"
	pg "github.com/ogurasousui/workforce-services/internal/platform/db/postgres"
	"github.com/ogurasousui/workforce-services/internal/platform/logging"
	"github.com/ogurasousui/workforce-services/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/user-local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fb := logging.Fallback()
		fb.Fatal().Err(err).Msg("failed to load config")
	}

	log := logging.New(cfg.Logging, "userservice")

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database pool")
	}
	defer dbPool.Close()

	companyClient := peerhttp.NewCompanyClient(cfg.Peer.BaseURL,
		peerhttp.WithHTTPClient(&http.Client{Timeout: cfg.Peer.Timeout}))

	userRepo := postgres.NewUserRepository(dbPool)
	txManager := pg.NewTransactionManager(dbPool)
	userSvc := user.NewService(userRepo, companyClient, nil, txManager, log)

	handler := httpapi.NewUserHandler(userSvc, log)
	httpServer := server.New(cfg.Server.ListenAddr, httpapi.NewUserRouter(handler, log))

	log.Info().Str("addr", cfg.Server.ListenAddr).Msg("user service listening")

	if err := httpServer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}
