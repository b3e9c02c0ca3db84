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
	"github.com/ogurasousui/workforce-services/internal/core/company"
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
		cfgPath = "assets/company-local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fb := logging.Fallback()
		fb.Fatal().Err(err).Msg("failed to load config")
	}

	log := logging.New(cfg.Logging, "companyservice")

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database pool")
	}
	defer dbPool.Close()

	userClient := peerhttp.NewUserClient(cfg.Peer.BaseURL,
		peerhttp.WithHTTPClient(&http.Client{Timeout: cfg.Peer.Timeout}))

	companyRepo := postgres.NewCompanyRepository(dbPool)
	txManager := pg.NewTransactionManager(dbPool)
	companySvc := company.NewService(companyRepo, userClient, nil, txManager, log)

	handler := httpapi.NewCompanyHandler(companySvc, log)
	httpServer := server.New(cfg.Server.ListenAddr, httpapi.NewCompanyRouter(handler, log))

	log.Info().Str("addr", cfg.Server.ListenAddr).Msg("company service listening")

	if err := httpServer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}
