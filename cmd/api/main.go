package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/config"
	"github.com/theodoreromeos/account-management/internal/confirmation"
	"github.com/theodoreromeos/account-management/internal/httpapi"
	"github.com/theodoreromeos/account-management/internal/identity"
	"github.com/theodoreromeos/account-management/internal/messaging"
	"github.com/theodoreromeos/account-management/internal/obs"
	"github.com/theodoreromeos/account-management/internal/registration"
	"github.com/theodoreromeos/account-management/internal/token"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.NewLogger(cfg.LogLevel)

	db, err := account.Open(cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer db.Close()

	idClient, err := identity.NewHTTPClient(cfg.IdentityBaseURL, cfg.IdentityToken, logger)
	if err != nil {
		logger.WithError(err).Fatal("identity client")
	}

	tokens, err := token.NewService(token.NewPGStore(db), []byte(cfg.TokenSecret),
		token.WithTTL(cfg.TokenTTL), token.WithIssuer(cfg.TokenIssuer))
	if err != nil {
		logger.WithError(err).Fatal("token service")
	}

	store := account.NewPGStore(db)
	outbox := messaging.NewOutbox(db)

	regSvc := registration.NewService(store, tokens, idClient, outbox,
		registration.NewPasswordGenerator(), cfg.ConfirmBaseURL, logger)
	confSvc := confirmation.NewService(store, tokens, idClient, outbox, cfg.ConfirmBaseURL, logger)

	verifier, err := httpapi.NewVerifier([]byte(cfg.AdminSecret))
	if err != nil {
		logger.WithError(err).Fatal("admin verifier")
	}

	api := httpapi.New(regSvc, confSvc, verifier, httpapi.ReadyProbe{DB: db}, logger, version)

	handler := httpapi.Logging(api.Handler(), logger)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler)
	handler = httpapi.MaxBodyBytes(handler, cfg.MaxBodyBytes)
	handler = httpapi.RateLimit(handler, cfg.RateLimitBurst, cfg.RateLimitRPS)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	relayCtx, relayCancel := context.WithCancel(context.Background())
	relay := messaging.NewRelay(db, messaging.LogSender(logger), logger,
		messaging.WithPollInterval(cfg.OutboxPollInterval))
	go relay.Run(relayCtx)

	logger.WithFields(logrus.Fields{
		"version": version,
		"addr":    srv.Addr,
	}).Info("starting account-management api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")
	relayCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}
