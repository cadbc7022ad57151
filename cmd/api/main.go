package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lettergen/internal/billing"
	"lettergen/internal/config"
	"lettergen/internal/genai"
	"lettergen/internal/http/handlers"
	httpapi "lettergen/internal/http/httpapi"
	"lettergen/internal/identity"
	"lettergen/internal/infra"
	"lettergen/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if err := infra.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store := repo.NewProfileRepo(dbpool)

	gateway := genai.NewGateway(genai.Options{
		BackendURL:          cfg.GenerationBackendURL,
		DirectAPIKey:        cfg.DirectAPIKey,
		DirectBaseURL:       cfg.DirectBaseURL,
		DirectModel:         cfg.DirectModel,
		EnableLocalFallback: cfg.EnableLocalFallback,
	})

	authKey := cfg.SupabaseAnonKey
	if cfg.SupabaseServiceKey != "" {
		authKey = cfg.SupabaseServiceKey
	}
	resolver, err := identity.NewResolver(cfg.SupabaseURL, authKey, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure auth resolver")
	}

	app := &handlers.App{
		Store:      store,
		Gateway:    gateway,
		Reconciler: billing.NewReconciler(store, logger),
		DB:         dbpool,
		Logger:     logger,
		Config:     cfg,
	}

	if cfg.StripeEnabled() {
		stripe, err := billing.NewStripeProvider(billing.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			PriceID:       cfg.StripePriceID,
			SiteURL:       cfg.SiteURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure stripe")
		}
		app.Stripe = stripe
	} else {
		logger.Warn().Msg("stripe disabled, no STRIPE_SECRET_KEY")
	}

	if cfg.LemonEnabled() {
		lemon, err := billing.NewLemonProvider(cfg.LemonWebhookSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure lemon squeezy")
		}
		app.Lemon = lemon
	} else {
		logger.Warn().Msg("lemon squeezy disabled, no LEMON_WEBHOOK_SECRET")
	}

	router := httpapi.NewRouter(app, resolver)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
