package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"coffeeshop/internal/bot"
	"coffeeshop/internal/config"
	"coffeeshop/internal/db"
	"coffeeshop/internal/httpserver"
	accountrepo "coffeeshop/internal/repository/account"
	cartrepo "coffeeshop/internal/repository/cart"
	catalogrepo "coffeeshop/internal/repository/catalog"
	customerrepo "coffeeshop/internal/repository/customer"
	orderrepo "coffeeshop/internal/repository/order"
	tokenrepo "coffeeshop/internal/repository/token"
	accountsvc "coffeeshop/internal/service/account"
	cartsvc "coffeeshop/internal/service/cart"
	catalogsvc "coffeeshop/internal/service/catalog"
	"coffeeshop/internal/service/identity"
	ordersvc "coffeeshop/internal/service/order"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{AppName: "coffeeshop-api", MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()
	runner := db.NewRunner(dbpool, cfg.TxMaxRetries)

	accountService := accountsvc.New(accountrepo.NewPostgres(dbpool, logger), tokenrepo.NewPostgres(dbpool), logger)
	catalogService := catalogsvc.New(catalogrepo.NewPostgres(dbpool, logger))
	resolver := identity.New(customerrepo.NewPostgres(runner, logger), logger)
	cartService := cartsvc.New(cartrepo.NewPostgres(runner, logger), logger)
	orderService := ordersvc.New(orderrepo.NewPostgres(runner, logger), logger)

	deps := httpserver.Deps{
		Accounts:      accountService,
		Catalog:       catalogService,
		Identity:      resolver,
		Carts:         cartService,
		Orders:        orderService,
		CORSOrigins:   cfg.CORSOrigins,
		WebhookSecret: cfg.WebhookSecret,
		ReadyChecks:   []httpserver.ReadyCheck{{Name: "postgres", Ping: dbpool.Ping}},
	}

	var updates tgbotapi.UpdatesChannel
	var botHandler *bot.Handler
	if cfg.BotEnabled() {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			logger.Fatalf("init telegram bot: %v", err)
		}
		states, err := bot.NewRedisStore(cfg.RedisURL, cfg.BotStateTTL)
		if err != nil {
			logger.Fatalf("init bot state store: %v", err)
		}
		defer states.Close()
		if err := states.Ping(ctx); err != nil {
			logger.Fatalf("ping redis: %v", err)
		}
		deps.ReadyChecks = append(deps.ReadyChecks, httpserver.ReadyCheck{Name: "redis", Ping: states.Ping})
		botLogger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.LUTC|log.Lshortfile)
		botHandler = bot.NewHandler(api, states, resolver, catalogService, cartService, orderService, botLogger)
		logger.Printf("telegram bot authorized as @%s", api.Self.UserName)

		if cfg.BotPolling {
			// A registered webhook makes getUpdates fail.
			if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
				logger.Fatalf("delete telegram webhook: %v", err)
			}
			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			updates = api.GetUpdatesChan(u)
			defer api.StopReceivingUpdates()
		} else {
			deps.Bot = botHandler
		}
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, deps)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if updates != nil {
		go func() {
			logger.Printf("starting telegram long polling")
			botHandler.Run(ctx, updates)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Printf("received shutdown signal, shutting down")
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
