package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	appmw "github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limit disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketTypeRepo(db)
	orders := repository.NewOrderRepo(db)

	checkout := service.NewCheckout(
		repository.NewCheckoutStore(db),
		time.Duration(cfg.CartTTLMin)*time.Minute,
	)
	checkout.Publish = queue.PublishOrderPlaced

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go checkout.RunCartReaper(ctx, time.Duration(cfg.ReapEverySec)*time.Second)

	// Consume order.placed events in-process; failures only disable the
	// audit trail, never checkout itself.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	var cacheMW, limitMW echo.MiddlewareFunc
	if rdb != nil {
		cacheMW = appmw.NewRedisCache(config.LoadCacheConfig(), rdb)
		limitMW = appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	publicH := handler.NewEventPublicHandler(events, tickets)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterCustomer(e,
		handler.NewCheckoutHandler(checkout, events),
		handler.NewOrderHandler(orders),
		publicH,
		cfg.JWTSecret,
		limitMW,
	)
	router.RegisterManager(e, handler.NewEventManagerHandler(events, tickets), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
