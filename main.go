package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/dashboard"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/orders"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	st, err := database.Open(openCtx, database.Options{
		Driver:   cfg.StoreDriver,
		MongoURI: cfg.MongoURI,
		DBName:   cfg.DBName,
		SQLDSN:   cfg.SQLDSN,
	})
	cancel()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("store connected: %s", cfg.StoreDriver)

	if err := database.EnsureDefaultAdmin(ctx, st, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		log.Printf("⚠️ default admin warning: %v", err)
	}

	var (
		cartRepo cart.Repository
		guard    checkout.IdempotencyGuard
	)
	switch {
	case cfg.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		cartRepo = cart.NewRedisRepository(rdb, cfg.CartTTL)
		guard = checkout.NewRedisGuard(rdb, 24*time.Hour)
		log.Println("carts stored in redis:", cfg.RedisAddr)
	case cfg.CartDir != "":
		fileRepo, err := cart.NewFileRepository(cfg.CartDir)
		if err != nil {
			log.Fatal(err)
		}
		cartRepo = fileRepo
		guard = checkout.NewMemoryGuard(24 * time.Hour)
		log.Println("carts stored in:", cfg.CartDir)
	default:
		cartRepo = cart.NewMemoryRepository()
		guard = checkout.NewMemoryGuard(24 * time.Hour)
		log.Println("carts stored in memory")
	}

	var notifier checkout.Notifier = checkout.LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = checkout.NewSMTPNotifier(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPFrom, language.English)
	}

	catalogSvc := catalog.NewService(st)
	policy := cart.NewPolicy(cfg.ShippingPolicy, cfg.ShippingFlatFee, cfg.FreeShippingThreshold)
	carts := cart.NewService(st, cartRepo, policy)
	composer := checkout.NewComposer(st, st, notifier, guard, checkout.Options{StockAware: cfg.StockAware})

	r := gin.Default()
	handlers.RegisterRoutes(r, handlers.Deps{
		Store:     st,
		Catalog:   catalogSvc,
		Carts:     carts,
		Composer:  composer,
		Statuses:  orders.NewStatusService(st, cfg.EnforceStatusTransitions),
		Dashboard: dashboard.NewService(st, cfg.DashboardLocation),
		JWTSecret: cfg.JWTSecret,
		AccessTTL: cfg.AccessTokenTTL,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	log.Println("listening on :" + cfg.Port)

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Printf("close store: %v", err)
	}
}
