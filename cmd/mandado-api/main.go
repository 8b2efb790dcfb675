// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mandado/internal/config"
	httptransport "mandado/internal/http"
	"mandado/internal/infra"
	"mandado/internal/logger"
	"mandado/internal/modules/courier"
	"mandado/internal/modules/notify"
	"mandado/internal/modules/order"
	"mandado/internal/modules/sync"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("postgres init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = redisClient.Close() }()

	var pusher notify.Pusher
	if cfg.Firebase.ProjectID != "" {
		fcm, err := infra.NewMessaging(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatal("firebase init", zap.Error(err))
		}
		pusher = notify.NewFCMPusher(fcm)
	} else {
		log.Warn("MANDADO_FIREBASE_PROJECT_ID not set, push notifications disabled")
	}

	sink := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() { _ = sink.Close() }()

	tokens := notify.NewRedisTokens(redisClient)

	courierStore := courier.NewStore(redisClient)
	orderStore := order.NewPostgresStore(dbPool)

	offers := courier.NewOffers(courierStore, pusher, tokens, log)
	offers.SetWindow(cfg.Offer.Window)
	dispatcher := notify.NewDispatcher(pusher, tokens, sink, offers, log)

	courierSvc := courier.NewService(courierStore, orderStore, log)
	orderSvc := order.NewService(orderStore, dispatcher, courierSvc, log)
	syncSvc := sync.NewService(orderStore, cfg.Sync.DeliveredWindow, log)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Order:     orderSvc,
		Sync:      syncSvc,
		Courier:   courierSvc,
		Tokens:    tokens,
		JWTSecret: cfg.Auth.JWTSecret,
		Log:       log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}
