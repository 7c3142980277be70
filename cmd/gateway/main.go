package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/api"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/journal"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/quotes"
	"github.com/shubham-shewale/stockpulse/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Logger Error: %v", err)
	}
	defer logger.Sync()

	if !cfg.Logger.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	seed := quotes.DefaultSeed()
	if cfg.Gateway.Seed == config.SeedExtended {
		seed = quotes.ExtendedSeed()
	}
	store := quotes.NewStore(seed, quotes.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	hubOpts := []hub.Option{
		hub.WithInterval(cfg.Gateway.TickInterval),
		hub.WithTickMode(cfg.Gateway.TickMode),
	}

	var publisher *journal.Publisher
	if cfg.Kafka.Enabled {
		dialer := &journal.RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 10 * time.Second}}
		journal.NewTopicCreator(logger, dialer, journal.RealSleeper{}).Create(gctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)

		publisher = journal.NewPublisher(logger, journal.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), 16)
		hubOpts = append(hubOpts, hub.WithObserver(publisher))
		g.Go(func() error { return publisher.Run(gctx) })
	}

	wsHub := hub.NewHub(store, logger, hubOpts...)
	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})

	server := api.NewServer(store, wsHub, logger, cfg.Gateway.CORSOrigin)
	clientOpts := gateway.OptionsFromConfig(cfg.Gateway)
	server.R.GET("/ws", gin.WrapF(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Debug("Upgrade failed", zap.Error(err))
			return
		}
		gateway.NewClient(conn, wsHub, logger, clientOpts).Start()
	}))

	srv := &http.Server{Addr: cfg.App.Port, Handler: server.R}

	g.Go(func() error {
		logger.Info("Server Started",
			zap.String("port", cfg.App.Port),
			zap.String("tick_mode", cfg.Gateway.TickMode),
			zap.Duration("tick_interval", cfg.Gateway.TickInterval),
			zap.Int("stocks", len(seed)),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Gateway stopped with error", zap.Error(err))
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("Kafka writer close failed", zap.Error(err))
		}
		logger.Info("Journal closed", zap.Int64("dropped_ticks", publisher.Dropped()))
	}
	logger.Info("Shutdown Complete")
}
