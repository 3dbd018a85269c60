package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/bank"
	"github.com/Criezzz/auctionBackend/internal/config"
	cronrunner "github.com/Criezzz/auctionBackend/internal/cron"
	"github.com/Criezzz/auctionBackend/internal/db"
	"github.com/Criezzz/auctionBackend/internal/deposit"
	"github.com/Criezzz/auctionBackend/internal/fanout"
	"github.com/Criezzz/auctionBackend/internal/handler"
	"github.com/Criezzz/auctionBackend/internal/logger"
	"github.com/Criezzz/auctionBackend/internal/mailer"
	"github.com/Criezzz/auctionBackend/internal/notify"
	"github.com/Criezzz/auctionBackend/internal/paytoken"
	gormrepository "github.com/Criezzz/auctionBackend/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("AUCTION_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AUCTION_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	baseCtx := ctx

	bus := fanout.New(cfg.Fanout.QueueSize, cfg.Fanout.SubscriberBuffer, logger)
	go func() {
		if err := bus.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("fanout bus stopped", zap.Error(err))
		}
	}()

	notifier := notify.NewWriter(store, logger)
	tokens := paytoken.NewStore(store, nil, logger, cfg.Payment)
	gateway := initGateway(cfg.Bank, logger)
	mail := mailer.NewLogSender(logger)

	gate := deposit.NewGate(store, tokens, gateway, mail, nil, logger, cfg.Auction)
	arbiter := auction.NewArbiter(store, gate, bus, notifier, nil, logger, cfg.Auction)
	coordinator := paytoken.NewCoordinator(tokens, store, bus, notifier, mail, gateway, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.AccountMiddleware())
	engine.Use(handler.WriteAuditMiddleware(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn, Bus: bus}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	auctionHandler := &handler.AuctionHandler{Repo: store, Arbiter: arbiter}
	auctionHandler.Register(engine)
	bidHandler := &handler.BidHandler{Repo: store, Arbiter: arbiter}
	bidHandler.Register(engine)
	participationHandler := &handler.ParticipationHandler{Repo: store, Gate: gate}
	participationHandler.Register(engine)
	paymentHandler := &handler.PaymentHandler{Repo: store, Arbiter: arbiter, Coordinator: coordinator}
	paymentHandler.Register(engine)
	productHandler := &handler.ProductHandler{Repo: store}
	productHandler.Register(engine)
	notificationHandler := &handler.NotificationHandler{Repo: store}
	notificationHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Bus: bus, Repo: store, Arbiter: arbiter, Logger: logger}
	streamHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, baseCtx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.AuctionSweep, func(ctx context.Context) {
			if err := arbiter.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("auction sweep failed", zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("cron add auction sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.StatsReport, func(ctx context.Context) {
			intake, dropped := bus.Dropped()
			logger.Info("stream stats",
				zap.Int("subscriptions", bus.SubscriptionCount()),
				zap.Uint64("dropped_intake", intake),
				zap.Uint64("dropped_fanout", dropped),
			)
		}); err != nil {
			logger.Fatal("cron add stats report failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func initGateway(cfg config.BankConfig, logger *zap.Logger) bank.Gateway {
	if strings.EqualFold(cfg.Mode, "http") && strings.TrimSpace(cfg.BaseURL) != "" {
		logger.Info("bank gateway: http", zap.String("base_url", cfg.BaseURL))
		return bank.NewHTTPGateway(nil, cfg)
	}
	logger.Info("bank gateway: mock", zap.String("bank", cfg.Name))
	return bank.NewMock(cfg, nil)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Account-ID,X-Account-Role")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
