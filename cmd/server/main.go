package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resto-be/internal/command"
	"resto-be/internal/config"
	"resto-be/internal/db"
	"resto-be/internal/events"
	"resto-be/internal/logger"
	"resto-be/internal/metrics"
	"resto-be/internal/middleware"
	"resto-be/internal/order"
	"resto-be/internal/payment"
	"resto-be/internal/printer"
	"resto-be/internal/product"
	"resto-be/internal/rest"
	"resto-be/internal/stock"
	"resto-be/internal/table"
	"resto-be/internal/till"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IsProduction() && cfg.JWTSecret == "" {
		logger.L().Warn("JWT_SECRET not set, all requests are anonymous")
	}

	database := initDBFunc(cfg)
	defer database.Close()

	a, err := newApp(cfg, database)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		logger.L().Info("order engine listening", zap.String("addr", srv.Addr))
		return startServerFunc(gctx, srv)
	})
	return g.Wait()
}

func startServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type app struct {
	handler http.Handler
	limiter *middleware.RateLimiter
	closers []func() error
}

func newApp(cfg *config.Config, database *sql.DB) (*app, error) {
	a := &app{limiter: middleware.NewRateLimiter()}
	reg := metrics.NewRegistry()
	catalog := product.NewRepository(database)

	var seq command.Sequence
	if cfg.RedisAddr != "" {
		rs := command.NewRedisSequence(cfg.RedisAddr, cfg.Location)
		a.closers = append(a.closers, rs.Close)
		seq = rs
	} else {
		logger.L().Warn("REDIS_ADDR not set, command numbers fall back to uuid")
		seq = command.NewUUIDSequence(cfg.Location)
	}

	var bus events.Bus = events.NewLogBus()
	if cfg.AMQPURL != "" {
		amqpBus, err := events.DialAMQP(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, amqpBus.Close)
		bus = amqpBus
	}

	svc := order.NewService(order.Deps{
		Repo:     order.NewRepository(database),
		Tx:       db.NewTxManager(database, cfg.DBMaxRetries),
		Catalog:  catalog,
		Tables:   table.NewRepository(database),
		Till:     till.NewRepository(database, cfg.Location),
		Stock:    stock.NewService(stock.NewRepository(database), catalog),
		Payments: payment.NewRepository(database),
		Commands: seq,
		Printer:  printer.New(cfg),
		Bus:      bus,
		Metrics:  reg,
		Location: cfg.Location,
	})

	a.handler = rest.NewRouter(rest.NewOrderHandler(svc), reg,
		logger.RequestIDMiddleware,
		logger.LoggingMiddleware,
		middleware.Auth(cfg.JWTSecret),
		a.limiter.Middleware,
	)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L().Warn("failed to close dependency", zap.Error(err))
		}
	}
}
