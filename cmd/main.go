package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"navigate-map/internal/api"
	"navigate-map/internal/cache"
	"navigate-map/internal/config"
	"navigate-map/internal/format"
	"navigate-map/internal/routing"
	"navigate-map/internal/subscriber"
	"navigate-map/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New()
	if err != nil {
		return err
	}

	logger, closeLog := newLogger(conf)
	defer closeLog()

	formatter, err := format.New(conf.Locale, conf.Units)
	if err != nil {
		return fmt.Errorf("failed to create formatter: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}()
	fixStore := cache.NewRedisFixStore(redisClient, conf.FixTTL)

	routingClient := routing.NewClient(conf.RoutingBaseURL, routing.ClientOptions{Timeout: conf.RoutingTimeout})
	engineOptions := routing.DefaultEngineOptions()
	engineOptions.Timeout = conf.RoutingTimeout
	engineOptions.Language = conf.RouteLanguage
	engineOptions.CostingOptions = conf.CostingOptions()
	engineOptions.Cache = routing.NewRouteCache(conf.RouteCacheSize, conf.RouteCacheTTL)

	wsManager := ws.NewManager(ctx, logger, ws.Options{
		Variant:       conf.Variant,
		Planner:       routingClient,
		EngineOptions: engineOptions,
		Formatter:     formatter,
		Store:         fixStore,
		RetryInterval: conf.RouteRetryInterval,
		MapArea:       conf.MapArea,
		CautionArea:   conf.CautionArea,
	})
	sub := subscriber.NewSubscriber(logger, redisClient, conf.RedisLocationsChannel, wsManager)
	server := api.NewServer(conf, wsManager, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsManager.Start()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		wsManager.Shutdown()
		return nil
	})
	g.Go(func() error {
		if err := sub.Start(ctx); err != nil {
			return fmt.Errorf("subscriber stopped with error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return server.Start(ctx)
	})

	return g.Wait()
}

// newLogger writes JSON logs to stdout, and to a rotated file when LOG_FILE is
// set.
func newLogger(conf *config.Config) (*slog.Logger, func()) {
	var loggerOpts slog.HandlerOptions
	if conf.Env == config.EnvDev {
		loggerOpts = slog.HandlerOptions{Level: slog.LevelDebug}
	}

	var out io.Writer = os.Stdout
	closeLog := func() {}
	if conf.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   conf.LogFile,
			MaxSize:    32,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closeLog = func() { _ = rotator.Close() }
	}

	jsonHandler := slog.NewJSONHandler(out, &loggerOpts)
	return slog.New(jsonHandler), closeLog
}
