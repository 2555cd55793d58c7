package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/geoitems/internal/core/config"
	"github.com/mohammed-shakir/geoitems/internal/core/httpclient"
	"github.com/mohammed-shakir/geoitems/internal/core/observability"
	"github.com/mohammed-shakir/geoitems/internal/core/server"
	"github.com/mohammed-shakir/geoitems/internal/events"
	"github.com/mohammed-shakir/geoitems/internal/geocode"
	"github.com/mohammed-shakir/geoitems/internal/geohash"
	"github.com/mohammed-shakir/geoitems/internal/indexer"
	"github.com/mohammed-shakir/geoitems/internal/logger"
	"github.com/mohammed-shakir/geoitems/internal/query"
	"github.com/mohammed-shakir/geoitems/internal/store/geoindex"
	"github.com/mohammed-shakir/geoitems/internal/store/metadata"
	"github.com/mohammed-shakir/geoitems/internal/store/redisstore"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// a missing .env is fine; the process environment still applies
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("load .env", "err", err)
		return 1
	}

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "geoitems",
		Version:   Version,
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 1
	}

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting geoitems",
		"addr", cfg.Addr,
		"redis", cfg.RedisAddr,
		"table", cfg.TableName,
		"precision", cfg.GeohashPrecision,
		"partition_bits", cfg.PartitionBits)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := redisstore.New(rctx, cfg.RedisAddr,
		redisstore.WithPoolSize(4*cfg.ScanWorkers),
		redisstore.WithReadTimeout(cfg.StoreOpTimeout),
		redisstore.WithWriteTimeout(cfg.StoreOpTimeout),
	)
	cancel()
	if err != nil {
		appLog.Error("redis connect failed", "err", err)
		return 1
	}
	defer func() { _ = rdb.Close() }()

	coverer, err := geohash.NewCoverer(geohash.CoverConfig{
		Precision:     cfg.GeohashPrecision,
		PartitionBits: cfg.PartitionBits,
		MaxCells:      cfg.CoverMaxCells,
	})
	if err != nil {
		appLog.Error("geohash setup failed", "err", err)
		return 1
	}

	gc, err := geocode.NewGeocodio(cfg.Geocode.URL, cfg.Geocode.APIKey, httpclient.NewOutbound(cfg.Geocode.Timeout))
	if err != nil {
		appLog.Error("geocoder setup failed", "err", err)
		return 1
	}
	if cfg.Geocode.APIKey == "" {
		appLog.Warn("GEOCODE_API_KEY is empty, geocoding requests will be rejected upstream")
	}
	geocoder := geocode.NewCached(gc, cfg.Geocode.CacheSize, cfg.Geocode.CacheTTL)

	index := geoindex.New(rdb, cfg.TableName, cfg.ScanPageSize)
	meta := metadata.New(rdb, cfg.TableName, metadata.WithBatchTimeout(cfg.StoreOpTimeout))

	var sink indexer.EventSink
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue, appLog)
		if err != nil {
			appLog.Error("kafka producer setup failed", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		sink = pub
		appLog.Info("item events enabled", "topic", cfg.Events.Topic, "brokers", cfg.Events.Brokers)
	}

	writer := indexer.New(appLog, indexer.Config{
		GeocodeTimeout: cfg.Geocode.Timeout,
		StoreOpTimeout: cfg.StoreOpTimeout,
	}, geocoder, coverer, index, meta, sink)

	engine := query.New(appLog, query.Config{
		DefaultRadiusMeters: cfg.DefaultRadiusMeters,
		ScanWorkers:         cfg.ScanWorkers,
		GeocodeTimeout:      cfg.Geocode.Timeout,
		StoreOpTimeout:      cfg.StoreOpTimeout,
	}, geocoder, coverer, index, meta)

	if err := server.Run(ctx, cfg.Addr, appLog, server.Deps{
		Querier: engine,
		Creator: writer,
		Store:   rdb,
	}); err != nil {
		appLog.Error("server exited", "err", err)
		return 1
	}
	appLog.Info("shutdown complete")
	return 0
}
