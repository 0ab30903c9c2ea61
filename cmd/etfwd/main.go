// Command etfwd wires the messaging core (buffer pool, broker,
// executor) together with its ambient stack (config, logging, metrics)
// and a handful of optional external collaborators, then runs until
// interrupted. Follows the same startup shape as before: flag parsing,
// automaxprocs, LoadConfig, and a signal channel driving graceful
// shutdown.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/adred-codev/etfw/examples/collectors/kafkaingest"
	"github.com/adred-codev/etfw/examples/collectors/natscmd"
	"github.com/adred-codev/etfw/examples/collectors/wspublish"
	"github.com/adred-codev/etfw/examples/healthtelemetry"
	"github.com/adred-codev/etfw/internal/broker"
	"github.com/adred-codev/etfw/internal/bufpool"
	"github.com/adred-codev/etfw/internal/config"
	"github.com/adred-codev/etfw/internal/executor"
	"github.com/adred-codev/etfw/internal/logx"
	"github.com/adred-codev/etfw/internal/metrics"
	"github.com/adred-codev/etfw/internal/msgid"
	"github.com/adred-codev/etfw/internal/resource"
	"github.com/adred-codev/etfw/internal/service"
	"github.com/rs/zerolog"

	_ "go.uber.org/automaxprocs"
)

func splitList(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseZerologLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides ETFW_LOG_LEVEL)")
	flag.Parse()

	maxProcs := runtime.GOMAXPROCS(0)

	cfg, err := config.Load(nil)
	if err != nil {
		panic(err)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	zl := logx.DefaultZerologLogger(parseZerologLevel(cfg.LogLevel), cfg.LogFormat == "pretty")
	zl.Info().Int("gomaxprocs", maxProcs).Msg("starting etfwd")

	cfg.LogConfig(zl)
	cfg.Print()

	poolCapacity := cfg.PoolCapacity
	if cfg.MemoryLimitBytes == 0 {
		if limit, err := resource.MemoryLimitBytes(); err == nil {
			poolCapacity = resource.PoolCapacityFromMemory(limit, 4096, cfg.PoolCapacity)
		}
	} else {
		poolCapacity = resource.PoolCapacityFromMemory(cfg.MemoryLimitBytes, 4096, cfg.PoolCapacity)
	}

	pool := bufpool.New(poolCapacity)
	b := broker.New(pool)
	exec := executor.New(executor.DefaultCapacity, zl)
	metricsReg := metrics.New()

	const telemetryModule uint8 = 1
	const healthServiceID uint32 = 1
	health := service.New(
		healthServiceID,
		"health-telemetry",
		service.NewActiveRunner(0, 0),
		healthtelemetry.NewHooks(healthtelemetry.Config{
			Module:   telemetryModule,
			Func:     0,
			Interval: cfg.MetricsInterval,
			Logger:   zl,
		}, b),
		b,
		zl,
	)

	shutdown := startCollaborators(cfg, b, zl, metricsReg)

	metricsServer := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      metricsHandler(metricsReg, pool, b),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	if err := exec.Register(health); err.IsError() {
		zl.Fatal().Str("status", err.Message()).Msg("failed to register health-telemetry service")
	}
	for _, result := range exec.StartAll() {
		if result.Status.IsError() {
			zl.Error().Uint32("service_id", result.ID).Str("service", result.Name).Str("status", result.Status.Message()).Msg("service failed to start")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zl.Info().Msg("shutting down etfwd")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(ctx)

	exec.StopAll()
	shutdown()
}

// startCollaborators starts every external collaborator enabled in
// config and returns stopAll, which stops them in reverse start order.
func startCollaborators(cfg *config.Config, b *broker.Broker, zl zerolog.Logger, metricsReg *metrics.Registry) (stopAll func()) {
	var stoppers []func()

	if cfg.KafkaBrokers != "" {
		ingest, err := kafkaingest.New(kafkaingest.Config{
			Brokers:       splitList(cfg.KafkaBrokers),
			ConsumerGroup: cfg.KafkaConsumerGroup,
			Topics:        splitList(cfg.KafkaTopics),
			Module:        2,
			Func:          0,
			Logger:        zl.With().Str("collaborator", "kafkaingest").Logger(),
			RatePerSec:    cfg.SendRatePerSec,
			Burst:         int(cfg.SendRatePerSec),
		}, b)
		if err != nil {
			zl.Error().Err(err).Msg("kafka ingest disabled: failed to construct client")
		} else {
			ingest.Start()
			stoppers = append(stoppers, ingest.Stop)
		}
	}

	if cfg.NatsURL != "" {
		relay, err := natscmd.Connect(natscmd.Config{
			URL:           cfg.NatsURL,
			MaxReconnects: 10,
			ReconnectWait: time.Second,
			Subject:       cfg.NatsSubject,
			Module:        3,
			Func:          0,
			Logger:        zl.With().Str("collaborator", "natscmd").Logger(),
		}, b)
		if err != nil {
			zl.Error().Err(err).Msg("nats relay disabled: failed to connect")
		} else if err := relay.Start(cfg.NatsSubject); err != nil {
			zl.Error().Err(err).Msg("nats relay disabled: failed to subscribe")
			relay.Stop()
		} else {
			stoppers = append(stoppers, relay.Stop)
		}
	}

	if cfg.WSPublishAddr != "" {
		pub := wspublish.New(b, msgid.Pack(1, msgid.Tlm, 0), cfg.QueueDepthLimit, zl.With().Str("collaborator", "wspublish").Logger(), "wspublish", metricsReg)
		mux := http.NewServeMux()
		mux.Handle("/ws/telemetry", pub)
		wsServer := &http.Server{Addr: cfg.WSPublishAddr, Handler: mux}

		var keepGoing atomic.Bool
		keepGoing.Store(true)
		go pub.Run(keepGoing.Load, 5*time.Second)
		go func() {
			if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error().Err(err).Msg("ws publish server stopped unexpectedly")
			}
		}()
		stoppers = append(stoppers, func() {
			keepGoing.Store(false)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = wsServer.Shutdown(ctx)
		})
	}

	return func() {
		for i := len(stoppers) - 1; i >= 0; i-- {
			stoppers[i]()
		}
	}
}

func metricsHandler(reg *metrics.Registry, pool *bufpool.Pool, b *broker.Broker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		reg.ObservePool(pool.Stats())
		reg.ObserveBroker(b.Stats())
		reg.Handler().ServeHTTP(w, r)
	})
	return mux
}
