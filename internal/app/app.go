package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinematogether/server/internal/broadcast"
	"github.com/cinematogether/server/internal/controller"
	"github.com/cinematogether/server/internal/identity"
	"github.com/cinematogether/server/internal/metrics"
	connInmemory "github.com/cinematogether/server/internal/repository/connection/inmemory"
	handshakeRedis "github.com/cinematogether/server/internal/repository/handshake/redis"
	"github.com/cinematogether/server/internal/room"
	"github.com/cinematogether/server/pkg/ctxlogger"
	"github.com/cinematogether/server/pkg/redisclient"
)

type AppConfig struct {
	Secret   string `json:"-"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`

	GracePeriodSec  int     `json:"grace_period_sec"`
	IdleTimeoutSec  int     `json:"idle_timeout_sec"`
	DriftTolerance  float64 `json:"drift_tolerance"`
	ResyncFloorSec  int     `json:"resync_floor_sec"`
	ChatHistorySize int     `json:"chat_history_size"`
	MaxMessageLen   int     `json:"max_message_len"`

	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535")
	}
	if cfg.DriftTolerance < 0 {
		return fmt.Errorf("drift tolerance must not be negative")
	}

	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(promReg)

	broadcaster := broadcast.New(m, logger)
	registry := room.NewRegistry(broadcaster, m, room.Config{
		GracePeriod:     time.Duration(cfg.GracePeriodSec) * time.Second,
		IdleTimeout:     time.Duration(cfg.IdleTimeoutSec) * time.Second,
		DriftTolerance:  cfg.DriftTolerance,
		ResyncInterval:  time.Duration(cfg.ResyncFloorSec) * time.Second,
		ChatHistorySize: cfg.ChatHistorySize,
		MaxMessageLen:   cfg.MaxMessageLen,
	}, 10*time.Second, logger)

	handshakeRepo := handshakeRedis.NewRepo(rc, 2*time.Minute)
	connRepo := connInmemory.NewRepo()
	verifier := identity.NewVerifier(cfg.Secret)

	ctrl := controller.NewController(
		registry,
		handshakeRepo,
		connRepo,
		verifier,
		broadcaster,
		promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		controller.Config{},
		logger,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: ctrl.GetMux(),
	}

	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	go registry.Run(serverCtx)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		select {
		case <-serverCtx.Done():
			return
		case <-sig:
		}

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
