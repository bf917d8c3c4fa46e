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

	"github.com/bingesync/server/internal/controller"
	accountredis "github.com/bingesync/server/internal/repository/account/redis"
	"github.com/bingesync/server/internal/repository/connection/inmemory"
	roomredis "github.com/bingesync/server/internal/repository/room/redis"
	"github.com/bingesync/server/internal/repository/wssender"
	"github.com/bingesync/server/internal/service/account"
	"github.com/bingesync/server/internal/service/room"
	"github.com/bingesync/server/pkg/ctxlogger"
	"github.com/bingesync/server/pkg/redisclient"
)

type AppConfig struct {
	Secret           string `json:"-"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	LogLevel         string `json:"log_level"`
	MembersLimit     int    `json:"members_limit"`
	MessageMaxLength int    `json:"message_max_length"`
	HistoryLimit     int    `json:"history_limit"`
	RedisPort        int    `json:"redis_port"`
	RedisHost        string `json:"redis_host"`
	RedisPassword    string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.MessageMaxLength < 1 {
		return fmt.Errorf("message max length must be greater than 0")
	}
	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be greater than 0")
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
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := roomredis.NewRepo(rc, logger)
	accountRepo := accountredis.NewRepo(rc, logger)
	connectionRepo := inmemory.NewRepo(logger)
	sender := wssender.NewRepo(logger)

	accountService := account.NewService(accountRepo, logger, &account.Config{
		Secret: cfg.Secret,
	})
	roomService := room.NewService(roomRepo, connectionRepo, accountRepo, sender, logger, &room.Config{
		MembersLimit:     cfg.MembersLimit,
		MessageMaxLength: cfg.MessageMaxLength,
		HistoryLimit:     cfg.HistoryLimit,
	})

	controller := controller.NewController(roomService, accountService, sender, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
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
