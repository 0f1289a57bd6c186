// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-usersettings/internal/application"
	"telegram-usersettings/internal/config"
	"telegram-usersettings/internal/conversation"
	"telegram-usersettings/internal/domain/ports/adapter"
	tele "telegram-usersettings/internal/infra/adapters/telegram"
	pg "telegram-usersettings/internal/infra/db/postgres"
	"telegram-usersettings/internal/infra/events"
	"telegram-usersettings/internal/infra/i18n"
	"telegram-usersettings/internal/infra/logging"
	"telegram-usersettings/internal/infra/media"
	"telegram-usersettings/internal/infra/metrics"
	red "telegram-usersettings/internal/infra/redis"
	"telegram-usersettings/internal/infra/storage"
	"telegram-usersettings/internal/infra/web"
	"telegram-usersettings/internal/infra/worker"
	"telegram-usersettings/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

type poller interface {
	adapter.Messenger
	SetSettingsHandler(h tele.SettingsHandler)
	StartPolling(ctx context.Context) error
	StopPolling()
	Close()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	mirror := red.NewSessionMirror(redisClient, cfg.Conversation.Timeout+time.Minute)

	// ---- Repositories ----
	settingsRepo := pg.NewSettingsRepoCacheDecorator(pg.NewPostgresSettingsRepo(pool), redisClient, cfg.Redis.TTL, logger)

	// ---- Background writes ----
	writers := worker.NewPool(cfg.Settings.WriteWorkers, logger)
	writers.Start(ctx)

	// ---- Events ----
	var publisher adapter.EventPublisher
	if cfg.Events.AMQPURL != "" {
		publisher, err = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("amqp publisher")
		}
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	// ---- Use cases ----
	files := storage.NewDiskStore(cfg.Settings.DataDir, media.NewThumbnailer(cfg.Settings.ThumbnailSize))
	settingsUC := usecase.NewSettingsUseCase(
		settingsRepo, files, writers,
		cfg.Settings.Defaults,
		usecase.Limits{MaxSplitSize: cfg.Settings.MaxSplitSize},
		logger,
		usecase.WithEventPublisher(publisher),
	)

	// ---- Telegram ----
	var bot poller
	if strings.ToLower(cfg.Bot.Mode) == "noop" {
		logger.Warn().Msg("bot.mode=noop: telegram traffic is logged, not sent")
		bot = &noopPoller{NoopBotAdapter: tele.NewNoopBotAdapter(logger)}
	} else {
		if cfg.Bot.Mode != "" && strings.ToLower(cfg.Bot.Mode) != "polling" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented; falling back to polling")
		}
		translator, err := i18n.NewTranslator(i18n.LocalesFS, "en")
		if err != nil {
			logger.Fatal().Err(err).Msg("i18n")
		}
		tgBot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, rateLimiter, translator, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		bot = tgBot
	}

	// ---- Conversations ----
	manager := conversation.NewManager(conversation.NewRegistry(), bot, conversation.Config{
		Timeout:         cfg.Conversation.Timeout,
		PollInterval:    cfg.Conversation.PollInterval,
		RefreshInterval: cfg.Conversation.RefreshInterval,
		EditTimeout:     cfg.Conversation.EditTimeout,
	}, logger, conversation.WithMirror(mirror))

	router := application.NewSettingsRouter(settingsUC, manager, bot, application.RouterConfig{
		Premium:       cfg.Settings.PremiumUser,
		PromptTimeout: cfg.Conversation.Timeout,
	}, logger)
	bot.SetSettingsHandler(router)

	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Admin HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.TokenTTL)
	admin := web.NewServer(settingsUC, manager, mirror, cfg.Admin.APIKey, auth, logger)
	if cfg.Admin.Port > 0 {
		go func() {
			if err := admin.Start(cfg.Admin.Port); err != nil {
				logger.Error().Err(err).Msg("admin http server")
			}
		}()
	}

	logger.Info().Str("version", version).Msg("bot started")

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()

	bot.StopPolling()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("conversation shutdown")
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin http shutdown")
	}
	// pending writes still need the database and the publisher
	writers.Stop()
	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("publisher close")
	}
	bot.Close()
	cancel()
}

// noopPoller gives the noop adapter the lifecycle of the real one.
type noopPoller struct {
	*tele.NoopBotAdapter
}

func (p *noopPoller) SetSettingsHandler(tele.SettingsHandler) {}

func (p *noopPoller) StartPolling(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (p *noopPoller) StopPolling() {}
func (p *noopPoller) Close()       {}
