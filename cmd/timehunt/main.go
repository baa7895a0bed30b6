package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"timehunt/internal/bot"
	"timehunt/internal/config"
	"timehunt/internal/logging"
	"timehunt/internal/repository"
	"timehunt/internal/service"
)

const jobTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	redisClient, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis ping failed, leaderboard reads fall back to the sheet", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := repository.NewLeaderboardCache(redisClient, cfg.LeaderboardTTL)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("create bot api", zap.Error(err))
	}
	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	loc := cfg.Location
	reminders := repository.NewReminderSheet(db)
	profiles := repository.NewProfileSheet(db)
	notifier := bot.NewTelegramNotifier(api, cfg.NotifyRate, logger)

	syncSvc := service.NewSyncService(reminders, profiles, cache, loc, logger)
	summaries := service.NewSummaryService(loc)
	tasks := service.NewTaskService(syncSvc, loc, logger)
	telegramBot := bot.New(api, bot.Services{
		Sync:      syncSvc,
		Alarms:    service.NewAlarmService(syncSvc, notifier, loc, logger),
		Rewards:   service.NewRewardService(syncSvc, syncSvc, loc, logger),
		Tasks:     tasks,
		Profiles:  service.NewProfileService(profiles, cache, loc, logger),
		Summaries: summaries,
		// no assistant backend is bundled; /ask reports it as not configured
		Assistant: service.NewAssistantService(nil, summaries, tasks, logger),
	}, notifier, logger)

	scheduler := service.NewSchedulerService(loc, logger)
	if _, err := scheduler.ScheduleInterval(cfg.TickInterval, jobTimeout, telegramBot.TickAll); err != nil {
		logger.Fatal("schedule alarm ticks", zap.Error(err))
	}
	if cfg.DigestTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, jobTimeout, func(jobCtx context.Context) {
			if err := telegramBot.SendDailyDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("daily digest", zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("schedule daily digest", zap.Error(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	go notifier.Run(ctx)

	logger.Info("timehunt started",
		zap.Duration("tick_interval", cfg.TickInterval),
		zap.String("digest_time", cfg.DigestTime),
		zap.Bool("leaderboard_cache", cache.Enabled()),
	)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
