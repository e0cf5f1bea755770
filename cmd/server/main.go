package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"leave-ledger/internal/api"
	"leave-ledger/internal/authz"
	"leave-ledger/internal/cache"
	"leave-ledger/internal/config"
	"leave-ledger/internal/database"
	"leave-ledger/internal/handler"
	"leave-ledger/internal/i18n"
	"leave-ledger/internal/notify"
	"leave-ledger/internal/repository"
	"leave-ledger/internal/service"
	"leave-ledger/pkg/telegram"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetConfig()
	log := cfg.NewLogger()
	log.Info("Config initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	employeeRepo, err := repository.NewGormEmployeeRepository(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create employee repository")
	}
	balanceRepo, err := repository.NewGormLeaveBalanceRepository(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create leave balance repository")
	}
	requestRepo, err := repository.NewGormLeaveRequestRepository(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create leave request repository")
	}
	workflowRepo, err := repository.NewGormApprovalWorkflowRepository(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create approval workflow repository")
	}
	documentRepo, err := repository.NewGormLeaveDocumentRepository(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create leave document repository")
	}
	nonWorkingDayRepo, err := repository.NewGormNonWorkingDayRepository(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create non-working day repository")
	}

	authorizer, err := authz.New(cfg.CasbinPolicyFile, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create authorizer")
	}

	translator, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		log.WithError(err).Fatal("Failed to load translations")
	}

	employeeService := service.NewEmployeeService(employeeRepo, authorizer, log)
	if err := employeeService.SyncPolicies(ctx); err != nil {
		log.WithError(err).Fatal("Failed to load authorization policies")
	}
	if err := employeeService.InitializeAdmin(ctx, cfg.BaseAdminChatID); err != nil {
		log.WithError(err).Warn("Failed to initialize admin")
	} else if cfg.BaseAdminChatID != 0 {
		log.Infof("Admin initialized with chat ID: %d", cfg.BaseAdminChatID)
	}

	calendarService := service.NewNonWorkingDayService(nonWorkingDayRepo, log)
	if cfg.WeekendsFile != "" {
		if _, err := calendarService.LoadFromJSON(ctx, cfg.WeekendsFile); err != nil {
			log.WithError(err).Warn("Failed to load non-working days")
		}
	}

	ledger := service.NewBalanceLedger(db, balanceRepo, cfg.DefaultEntitlements, cfg.ReserveMaxRetries, log)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable, balance cache disabled")
			rdb.Close()
			rdb = nil
		} else {
			ledger.WithCache(cache.NewBalanceCache(rdb, cfg.BalanceCacheTTL))
		}
	}

	var (
		tgClient *telegram.Client
		sinks    notify.Multi
	)
	if cfg.TelegramToken != "" {
		tgClient, err = telegram.NewClient(cfg.TelegramToken, cfg.LogLevel == "debug")
		if err != nil {
			log.WithError(err).Fatal("Failed to create Telegram client")
		}
		log.Infof("Authorized on account %s", tgClient.Bot.Self.UserName)
		sinks = append(sinks, notify.NewTelegram(tgClient, employeeService, translator, cfg.BaseAdminChatID))
	}
	var kafkaWriter io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		w := notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		kafkaWriter = w
		sinks = append(sinks, notify.NewKafka(w))
	}
	notifier := notify.NewAsync(sinks, cfg.NotifyBuffer, cfg.NotifyTimeout, log)

	workflowService := service.NewWorkflowService(db, workflowRepo, authorizer, cfg.ReserveMaxRetries, log)
	documentService := service.NewDocumentService(documentRepo, log)
	leaveService := service.NewLeaveService(service.LeaveServiceDeps{
		DB:            db,
		Requests:      requestRepo,
		Employees:     employeeRepo,
		Ledger:        ledger,
		Workflows:     workflowService,
		Documents:     documentService,
		Calendar:      calendarService,
		Authz:         authorizer,
		Notifier:      notifier,
		ApprovalSteps: cfg.LeaveApprovalSteps,
		MaxRetries:    cfg.ReserveMaxRetries,
		Logger:        log,
	})

	apiHandler := api.NewHandler(api.Deps{
		Employees:    employeeService,
		Leave:        leaveService,
		Entitlements: ledger,
		Workflows:    workflowService,
		Calendar:     calendarService,
		Authz:        authorizer,
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Logger: log,
	})
	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(apiHandler, api.RouterOptions{
			AllowedOrigins: cfg.CORSOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	botDone := make(chan struct{})
	if tgClient != nil {
		botHandler := handler.NewHandler(tgClient, employeeService, leaveService, translator, log)
		go func() {
			defer close(botDone)
			botHandler.HandleUpdates(ctx, tgClient.Updates())
		}()
		log.Info("Bot started")
	} else {
		close(botDone)
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}
	if tgClient != nil {
		tgClient.Stop()
	}
	<-botDone

	notifier.Close()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			log.WithError(err).Warn("Error closing Kafka writer")
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	if err := database.Close(db); err != nil {
		log.WithError(err).Warn("Error closing database")
	}

	log.Info("Server stopped gracefully")
}
