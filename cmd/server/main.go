package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/config"
	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/chat"
	historyDomain "github.com/fixmate/service-marketplace/internal/domain/history"
	jobDomain "github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/events"
	"github.com/fixmate/service-marketplace/internal/handler"
	"github.com/fixmate/service-marketplace/internal/integration/assistant"
	"github.com/fixmate/service-marketplace/internal/integration/geocode"
	"github.com/fixmate/service-marketplace/internal/integration/nhtsa"
	"github.com/fixmate/service-marketplace/internal/integration/sms"
	"github.com/fixmate/service-marketplace/internal/platform/async"
	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/fixmate/service-marketplace/internal/platform/database"
	"github.com/fixmate/service-marketplace/internal/platform/health"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
	"github.com/fixmate/service-marketplace/internal/platform/logger"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/reminder"
	"github.com/fixmate/service-marketplace/internal/repository"
	"github.com/fixmate/service-marketplace/internal/repository/memory"
	"github.com/fixmate/service-marketplace/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "service-marketplace"

// stores groups the repositories of one store driver.
type stores struct {
	bookings      bookingDomain.BookingRepository
	jobs          jobDomain.JobRepository
	vehicles      vehicleDomain.VehicleRepository
	schedules     maintenance.ScheduleRepository
	history       historyDomain.RecordRepository
	notifications notification.Repository
	contacts      notification.ContactRepository
	messages      chat.Repository
	pinger        health.Pinger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.DBConfig.Driver),
	)

	repos, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}

	// Initialize JWT verifier
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.TokenTTL)

	// Side effects of status transitions and chat run here
	runner := async.NewRunner(log, cfg.SideEffectTimeout)

	// Initialize Kafka producer
	var publisher application.EventPublisher
	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = kafkaProducer
	} else {
		log.Warn("kafka brokers not configured, booking events are not published")
	}

	// Initialize external collaborators
	geocoder := newGeocoder(cfg, log)
	vehicleData := nhtsa.NewClient(
		cfg.NHTSAConfig.VPICBaseURL,
		cfg.NHTSAConfig.RecallsBaseURL,
		&http.Client{Timeout: cfg.NHTSAConfig.Timeout},
		log,
	)
	completer := newCompleter(cfg, log)

	var smsSender application.SMSSender = sms.LogSender{Logger: log}
	if cfg.TwilioConfig.AccountSID != "" && cfg.TwilioConfig.AuthToken != "" {
		smsSender = sms.NewTwilioSender(cfg.TwilioConfig.AccountSID, cfg.TwilioConfig.AuthToken, cfg.TwilioConfig.From, log)
	}

	// Initialize application services
	notificationService := application.NewNotificationService(repos.notifications, repos.contacts, smsSender, log)
	bookingService := application.NewBookingService(repos.bookings, repos.vehicles, log)
	statusService := application.NewStatusService(
		repos.bookings,
		repos.vehicles,
		repos.history,
		nil,
		geocoder,
		publisher,
		notificationService,
		runner,
		log,
	)
	healthService := application.NewHealthService(repos.bookings, repos.vehicles, repos.schedules, nil, log)
	vehicleService := application.NewVehicleService(repos.vehicles, repos.schedules, repos.history, vehicleData, log)
	jobService := application.NewJobService(repos.jobs, log)
	chatService := application.NewChatService(repos.bookings, repos.messages, notificationService, runner, log)
	assistantService := application.NewAssistantService(completer, repos.vehicles, repos.schedules, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Payment captures trigger a health recompute of the serviced vehicle
	if len(cfg.KafkaConfig.Brokers) > 0 {
		groupID := cfg.KafkaConfig.GroupPrefix + "vehicle-health"
		paymentConsumer := events.NewPaymentEventConsumer(cfg.KafkaConfig.Brokers, groupID, healthService, log)
		defer func() { _ = paymentConsumer.Close() }()

		go func() {
			log.Info("starting payment event consumer")
			if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment event consumer error", zap.Error(err))
			}
		}()
	}

	// Technician GPS feed
	if cfg.MQTTConfig.BrokerURL != "" {
		locations := events.NewLocationSubscriber(
			cfg.MQTTConfig.BrokerURL,
			cfg.MQTTConfig.ClientID,
			cfg.MQTTConfig.Topic,
			jobService,
			log,
		)
		if err := locations.Start(); err != nil {
			log.Error("location subscriber failed to start", zap.Error(err))
		} else {
			defer locations.Close()
		}
	}

	// Maintenance reminder sweep, also runnable from the admin API
	sweeper := reminder.NewSweeper(repos.schedules, healthService, notificationService, cfg.ReminderConfig.Timeout, log).
		WithRecalls(vehicleService)
	if cfg.ReminderConfig.Enabled {
		if err := sweeper.Start(cfg.ReminderConfig.Spec); err != nil {
			log.Fatal("failed to start reminder sweep", zap.Error(err))
		}
		defer sweeper.Stop()
	}

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(repos.pinger, serviceName).RegisterRoutes(router)

	// Register routes
	api := &router.RouterGroup
	handler.NewBookingHandler(bookingService, statusService).RegisterRoutes(api, jwtManager)
	handler.NewAdminHandler(bookingService, healthService, sweeper).RegisterRoutes(api, jwtManager)
	handler.NewVehicleHandler(vehicleService, healthService).RegisterRoutes(api, jwtManager)
	handler.NewJobHandler(jobService).RegisterRoutes(api, jwtManager)
	handler.NewMessageHandler(chatService).RegisterRoutes(api, jwtManager)
	handler.NewNotificationHandler(notificationService).RegisterRoutes(api, jwtManager)
	handler.NewAssistantHandler(assistantService).RegisterRoutes(api, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	// Drain in-flight side effects
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn("side effects still running at shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

func openStores(cfg *config.ServiceConfig, log *zap.Logger) (*stores, error) {
	if cfg.DBConfig.Driver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		s := memory.NewStore()
		notes := memory.NewNotificationRepository(s)
		return &stores{
			bookings:      memory.NewBookingRepository(s),
			jobs:          memory.NewJobRepository(s),
			vehicles:      memory.NewVehicleRepository(s),
			schedules:     memory.NewScheduleRepository(s),
			history:       memory.NewRecordRepository(s),
			notifications: notes,
			contacts:      notes,
			messages:      memory.NewMessageRepository(s),
		}, nil
	}

	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run database migrations
	if cfg.IsDevelopment() {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			return nil, fmt.Errorf("failed to run auto-migration: %w", err)
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), migrations.FS, log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	notes := repository.NewGormNotificationRepository(db)
	return &stores{
		bookings:      repository.NewGormBookingRepository(db),
		jobs:          repository.NewGormJobRepository(db),
		vehicles:      repository.NewGormVehicleRepository(db),
		schedules:     repository.NewGormScheduleRepository(db),
		history:       repository.NewGormHistoryRepository(db),
		notifications: notes,
		contacts:      notes,
		messages:      repository.NewGormMessageRepository(db),
		pinger:        sqlDB,
	}, nil
}

func newGeocoder(cfg *config.ServiceConfig, log *zap.Logger) application.Geocoder {
	if cfg.GeocodeConfig.APIKey == "" {
		log.Warn("google maps api key not configured, addresses are not geocoded")
		return geocode.Noop{}
	}
	g, err := geocode.NewGoogleGeocoder(cfg.GeocodeConfig.APIKey, cfg.GeocodeConfig.BaseURL, log)
	if err != nil {
		log.Warn("geocoder disabled", zap.Error(err))
		return geocode.Noop{}
	}
	return g
}

func newCompleter(cfg *config.ServiceConfig, log *zap.Logger) application.ChatCompleter {
	if cfg.OllamaConfig.BaseURL == "" {
		log.Warn("ollama base url not configured, assistant is disabled")
		return nil
	}
	c, err := assistant.NewOllamaClient(cfg.OllamaConfig.BaseURL, cfg.OllamaConfig.Model, cfg.OllamaConfig.Timeout, log)
	if err != nil {
		log.Warn("assistant disabled", zap.Error(err))
		return nil
	}
	return c
}
