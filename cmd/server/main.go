package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"crewmission-service/internal/domain/entity"
	domainrepo "crewmission-service/internal/domain/repository"
	"crewmission-service/internal/infrastructure/config"
	"crewmission-service/internal/infrastructure/oauth"
	"crewmission-service/internal/infrastructure/persistence"
	"crewmission-service/internal/infrastructure/router"
	"crewmission-service/internal/interface/gmail"
	httpserver "crewmission-service/internal/interface/http"
	"crewmission-service/internal/interface/repository"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"
	"crewmission-service/templates"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Initialize logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting crewmission service", "version", cfg.AppVersion, "primaryStore", cfg.MissionStorePrimary)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.NewMetrics("crewmission", prometheus.DefaultRegisterer)

	// Connect to MongoDB
	var mongoClient *mongo.Client
	var mongoDB *mongo.Database
	if cfg.MongoURI != "" {
		mongoClient, err = persistence.NewMongoClient(ctx, persistence.MongoOptions{
			URI:            cfg.MongoURI,
			Username:       cfg.MongoUser,
			Password:       cfg.MongoPassword,
			ConnectTimeout: cfg.StoreTimeout * 2,
		})
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		mongoDB = persistence.GetDatabase(mongoClient, cfg.MongoDB)
		log.Info("Connected to MongoDB", "database", cfg.MongoDB)
	}

	// Connect to Postgres
	var pgDB *gorm.DB
	if cfg.PostgresDSN != "" {
		pgDB, err = persistence.NewPostgresDB(cfg.PostgresDSN,
			&repository.MissionOrders{},
			&repository.ActivityLogs{},
			&repository.Crews{},
			&repository.CrewMembers{},
			&repository.Aircrafts{},
			&repository.ClientMargins{},
		)
		if err != nil {
			log.Fatal("Failed to connect to Postgres", "error", err)
		}
		log.Info("Connected to Postgres")
	}

	// Initialize repositories
	missions := buildMissionStore(cfg, mongoDB, pgDB, log, appMetrics)

	var notifications domainrepo.NotificationRepository = repository.NewMemoryNotificationRepository()
	if mongoDB != nil {
		notifications = repository.NewMongoNotificationRepository(mongoDB)
	}

	var activities domainrepo.ActivityRepository = repository.NewMemoryActivityRepository()
	var crews domainrepo.CrewRepository
	var aircraft domainrepo.AircraftRepository
	var margins domainrepo.MarginRepository
	if pgDB != nil {
		activities = repository.NewGormActivityRepository(pgDB, log)
		crews = repository.NewGormCrewRepository(pgDB)
		aircraft = repository.NewGormAircraftRepository(pgDB)
		margins = repository.NewGormMarginRepository(pgDB)
	}

	var mailer domainrepo.MailRepository = repository.NewLogMailRepository(log)
	if cfg.GmailEnabled() {
		tokenSource := oauth.NewGmailOAuth(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken, "", log).GetTokenSource(ctx)
		gmailMailer, err := gmail.NewGmailMailer(ctx, tokenSource, cfg.MailSender, log, 30*time.Second)
		if err != nil {
			log.Fatal("Failed to create Gmail mailer", "error", err)
		}
		mailer = gmailMailer
		log.Info("Client emails are sent through Gmail", "sender", cfg.MailSender)
	} else {
		log.Warn("Gmail is not configured, client emails are only logged")
	}

	var backend domainrepo.CrewAssignmentRepository
	if cfg.CrewServiceURL != "" {
		backend = repository.NewHTTPCrewAssignmentRepository(repository.CrewServiceConfig{
			BaseURL:     cfg.CrewServiceURL,
			BearerToken: cfg.CrewServiceToken,
			Timeout:     cfg.CrewServiceTimeout,
			Retries:     cfg.CrewServiceRetries,
		}, log)
	} else {
		log.Warn("CREW_SERVICE_URL is not set, crew assignments will fail until it is configured")
		backend = repository.NewHTTPCrewAssignmentRepository(repository.CrewServiceConfig{}, log)
	}

	// Initialize notification rules
	rules := router.NewEventRouter(log)
	for _, rule := range templates.DefaultRules(cfg.AdminAppURL) {
		rules.Register(rule)
	}

	// Initialize use cases
	composer := templates.NewClientApprovalEmail()
	dispatcher := usecase.NewNotificationDispatcher(notifications, missions, rules, log, appMetrics, cfg.AdminAppURL, nil)
	transitioner := usecase.NewTransitioner(missions, activities, dispatcher, log, appMetrics, nil)
	dates := usecase.NewDateModificationService(transitioner, composer, log)
	scheduler := usecase.NewAssignmentScheduler(missions, backend, transitioner, dispatcher, cfg.AutoGenerateContract, log, appMetrics)
	checker := usecase.NewValidationChecker(missions, transitioner, log)

	pollers := usecase.Pollers{
		usecase.NewPoller("crew_assignment", cfg.AssignmentPollInterval, scheduler.RunOnce, log, appMetrics),
		usecase.NewPoller("escalation", cfg.EscalationPollInterval, dispatcher.ScanEscalations, log, appMetrics),
		usecase.NewPoller("validation", cfg.ValidationPollInterval, checker.Run, log, appMetrics),
	}

	handler := httpserver.NewHandler(httpserver.Services{
		Missions: usecase.NewMissionService(missions, crews, aircraft, margins, transitioner, dispatcher, composer,
			entity.MarginConfig{Type: entity.MarginType(cfg.DefaultMarginType), Value: cfg.DefaultMarginValue}, log),
		Approvals:  usecase.NewApprovalOrchestrator(transitioner, missions, mailer, composer, dates, log),
		Dates:      dates,
		Execution:  usecase.NewExecutionTracker(transitioner, log),
		Scheduler:  scheduler,
		Checker:    checker,
		Dispatcher: dispatcher,
		Pollers:    pollers,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpserver.NewRouter(handler, prometheus.DefaultGatherer, cfg.AppVersion, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, p := range pollers {
		p := p
		g.Go(func() error {
			return p.Start(gctx)
		})
	}

	g.Go(func() error {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", "error", err)
	}

	if mongoClient != nil {
		if err := persistence.DisconnectMongo(mongoClient, 5*time.Second); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}

	log.Info("Server exited")
}

// buildMissionStore assembles the read chain: the configured primary, the
// other durable store when it is available, and an in-memory cache last.
func buildMissionStore(cfg *config.Config, mongoDB *mongo.Database, pgDB *gorm.DB, log logger.Logger, m *metrics.Metrics) domainrepo.MissionRepository {
	cache := repository.StoreHop{Name: "cache", Store: repository.NewMemoryMissionRepository()}
	if cfg.MissionStorePrimary == "memory" {
		return cache.Store
	}

	var mongoHop, pgHop repository.StoreHop
	if mongoDB != nil {
		mongoHop = repository.StoreHop{Name: "mongo", Store: repository.NewMongoMissionRepository(mongoDB)}
	}
	if pgDB != nil {
		pgHop = repository.StoreHop{Name: "postgres", Store: repository.NewGormMissionRepository(pgDB)}
	}

	primary, secondary := mongoHop, pgHop
	if cfg.MissionStorePrimary == "postgres" {
		primary, secondary = pgHop, mongoHop
	}

	return repository.NewResilientMissionRepository(primary, []repository.StoreHop{secondary, cache}, repository.ResilienceConfig{
		Timeout: cfg.StoreTimeout,
		Retries: cfg.StoreRetries,
	}, log, m)
}
