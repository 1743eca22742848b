package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "warden/internal/http"
	"warden/internal/identity"
	"warden/internal/lease"
	leasehandler "warden/internal/lease/handler"
	leasestore "warden/internal/lease/store"
	"warden/internal/ledger"
	ledgerhandler "warden/internal/ledger/handler"
	ledgersvc "warden/internal/ledger/service"
	compliancestore "warden/internal/ledger/store/compliance"
	identitystore "warden/internal/ledger/store/identity"
	"warden/internal/notify"
	"warden/internal/platform/config"
	"warden/internal/platform/httpserver"
	"warden/internal/platform/logger"
	"warden/internal/platform/postgres"
	redisplatform "warden/internal/platform/redis"
	"warden/internal/profile"
	"warden/internal/suspension"
	"warden/internal/suspension/geo"
	susphandler "warden/internal/suspension/handler"
	suspstore "warden/internal/suspension/store"
	"warden/internal/triggers"
	triggershandler "warden/internal/triggers/handler"
	"warden/internal/trust"
	trusthandler "warden/internal/trust/handler"
	"warden/pkg/domain"
	"warden/pkg/platform/audit"
	auditpub "warden/pkg/platform/audit/publisher"
	auditmem "warden/pkg/platform/audit/store/memory"
	auditpg "warden/pkg/platform/audit/store/postgres"
	"warden/pkg/platform/middleware/adminauth"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("postgres not configured; state will not survive a restart")
	}

	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	publisher, closePublisher := buildAuditPublisher(cfg, db, log)
	defer closePublisher()

	validator := identity.NewValidator(identity.WithLogger(log))
	analyzer := profile.NewAnalyzer(
		profile.WithAnalyzerLogger(log),
		profile.WithHTTPClient(&http.Client{Timeout: cfg.ProfileFetchTimeout}),
	)
	trustSvc, err := trust.NewService(validator, analyzer,
		trust.WithLogger(log),
		trust.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("trust service init failed", "error", err)
		os.Exit(1)
	}

	directory := ledger.NewStaticDirectory()
	seedCampaigns(directory, cfg.Campaigns, log)

	var (
		identityStore   ledger.IdentityStore
		complianceStore ledger.ComplianceStore
	)
	if db != nil {
		identityStore = identitystore.NewPostgresStore(db)
		complianceStore = compliancestore.NewPostgresStore(db)
	} else {
		identityStore = identitystore.NewInMemoryStore()
		complianceStore = compliancestore.NewInMemoryStore()
	}
	ledgerSvc, err := ledgersvc.New(identityStore, complianceStore, directory,
		ledgersvc.WithLogger(log),
		ledgersvc.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("ledger service init failed", "error", err)
		os.Exit(1)
	}

	var (
		suspStore   suspension.Store
		configStore suspension.ConfigStore
	)
	if db != nil {
		suspStore = suspstore.NewPostgresStore(db)
		configStore = suspstore.NewPostgresConfigStore(db)
	} else {
		suspStore = suspstore.NewInMemoryStore()
		configStore = suspstore.NewInMemoryConfigStore()
	}
	suspOpts := []suspension.Option{
		suspension.WithLogger(log),
		suspension.WithAuditPublisher(publisher),
		suspension.WithNotifier(notify.NewSlogNotifier(log)),
	}
	if cfg.GeoLookupURL != "" {
		suspOpts = append(suspOpts, suspension.WithGeoLocator(geo.New(cfg.GeoLookupURL,
			geo.WithLogger(log),
			geo.WithHTTPClient(&http.Client{Timeout: cfg.GeoLookupTimeout}),
		)))
	}
	suspSvc, err := suspension.New(suspStore, configStore, suspOpts...)
	if err != nil {
		log.Error("suspension service init failed", "error", err)
		os.Exit(1)
	}

	var leaseStore lease.Store
	if db != nil {
		leaseStore = leasestore.NewPostgresStore(db)
	} else {
		leaseStore = leasestore.NewInMemoryStore()
	}
	leaseSvc, err := lease.New(leaseStore,
		lease.WithLogger(log),
		lease.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("lease service init failed", "error", err)
		os.Exit(1)
	}

	registry := buildTriggerRegistry(redisClient, suspSvc, ledgerSvc, log)

	trustHandler := trusthandler.New(trustSvc, log)
	ledgerHandler := ledgerhandler.New(ledgerSvc, log)
	suspHandler := susphandler.New(suspSvc, log)
	leaseHandler := leasehandler.New(leaseSvc, log)
	triggersHandler := triggershandler.New(registry, suspSvc, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Public: []httpapi.Registrar{
			trustHandler, ledgerHandler, suspHandler, leaseHandler, triggersHandler,
		},
		Admin:          []httpapi.AdminRegistrar{suspHandler, ledgerHandler},
		AdminValidator: adminauth.NewValidator(cfg.JWTSigningKey),
		Logger:         log,
	})

	sweeper := suspension.NewSweeper(suspSvc, cfg.SweepInterval, log)
	go sweeper.Run(ctx)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("warden listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildAuditPublisher picks the audit sink: kafka when brokers are
// configured, postgres when a database is available, in-memory otherwise.
func buildAuditPublisher(cfg config.Config, db *sql.DB, log *slog.Logger) (audit.Publisher, func()) {
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := auditpub.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err == nil {
			return kp, kp.Close
		}
		log.Warn("kafka audit publisher unavailable, falling back", "error", err)
	}

	var store audit.Store
	if db != nil {
		store = auditpg.New(db)
	} else {
		store = auditmem.NewInMemoryStore()
	}
	p := auditpub.NewPublisher(store,
		auditpub.WithAsyncBuffer(256),
		auditpub.WithLogger(log),
	)
	return p, p.Close
}

// buildTriggerRegistry wires the violation detectors. Detector state lives
// in redis when configured so windows are shared across instances.
func buildTriggerRegistry(redisClient *redisplatform.Client, suspSvc *suspension.Service, ledgerSvc *ledgersvc.Service, log *slog.Logger) *triggers.Registry {
	var (
		window     triggers.ActivityWindow = triggers.NewMemoryWindow()
		outcomeLog triggers.OutcomeLog     = triggers.NewMemoryOutcomeLog()
		seenSet    triggers.SeenSet        = triggers.NewMemorySeenSet()
	)
	if redisClient != nil {
		window = triggers.NewRedisWindow(redisClient.Client, "warden:burst")
		outcomeLog = triggers.NewRedisOutcomeLog(redisClient.Client, "warden:outcomes")
		seenSet = triggers.NewRedisSeenSet(redisClient.Client, "warden:artifacts")
	}

	return triggers.NewRegistry(suspSvc, log,
		triggers.NewBurstDetector(window),
		triggers.NewCooldownDetector(ledgerSvc),
		triggers.NewRejectionDetector(outcomeLog),
		triggers.NewDuplicateDetector(seenSet),
	)
}

func seedCampaigns(directory *ledger.StaticDirectory, seeds map[string]string, log *slog.Logger) {
	for raw, sector := range seeds {
		campaignID, err := domain.ParseCampaignID(raw)
		if err != nil {
			log.Warn("skipping malformed campaign seed", "campaign", raw, "error", err)
			continue
		}
		directory.AddCampaign(campaignID, ledger.Sector(sector))
	}
}
