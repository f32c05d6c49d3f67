package main

import (
	"context"
	"fmt"
	"time"

	"farewatch-service/internal/domain/repository"
	"farewatch-service/internal/infrastructure/config"
	"farewatch-service/internal/infrastructure/oauth"
	"farewatch-service/internal/infrastructure/persistence"
	"farewatch-service/internal/infrastructure/router"
	"farewatch-service/internal/interface/amadeus"
	"farewatch-service/internal/interface/gmail"
	repo "farewatch-service/internal/interface/repository"
	"farewatch-service/internal/usecase"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/metrics"
	"farewatch-service/pkg/resilience"
	"farewatch-service/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/api/option"
)

// app is the fully wired pipeline plus the resources to release on exit
type app struct {
	cfg       *config.Config
	log       logger.Logger
	collector *usecase.FareCollector
	registry  *prometheus.Registry
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp connects every configured backend and assembles the collector.
// Optional backends (Redis, Postgres, Gmail, webhook) are skipped when unset.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("farewatch", a.registry)

	collectorCfg, err := collectorConfig(cfg)
	if err != nil {
		return nil, err
	}

	// Amadeus
	baseURL := amadeus.BaseURLFor(cfg.AmadeusHostname)
	auth := oauth.NewAmadeusOAuth(cfg.AmadeusClientID, cfg.AmadeusClientSecret, baseURL, log)
	client := amadeus.NewClient(auth.HTTPClient(ctx, cfg.AmadeusTimeout), baseURL, log)

	policy := resilience.NewPolicy(resilience.RetryConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}, amadeus.IsTransient, log).OnRetry(func(attempt int, err error) {
		m.SearchRetries.Inc()
	})
	search := usecase.NewFareSearch(client, client, policy, cfg.PerCallSleep, log).WithMetrics(m)

	if cfg.RedisURL != "" {
		rdb, err := persistence.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		search.WithCache(repo.NewRedisDatePriceCache(rdb, cfg.DateCacheTTL))
		log.Info("Date-scan cache enabled", "ttl", cfg.DateCacheTTL)
	}

	// Fare store and alert log
	var store repository.FareRecordRepository
	var alertRepo repository.AlertRepository
	if cfg.MongoRequired() {
		log.Info("Connecting to MongoDB")
		mongoStore, err := persistence.NewMongoStore(ctx, persistence.MongoSettings{
			URI:      cfg.MongoURI,
			Username: cfg.MongoUser,
			Password: cfg.MongoPassword,
			Database: cfg.MongoDB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := mongoStore.Close(); err != nil {
				log.Error("MongoDB disconnect error", "error", err)
			}
		})
		db := mongoStore.DB
		if cfg.FareStore == config.StoreMongo {
			store = repo.NewMongoFareRecordRepository(db, log)
		}
		if cfg.AlertLogEnabled {
			alertRepo = repo.NewMongoAlertRepository(db)
		}
	}
	if store == nil {
		store, err = repo.NewCSVFareRecordRepository(cfg.DataDir, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	// Notification channels
	notifier := router.NewNotifierRouter(log)
	if cfg.GmailEnabled() {
		tokenSource := oauth.NewGmailOAuth(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken, log).GetTokenSource(ctx)
		sender, err := gmail.NewGmailService(ctx, cfg.NotifySender, log, option.WithTokenSource(tokenSource))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create Gmail sender: %w", err)
		}
		notifier.Register("gmail", sender)
	}
	if cfg.WebhookURL != "" {
		notifier.Register("webhook", repo.NewWebhookRepository(cfg.WebhookURL, cfg.WebhookToken, 15*time.Second, log))
	}

	baseline := usecase.NewRollingBaseline(store, nil)
	engine := usecase.NewAlertEngine(baseline, notifier, usecase.AlertConfig{
		ThresholdRatio: cfg.AlertThresholdRatio,
		NotifyEnabled:  cfg.NotifyEnabled,
		Sender:         cfg.NotifySender,
		Recipient:      cfg.NotifyRecipient,
	}, log).WithMetrics(m)
	if alertRepo != nil {
		engine.WithAlertRepository(alertRepo)
	}

	if cfg.PostgresURI != "" {
		gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { persistence.ClosePostgres(gormDB) })
		lookups := repo.NewGormLookupRepository(gormDB, log)
		engine.WithLookups(lookups, lookups)
	}

	a.collector = usecase.NewFareCollector(
		search,
		store,
		usecase.NewChangeDetector(usecase.DefaultPriceTolerance),
		baseline,
		engine,
		collectorCfg,
		log,
	).WithMetrics(m)

	log.Info("Pipeline ready",
		"route", cfg.Origin+"-"+cfg.Dest,
		"store", cfg.FareStore,
		"channels", notifier.Channels(),
		"notify", cfg.NotifyEnabled)

	return a, nil
}

func collectorConfig(cfg *config.Config) (usecase.CollectorConfig, error) {
	cc := usecase.CollectorConfig{
		Origin:          cfg.Origin,
		Dest:            cfg.Dest,
		Currency:        cfg.Currency,
		Airlines:        cfg.Airlines,
		Adults:          cfg.Adults,
		MaxOffers:       cfg.MaxOffers,
		CheapestOnly:    cfg.CheapestOnly,
		PartitionByDate: cfg.PartitionByDate,
		MonthsAhead:     cfg.MonthsAhead,
		WindowDays:      cfg.RollingWindowDays,
	}

	if cfg.TravelDate != "" {
		d, err := utils.ParseDate(cfg.TravelDate)
		if err != nil {
			return cc, fmt.Errorf("invalid TRAVEL_DATE %q: %w", cfg.TravelDate, err)
		}
		cc.TravelDate = d
	}
	if cfg.StartDate != "" {
		d, err := utils.ParseDate(cfg.StartDate)
		if err != nil {
			return cc, fmt.Errorf("invalid START_DATE %q: %w", cfg.StartDate, err)
		}
		cc.Start = d
	}
	return cc, nil
}
