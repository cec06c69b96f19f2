// cmd/worker-manager/main.go
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

	"go.uber.org/zap"

	"tour-estimate-workers/internal/catalog"
	"tour-estimate-workers/internal/common/auth"
	awsclient "tour-estimate-workers/internal/common/aws"
	"tour-estimate-workers/internal/common/cache"
	"tour-estimate-workers/internal/common/camunda"
	"tour-estimate-workers/internal/common/config"
	"tour-estimate-workers/internal/common/database"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/observability"
	"tour-estimate-workers/internal/common/zoho"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/generation"
	"tour-estimate-workers/internal/matching"
	"tour-estimate-workers/internal/notify"
	"tour-estimate-workers/internal/retrieval"
	"tour-estimate-workers/internal/sessionbus"
	"tour-estimate-workers/pkg/registry"

	eie "tour-estimate-workers/internal/workers/estimate/edit-estimate-item"
	ge "tour-estimate-workers/internal/workers/estimate/generate-estimate"
	rte "tour-estimate-workers/internal/workers/estimate/respond-to-estimate"
	ste "tour-estimate-workers/internal/workers/estimate/submit-to-expert"
	ues "tour-estimate-workers/internal/workers/estimate/update-estimate-status"
	lsi "tour-estimate-workers/internal/workers/session/link-session-identity"
	pse "tour-estimate-workers/internal/workers/session/publish-session-event"
)

// catalogCandidateSimilarity is the pg_trgm prefilter for fuzzy name candidates.
const catalogCandidateSimilarity = 0.3

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	}, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}

	// --- Elasticsearch ---
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch client failed", zap.Error(err))
	}
	if err := es.Ping(ctx); err != nil {
		zapLog.Warn("Elasticsearch not reachable yet; generation will fall back to placeholders", zap.Error(err))
	}

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 5, time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}

	// --- Pipeline ---
	catalogTTL := config.GetDuration(cfg.Cache.CatalogTTL)
	memCache := cache.NewMemoryCache(catalogTTL, 2*catalogTTL)
	lookup := catalog.NewCachedLookup(catalog.NewPostgresCatalog(pg.DB, catalogCandidateSimilarity), memCache, catalogTTL)

	genai := retrieval.NewGenAIClient(cfg.APIs.GenAI.BaseURL, cfg.APIs.GenAI.APIKey, cfg.APIs.GenAI.MaxRetries)
	index := retrieval.NewElasticIndex(es.Client, cfg.Generation.Index, genai,
		cache.NewRedisCache(rdb.Client, "retrieval"), config.GetDuration(cfg.Cache.RetrievalTTL))
	retriever := retrieval.NewRetriever(index, genai, log)
	engine := matching.NewEngine(lookup, matching.NewRegions(cfg.Generation.Regions), log)

	bus := sessionbus.New(sessionbus.Options{
		BacklogSize:      cfg.SessionBus.BacklogSize,
		BacklogTTL:       config.GetDuration(cfg.SessionBus.BacklogTTL),
		SweepInterval:    config.GetDuration(cfg.SessionBus.SweepInterval),
		SubscriberBuffer: cfg.SessionBus.SubscriberBuffer,
	}, log)
	go bus.Run(ctx)

	hooks := estimate.NewHooks(config.GetDuration(cfg.Notifications.Timeout), log, buildHooks(ctx, cfg, bus, log)...)
	store := estimate.NewPostgresStore(pg.DB)
	service := estimate.NewService(store, lookup, hooks, log)
	orchestrator := generation.NewOrchestrator(retriever, engine, store, hooks, generation.Config{
		RetrievalTimeout: config.GetDuration(cfg.Generation.RetrievalTimeout),
		PersistTimeout:   config.GetDuration(cfg.Generation.PersistTimeout),
		TopK:             cfg.Generation.TopK,
		MinSimilarity:    cfg.Generation.MinSimilarity,
		FuzzyThreshold:   cfg.Generation.FuzzyThreshold,
		ValidityDays:     cfg.Generation.ValidityDays,
		FullRecord:       cfg.Generation.FullRecord,
	}, log)

	var identity lsi.IdentityProvider
	if cfg.Auth.Keycloak.URL != "" {
		identity = auth.NewKeycloakClient(cfg.Auth.Keycloak.URL, cfg.Auth.Keycloak.Realm)
	}

	// --- Workers ---
	handlers := map[string]camunda.JobHandler{}
	must := func(taskType string, h camunda.JobHandler, err error) {
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		handlers[taskType] = h
	}

	h1, err := ge.NewHandler(ge.HandlerOptions{AppConfig: cfg, Generator: orchestrator, Observability: obs, Logger: log})
	must(ge.TaskType, h1, err)
	h2, err := ste.NewHandler(ste.HandlerOptions{AppConfig: cfg, Service: service, Observability: obs, Logger: log})
	must(ste.TaskType, h2, err)
	h3, err := rte.NewHandler(rte.HandlerOptions{AppConfig: cfg, Service: service, Observability: obs, Logger: log})
	must(rte.TaskType, h3, err)
	h4, err := ues.NewHandler(ues.HandlerOptions{AppConfig: cfg, Service: service, Observability: obs, Logger: log})
	must(ues.TaskType, h4, err)
	h5, err := eie.NewHandler(eie.HandlerOptions{AppConfig: cfg, Service: service, Observability: obs, Logger: log})
	must(eie.TaskType, h5, err)
	h6, err := lsi.NewHandler(lsi.HandlerOptions{AppConfig: cfg, Service: service, Identity: identity, Observability: obs, Logger: log})
	must(lsi.TaskType, h6, err)
	h7, err := pse.NewHandler(pse.HandlerOptions{AppConfig: cfg, Bus: bus, Observability: obs, Logger: log})
	must(pse.TaskType, h7, err)

	checkRegistry(handlers, zapLog)

	var workers []*camunda.Worker
	for taskType, h := range handlers {
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), h, log); w != nil {
			workers = append(workers, w)
		}
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- HTTP: health, metrics, session stream ---
	srv := &http.Server{
		Addr: cfg.Server.Address,
		Handler: newRouter(routerDeps{
			checks: map[string]checker{
				"postgres": pg,
				"redis":    rdb,
				"elasticsearch": checkFunc(func(ctx context.Context) error {
					return es.IndexReady(ctx, cfg.Generation.Index)
				}),
				"zeebe": checkFunc(zeebe.HealthCheck),
			},
			stream:    sessionbus.NewStreamHandler(bus, config.GetDuration(cfg.SessionBus.HeartbeatInterval), log),
			catalog:   lookup,
			mode:      cfg.App.Environment,
			logger:    log,
			startedAt: time.Now(),
		}),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	stop()

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zapLog.Error("Error closing Redis", zap.Error(err))
	}
	obs.Shutdown(shutdownCtx)

	zapLog.Info("Worker manager stopped gracefully")
}

// buildHooks returns the post-commit hooks enabled in configuration. The
// session bus hook is always installed.
func buildHooks(ctx context.Context, cfg *config.Config, bus *sessionbus.Bus, log logger.Logger) []estimate.Hook {
	hooks := []estimate.Hook{notify.NewBusHook(bus)}

	aws := cfg.Integrations.AWS
	if aws.SES.Enabled || aws.SNS.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, aws.Region)
		if err != nil {
			log.Error("AWS config unavailable; email and SMS hooks disabled", map[string]interface{}{"error": err})
		} else {
			if aws.SES.Enabled {
				hooks = append(hooks, notify.NewEmailHook(
					awsclient.NewSESClient(awsCfg, aws.SES.FromEmail),
					cfg.Notifications.ExpertEmail, cfg.Notifications.ShareBaseURL, log))
			}
			if aws.SNS.Enabled {
				hooks = append(hooks, notify.NewSMSHook(
					awsclient.NewSNSClient(awsCfg, aws.SNS.DefaultSMSSenderID),
					cfg.Notifications.ShareBaseURL, log))
			}
		}
	}

	if cfg.Integrations.Zoho.Enabled {
		hooks = append(hooks, notify.NewCRMHook(
			zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken), log))
	}
	return hooks
}

// checkRegistry warns about served task types missing from the activity
// registry. A missing or invalid registry file is not fatal.
func checkRegistry(handlers map[string]camunda.JobHandler, log *zap.Logger) {
	path := os.Getenv("ACTIVITY_REGISTRY_PATH")
	if path == "" {
		path = registry.DefaultPath
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("Activity registry not loaded", zap.String("path", path), zap.Error(err))
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("Activity registry invalid", zap.String("path", path), zap.Error(err))
		return
	}

	taskTypes := make([]string, 0, len(handlers))
	for tt := range handlers {
		taskTypes = append(taskTypes, tt)
	}
	if missing := reg.Undeclared(taskTypes); len(missing) > 0 {
		log.Warn("Task types missing from activity registry", zap.Strings("taskTypes", missing))
	}
}
