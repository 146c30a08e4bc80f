// cmd/harness/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bias-audit-harness/internal/auditindex"
	commonaws "bias-audit-harness/internal/common/aws"
	"bias-audit-harness/internal/common/config"
	"bias-audit-harness/internal/common/database"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/common/observability"
	"bias-audit-harness/internal/evidence"
	"bias-audit-harness/internal/harness"
	"bias-audit-harness/internal/ledger"
	"bias-audit-harness/internal/notify"
	"bias-audit-harness/internal/scenarios"
	"bias-audit-harness/internal/scoring"
	"bias-audit-harness/internal/sessions"
	"bias-audit-harness/internal/target"
)

func main() {
	scenarioFlag := flag.String("scenario", "", "comma-separated scenario ids to run (overrides config toggles)")
	runAll := flag.Bool("all", false, "run every scenario regardless of config toggles")
	flag.Parse()

	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting audit harness",
		zap.String("version", cfg.App.Version),
		zap.String("target_mode", cfg.Target.Mode),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Metrics Server ---
	if cfg.Observability.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "healthy",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			zapLog.Info("Metrics server listening", zap.String("address", cfg.Observability.ListenAddress))
			if err := http.ListenAndServe(cfg.Observability.ListenAddress, mux); err != nil {
				zapLog.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Metadata Registry & Evidence Assembler ---
	meta, err := evidence.LoadMetadata(cfg.Metadata.Dir)
	if err != nil {
		zapLog.Fatal("metadata load failed", zap.String("dir", cfg.Metadata.Dir), zap.Error(err))
	}
	assembler := evidence.NewAssembler(meta, cfg.Evidence.ExecutedBy, cfg.Evidence.Environment, log)

	// --- Integrity Ledger ---
	led, err := ledger.New(cfg.Ledger.Dir, log)
	if err != nil {
		zapLog.Fatal("ledger init failed", zap.String("dir", cfg.Ledger.Dir), zap.Error(err))
	}

	// --- Session Store ---
	var store sessions.Store
	switch cfg.Sessions.Backend {
	case "redis":
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis init failed", zap.Error(err))
		}
		if err := redisClient.Ping(ctx); err != nil {
			zapLog.Fatal("redis unreachable", zap.Error(err))
		}
		defer redisClient.Close()
		store = sessions.NewRedisStore(
			redisClient.GetClient(),
			cfg.Sessions.KeyPrefix,
			config.GetDuration(cfg.Sessions.TTL),
		)
		zapLog.Info("Redis session store connected", zap.String("address", cfg.Database.Redis.Address))
	default:
		store = sessions.NewMemoryStore()
	}

	// --- Target Client ---
	var client target.Client
	switch cfg.Target.Mode {
	case "http":
		client = target.NewHTTPTarget(cfg.Target.BaseURL, config.GetDuration(cfg.Target.Timeout), log)
		zapLog.Info("Probing remote target", zap.String("base_url", cfg.Target.BaseURL))
	default:
		var opts []scoring.Option
		if cfg.Simulator.CurrentYear != 0 {
			opts = append(opts, scoring.WithCurrentYear(cfg.Simulator.CurrentYear))
		}
		engine := scoring.NewEngine(log, opts...)
		client = target.NewInProcessTarget(engine, store, log)
		zapLog.Info("Probing in-process target")
	}

	// --- Secondary Sinks ---
	var sinks harness.Sinks

	if cfg.Database.Postgres.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres init failed", zap.Error(err))
		}
		if err := pg.Ping(ctx); err != nil {
			zapLog.Fatal("postgres unreachable", zap.Error(err))
		}
		defer pg.Close()

		pgStore := auditindex.NewPostgresStore(pg.GetDB(), log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema setup failed", zap.Error(err))
		}
		sinks.Postgres = pgStore
		zapLog.Info("PostgreSQL mirror connected")
	}

	if cfg.Database.Elasticsearch.Enabled {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch init failed", zap.Error(err))
		}
		if err := esClient.Ping(); err != nil {
			zapLog.Fatal("elasticsearch unreachable", zap.Error(err))
		}
		sinks.Search = auditindex.NewSearchIndexer(esClient.Client, cfg.Evidence.IndexName, log)
		zapLog.Info("Elasticsearch mirror connected", zap.String("index", cfg.Evidence.IndexName))
	}

	if cfg.Notifications.SNS.Enabled || cfg.Notifications.SES.Enabled {
		var publisher notify.SNSPublisher
		var sender notify.SESSender

		if cfg.Notifications.SNS.Enabled {
			snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			publisher = snsClient
		}
		if cfg.Notifications.SES.Enabled {
			sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
			sender = sesClient
		}

		sinks.Notifier = notify.NewNotifier(publisher, sender, notify.Config{
			TopicARN:   cfg.Notifications.SNS.TopicARN,
			FromEmail:  cfg.Notifications.SES.FromEmail,
			Recipients: cfg.Notifications.SES.Recipients,
		}, log)
		zapLog.Info("Violation alerting enabled",
			zap.Bool("sns", cfg.Notifications.SNS.Enabled),
			zap.Bool("ses", cfg.Notifications.SES.Enabled),
		)
	}

	// --- Orchestrate ---
	// Scenario ids are lowercased throughout: viper already lowercases the
	// config map keys, and the orchestrator matches runner ids the same way.
	settings := make(map[string]harness.ScenarioSettings, len(cfg.Scenarios))
	for id, sc := range cfg.Scenarios {
		settings[strings.ToLower(id)] = harness.ScenarioSettings{Enabled: sc.Enabled, Runs: sc.Runs}
	}
	if *runAll {
		for id, sc := range settings {
			sc.Enabled = true
			settings[id] = sc
		}
	}
	if *scenarioFlag != "" {
		selected := make(map[string]bool)
		for _, id := range strings.Split(*scenarioFlag, ",") {
			selected[strings.ToLower(strings.TrimSpace(id))] = true
		}
		for id, sc := range settings {
			sc.Enabled = selected[id]
			settings[id] = sc
		}
		for id := range selected {
			if _, ok := settings[id]; !ok {
				settings[id] = harness.ScenarioSettings{Enabled: true, Runs: 1}
			}
		}
	}

	orch := harness.NewOrchestrator(
		client,
		scenarios.DefaultRunners(),
		assembler,
		led,
		cfg.Evidence.SystemID,
		cfg.Evidence.StackID,
		settings,
		log,
		harness.WithSinks(sinks),
		harness.WithObservability(obs),
	)

	reports := orch.RunAll(ctx)

	var executed, passed, failed, errored int
	for _, report := range reports {
		executed++
		switch {
		case report.Err != nil:
			errored++
		case report.Record.Evaluation.OverallResult == "pass":
			passed++
		default:
			failed++
		}
	}

	zapLog.Info("Audit run complete",
		zap.Int("executed", executed),
		zap.Int("passed", passed),
		zap.Int("failed", failed),
		zap.Int("errored", errored),
	)

	if errored > 0 {
		os.Exit(1)
	}
}
