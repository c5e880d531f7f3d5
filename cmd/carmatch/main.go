package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/config"
	"github.com/kailas-cloud/carmatch/internal/db"
	dbRedis "github.com/kailas-cloud/carmatch/internal/db/redis"
	"github.com/kailas-cloud/carmatch/internal/domain"
	logpkg "github.com/kailas-cloud/carmatch/internal/logger"
	"github.com/kailas-cloud/carmatch/internal/metrics"
	"github.com/kailas-cloud/carmatch/internal/model/linear"
	catalogrepo "github.com/kailas-cloud/carmatch/internal/repository/catalog"
	"github.com/kailas-cloud/carmatch/internal/repository/predcache"
	quotarepo "github.com/kailas-cloud/carmatch/internal/repository/quota"
	chiTransport "github.com/kailas-cloud/carmatch/internal/transport/chi"
	"github.com/kailas-cloud/carmatch/internal/transport/mlserver"
	openaiAdv "github.com/kailas-cloud/carmatch/internal/transport/openai"
	adviceuc "github.com/kailas-cloud/carmatch/internal/usecase/advice"
	cataloguc "github.com/kailas-cloud/carmatch/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/carmatch/internal/usecase/health"
	"github.com/kailas-cloud/carmatch/internal/usecase/prediction"
	recommenduc "github.com/kailas-cloud/carmatch/internal/usecase/recommend"
	"github.com/kailas-cloud/carmatch/internal/version"
)

func main() {
	seedPath := flag.String("seed", "", "import a CSV catalog into Redis hashes and exit")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting carmatch API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.String("price_predictor", cfg.Predictors.Price.Kind),
		zap.String("score_predictor", cfg.Predictors.Score.Kind),
	)

	ctx := context.Background()

	// Store only when a component needs it
	var store db.Store
	if cfg.NeedsStore() || *seedPath != "" {
		store = connectStore(ctx, &cfg, logger)
		defer store.Close()
	}

	if *seedPath != "" {
		if err := seed(ctx, store, cfg.Catalog.KeyPrefix, *seedPath, logger); err != nil {
			logger.Fatal("Seed failed", zap.Error(err))
		}
		return
	}

	// Register metrics explicitly (no init())
	metrics.RegisterPredictionMetrics()
	metrics.RegisterRecommendationMetrics()
	metrics.RegisterAdvisorMetrics()

	loader, closeLoader := buildLoader(ctx, &cfg, store, logger)
	defer closeLoader()

	catalogSvc := cataloguc.New(loader, logger)
	if _, err := catalogSvc.Reload(ctx); err != nil {
		// Serve anyway: /health reports the catalog and reloads may recover it.
		logger.Error("Initial catalog load failed", zap.Error(err))
	}

	price := buildPredictor(domain.ModelPrice, cfg.Predictors.Price, &cfg.Cache, store, logger)
	score := buildPredictor(domain.ModelScore, cfg.Predictors.Score, &cfg.Cache, store, logger)
	recommendSvc := recommenduc.New(price, score)

	adviceSvc, advisorHealth := buildAdvisor(ctx, &cfg.Advisor, store, logger)

	// Health: catalog is critical, everything else degrades
	components := []healthuc.Component{
		{Name: "catalog", Checker: catalogSvc, Critical: true},
		{Name: "price_model", Checker: price},
		{Name: "score_model", Checker: score},
	}
	if store != nil {
		components = append(components, healthuc.Component{Name: "database", Checker: healthuc.CheckerFunc(store.Ping)})
	}
	if advisorHealth != nil {
		components = append(components, healthuc.Component{Name: "advisor", Checker: advisorHealth})
	}
	healthSvc := healthuc.New(components...)

	// Periodic catalog reload
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	if cfg.Catalog.ReloadIntervalSec > 0 {
		go catalogSvc.Run(runCtx, time.Duration(cfg.Catalog.ReloadIntervalSec)*time.Second)
	}

	var advisor chiTransport.Advisor
	if adviceSvc != nil {
		advisor = adviceSvc
	}
	server := chiTransport.NewServer(catalogSvc, recommendSvc, advisor, healthSvc,
		chiTransport.Limits{Default: cfg.Recommend.DefaultLimit, Max: cfg.Recommend.MaxLimit}, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		APIKeys: cfg.Auth.APIKeys,
		Logger:  logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func connectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) db.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	return store
}

// seed imports a CSV file into the Redis catalog.
func seed(ctx context.Context, store db.Store, prefix, path string, logger *zap.Logger) error {
	frame, err := catalogrepo.NewCSVLoader(path).Load(ctx)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if err := catalogrepo.NewRedisLoader(store, prefix).Save(ctx, frame); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	logger.Info("Catalog seeded", zap.String("file", path), zap.String("prefix", prefix), zap.Int("rows", frame.Len()))
	return nil
}

// buildLoader picks the catalog backend. The returned func releases its resources.
func buildLoader(
	ctx context.Context, cfg *config.Config, store db.Store, logger *zap.Logger,
) (cataloguc.Loader, func()) {
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		pg, err := sqlx.ConnectContext(ctx, "postgres", cfg.Catalog.DSN)
		if err != nil {
			logger.Fatal("Failed to connect to postgres", zap.Error(err))
		}
		return catalogrepo.NewPostgresLoader(pg, cfg.Catalog.Table), func() { _ = pg.Close() }
	case config.SourceRedis:
		return catalogrepo.NewRedisLoader(store, cfg.Catalog.KeyPrefix), func() {}
	case config.SourceParquet:
		return catalogrepo.NewParquetLoader(cfg.Catalog.Path), func() {}
	default:
		return catalogrepo.NewCSVLoader(cfg.Catalog.Path), func() {}
	}
}

// buildPredictor assembles the decorator chain: base -> cached -> instrumented.
func buildPredictor(
	role string, pc config.PredictorConfig, cc *config.CacheConfig, store db.Store, logger *zap.Logger,
) *prediction.InstrumentedPredictor {
	var base domain.Predictor
	var modelVersion string

	switch pc.Kind {
	case config.PredictorRemote:
		client, err := mlserver.New(&mlserver.Config{
			URL:     pc.URL,
			Name:    pc.Name,
			Timeout: time.Duration(pc.TimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Fatal("Invalid remote predictor", zap.String("model", role), zap.Error(err))
		}
		base, modelVersion = client, "remote-"+pc.Name
	default:
		m, err := linear.Load(pc.ModelPath)
		if err != nil {
			logger.Fatal("Failed to load model", zap.String("model", role), zap.Error(err))
		}
		base, modelVersion = m, m.Version
		logger.Info("Model loaded",
			zap.String("model", role), zap.String("path", pc.ModelPath), zap.String("version", m.Version))
	}

	predictor := base
	if cc.Enabled && store != nil {
		predictor = predcache.New(base, store, role, modelVersion,
			time.Duration(cc.TTLSec)*time.Second, metrics.PredictionCacheTotal, logger)
	}

	return prediction.NewInstrumentedPredictor(predictor, role, pc.Kind, logger)
}

// buildAdvisor returns nils when the advisor is disabled.
func buildAdvisor(
	ctx context.Context, ac *config.AdvisorConfig, store db.Store, logger *zap.Logger,
) (*adviceuc.Service, healthuc.Checker) {
	if !ac.Enabled {
		return nil, nil
	}

	advisor := openaiAdv.NewAdvisor(&openaiAdv.Config{
		APIKey:    ac.APIKey,
		BaseURL:   ac.BaseURL,
		Model:     ac.Model,
		MaxTokens: ac.MaxTokens,
		User:      "carmatch",
	})

	var quota *adviceuc.QuotaTracker
	if ac.Quota.DailyTokenLimit > 0 || ac.Quota.MonthlyTokenLimit > 0 {
		action := adviceuc.QuotaActionWarn
		if ac.Quota.Action == "reject" {
			action = adviceuc.QuotaActionReject
		}
		quota = adviceuc.NewQuotaTracker("openai", ac.Quota.DailyTokenLimit, ac.Quota.MonthlyTokenLimit, action, logger)
		if store != nil {
			quota.WithStore(ctx, quotarepo.New(store, 48*time.Hour, 62*24*time.Hour))
		}
	}

	logger.Info("Advisor enabled", zap.String("model", ac.Model), zap.Bool("quota", quota != nil))
	return adviceuc.New(advisor, quota, ac.Model, time.Duration(ac.TimeoutSec)*time.Second, logger), advisor
}
