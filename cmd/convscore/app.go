package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/config"
	dbRedis "github.com/kailas-cloud/convscore/internal/db/redis"
	"github.com/kailas-cloud/convscore/internal/domain"
	logpkg "github.com/kailas-cloud/convscore/internal/logger"
	"github.com/kailas-cloud/convscore/internal/metrics"
	convrepo "github.com/kailas-cloud/convscore/internal/repository/conversation"
	"github.com/kailas-cloud/convscore/internal/repository/embcache"
	rewardrepo "github.com/kailas-cloud/convscore/internal/repository/reward"
	openaiTransport "github.com/kailas-cloud/convscore/internal/transport/openai"
	"github.com/kailas-cloud/convscore/internal/transport/simulated"
	"github.com/kailas-cloud/convscore/internal/transport/workernet"
	"github.com/kailas-cloud/convscore/internal/usecase/compare"
	"github.com/kailas-cloud/convscore/internal/usecase/dispatch"
	embeddinguc "github.com/kailas-cloud/convscore/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/convscore/internal/usecase/health"
	"github.com/kailas-cloud/convscore/internal/usecase/orchestrator"
	rewarduc "github.com/kailas-cloud/convscore/internal/usecase/reward"
	"github.com/kailas-cloud/convscore/internal/usecase/selector"
	windowuc "github.com/kailas-cloud/convscore/internal/usecase/window"
	"github.com/kailas-cloud/convscore/internal/version"
)

// workerNetwork is what the pipeline needs from a worker transport.
type workerNetwork interface {
	dispatch.Transport
	Pool() []string
}

// annotator is the tagging collaborator plus its health check.
type annotator interface {
	orchestrator.Annotator
	domain.HealthChecker
}

// app holds the process-wide dependencies built from config.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	debug  *zap.Logger

	store         *dbRedis.Store
	conversations *convrepo.Repo
}

// newApp loads config, creates loggers and connects to storage.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	env := opts.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	debug, err := logpkg.NewDebugSink(cfg.Observability.DebugLog)
	if err != nil {
		return nil, fmt.Errorf("create debug sink: %w", err)
	}

	logger.Info("Starting convscore",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("hotkey", cfg.Identity.Hotkey),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// valkey and redis share the rueidis client
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("wait for database: %w", err)
	}
	logger.Info("Connected to database")

	return &app{
		env:    env,
		cfg:    cfg,
		logger: logger,
		debug:  debug,
		store:  store,
		conversations: convrepo.New(store, cfg.Storage.KeyPrefix,
			time.Duration(cfg.Storage.ReservationTTLSec)*time.Second, logger),
	}, nil
}

// Close releases storage and flushes loggers.
func (a *app) Close() {
	a.store.Close()
	if a.debug != nil {
		_ = a.debug.Sync()
	}
	_ = a.logger.Sync()
}

// pipeline is the wired validator.
type pipeline struct {
	orchestrator *orchestrator.Orchestrator
	health       *healthuc.Service
	rewards      *rewardrepo.Store
}

// buildPipeline assembles every collaborator of the orchestrator.
func (a *app) buildPipeline() (*pipeline, error) {
	cfg := a.cfg

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	ann := a.buildAnnotator()
	network := a.buildNetwork()

	scheme, err := rewarduc.NewScheme(cfg.Scoring.RewardScheme, cfg.Scoring.SoftmaxTemperature)
	if err != nil {
		return nil, fmt.Errorf("reward scheme: %w", err)
	}

	observer, err := metrics.NewPromObserver(prometheus.DefaultRegisterer, cfg.Identity.Hotkey, a.debug)
	if err != nil {
		return nil, fmt.Errorf("operation metrics: %w", err)
	}

	rewards := rewardrepo.New(a.store, cfg.Storage.KeyPrefix, cfg.Identity.Hotkey, a.logger)
	sel := selector.New(cfg.Workers.PerWindow, a.selectorSeed())
	dispatcher := dispatch.New(network, a.logger).
		WithTimeout(time.Duration(cfg.Workers.TimeoutMs) * time.Millisecond)

	deps := orchestrator.Deps{
		Storage:   a.conversations,
		Annotator: ann,
		Segmenter: windowuc.NewSplitter(
			cfg.Window.MinLines, cfg.Window.MaxLines, cfg.Window.OverlapLines, cfg.Window.MinWindows),
		Pool:       network,
		Selector:   sel,
		Dispatcher: dispatcher,
		Scorer: compare.NewEngine(compare.WeightedOverlap{
			RefWeight:    cfg.Scoring.UnmatchedReferenceWeight,
			WorkerWeight: cfg.Scoring.UnmatchedWorkerWeight,
		}),
		Rewards: rewarduc.NewCalculator(scheme).WithNoveltyWeight(cfg.Scoring.NoveltyWeight),
		Sink:    rewards,
	}

	orch := orchestrator.New(deps, cfg.Identity.Hotkey, a.logger).
		WithMinTags(cfg.Scoring.MinTags).
		WithObserver(observer).
		WithIdleBackoff(time.Duration(cfg.Loop.IdleBackoffMaxSec) * time.Second).
		WithCyclePause(time.Duration(cfg.Loop.CyclePauseMs) * time.Millisecond)

	health := healthuc.New(a.store).
		WithCheck("tagging", ann).
		WithCheck("workers", healthuc.CheckerFunc(func(context.Context) error {
			if len(network.Pool()) == 0 {
				return fmt.Errorf("worker pool is empty: %w", domain.ErrAllWorkersUnavailable)
			}
			return nil
		}))

	a.logger.Info("Pipeline ready",
		zap.String("tagging", cfg.Tagging.Provider),
		zap.String("workers", cfg.Workers.Network),
		zap.Int("pool_size", len(network.Pool())),
		zap.Int("per_window", sel.PerWindow()),
		zap.Duration("worker_timeout", dispatcher.Timeout()),
		zap.String("reward_scheme", cfg.Scoring.RewardScheme),
	)
	return &pipeline{orchestrator: orch, health: health, rewards: rewards}, nil
}

func (a *app) buildAnnotator() annotator {
	cfg := a.cfg.Tagging
	if cfg.Provider == "simulated" {
		return simulated.NewAnnotator(cfg.MaxTags, cfg.Dimensions, a.logger)
	}
	return openaiTransport.NewTagger(&openaiTransport.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.ChatModel,
		User:     a.cfg.Identity.Hotkey,
		Provider: cfg.Provider,
		Logger:   a.logger,
	}, a.buildEmbedder(), cfg.MaxTags)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (a *app) buildEmbedder() domain.Embedder {
	cfg := a.cfg.Tagging
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.Dimensions,
		User:       a.cfg.Identity.Hotkey,
		Provider:   cfg.Provider,
		Logger:     a.logger,
	})

	var embedder domain.Embedder = base
	if cfg.CacheEnabled() {
		embedder = embcache.New(base, a.store, a.cfg.Storage.KeyPrefix, cfg.EmbeddingModel,
			metrics.EmbeddingCacheTotal, a.logger)
	}
	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.EmbeddingModel, a.logger)
}

func (a *app) buildNetwork() workerNetwork {
	cfg := a.cfg.Workers
	if cfg.Network == "live" {
		endpoints := make([]workernet.Endpoint, len(cfg.Endpoints))
		for i, e := range cfg.Endpoints {
			endpoints[i] = workernet.Endpoint{ID: e.ID, URL: e.URL}
		}
		return workernet.New(endpoints, a.logger,
			workernet.WithRetries(cfg.Retries, time.Duration(cfg.RetryWaitMs)*time.Millisecond))
	}
	return simulated.NewNetwork(simulated.NetworkConfig{
		Count:       cfg.Simulated.Count,
		FailureRate: cfg.Simulated.FailureRate,
		MaxLatency:  time.Duration(cfg.Simulated.MaxLatencyMs) * time.Millisecond,
		Seed:        cfg.Simulated.Seed,
		Dimensions:  a.cfg.Tagging.Dimensions,
	}, a.logger)
}

// selectorSeed is fixed for reproducible simulated runs and time-based otherwise.
func (a *app) selectorSeed() uint64 {
	if a.cfg.Workers.Network == "simulated" && a.cfg.Workers.Simulated.Seed != 0 {
		return a.cfg.Workers.Simulated.Seed
	}
	return uint64(time.Now().UnixNano()) //nolint:gosec // non-negative wall clock
}
