package cli

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/agent"
	"github.com/ppiankov/animequote/internal/cache"
	"github.com/ppiankov/animequote/internal/catalog"
	"github.com/ppiankov/animequote/internal/fetch"
	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/model"
	"github.com/ppiankov/animequote/internal/pipeline"
	"github.com/ppiankov/animequote/internal/quotes"
	"github.com/ppiankov/animequote/internal/store"
	"github.com/ppiankov/animequote/internal/study"
	"github.com/ppiankov/animequote/internal/util"
	"github.com/ppiankov/animequote/internal/worker"
)

// app wires the services one command needs
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	limiter  *worker.Limiter
	quotes   *quotes.Client
	catalog  *catalog.Client
	reporter *llm.Reporter
	pipeline *pipeline.Pipeline
	store    *store.Store // Opened by withStore
	study    *study.Service
}

// newApp builds the network-facing services. Storage is opened separately
// because most commands never touch it.
func newApp(cfg *model.Config, logger *zap.Logger) (*app, error) {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	quoteFetcher := newFetcher(cfg, cfg.Quotes.Timeout(), 0, limiter)
	catalogFetcher := newFetcher(cfg, cfg.Catalog.Timeout(), cfg.Catalog.Retries, limiter)

	quoteClient := quotes.NewClient(quoteFetcher, quotes.Options{
		BaseURL: cfg.Quotes.BaseURL,
		APIKey:  cfg.Quotes.APIKey,
		Page:    cfg.Quotes.Page,
		Timeout: cfg.Quotes.Timeout(),
	}, logger)

	catalogClient := catalog.NewClient(catalogFetcher, cache.New(cfg.Cache), catalog.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout(),
	}, logger)

	reporter, err := llm.NewReporter(llm.ConfigFromModel(cfg.LLM, cfg.HTTP, logger))
	if err != nil {
		return nil, fmt.Errorf("language model: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		limiter:  limiter,
		quotes:   quoteClient,
		catalog:  catalogClient,
		reporter: reporter,
		pipeline: pipeline.NewPipeline(cfg, quoteClient, reporter, logger),
	}, nil
}

// withStore opens storage and builds the study service on top of it
func (a *app) withStore() error {
	if a.store != nil {
		return nil
	}
	db, err := store.Open(a.cfg.Storage.Path)
	if err != nil {
		return err
	}
	a.store = db

	var robots *util.RobotsChecker
	if a.cfg.Study.RespectRobots {
		robots = util.NewRobotsChecker(util.RobotsOptions{
			UserAgent:  a.cfg.HTTP.UserAgent,
			HTTPProxy:  a.cfg.HTTP.HTTPProxy,
			HTTPSProxy: a.cfg.HTTP.HTTPSProxy,
			NoProxy:    a.cfg.HTTP.NoProxy,
		})
	}

	a.study = study.NewService(study.Deps{
		Documents: db,
		Provider:  a.reporter.Provider(),
		Fetcher:   newFetcher(a.cfg, time.Minute, 1, nil),
		Robots:    robots,
		Pacer:     a.limiter,
		Logger:    a.logger,
	}, study.Options{
		ChunkWords:    a.cfg.Study.ChunkWords,
		ChunkOverlap:  a.cfg.Study.ChunkOverlap,
		ContextChunks: a.cfg.Study.ContextChunks,
		MaxTokens:     a.cfg.LLM.MaxTokens,
	})
	return nil
}

// newAgent builds the skill agent; study skills are included once storage is open
func (a *app) newAgent() (*agent.Agent, error) {
	deps := agent.Deps{
		Verifier: a.pipeline,
		Quotes:   a.quotes,
		Catalog:  a.catalog,
	}
	if a.study != nil {
		deps.Study = a.study
	}

	registry, err := agent.NewSkillRegistry(deps)
	if err != nil {
		return nil, err
	}
	return agent.New(registry, a.reporter.Provider(), a.logger), nil
}

func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func newFetcher(cfg *model.Config, timeout time.Duration, retries int, limiter fetch.Waiter) *fetch.Fetcher {
	opts := fetch.Options{
		Timeout:    timeout,
		UserAgent:  cfg.HTTP.UserAgent,
		MaxBytes:   cfg.HTTP.MaxBodyBytes,
		Retries:    retries,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
	if limiter != nil {
		opts.Limiter = limiter
	}
	return fetch.New(opts)
}
