package cmd

import (
	"context"
	"fmt"
	"io"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/classifier"
	"github.com/ca-srg/nova/internal/llm"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/reports"
	"github.com/ca-srg/nova/internal/router"
	"github.com/ca-srg/nova/internal/session"
	"github.com/ca-srg/nova/internal/tools"
	"github.com/ca-srg/nova/internal/types"
	"github.com/ca-srg/nova/internal/usage"
)

// assistant is the transport-independent part of the bot.
type assistant struct {
	store   *session.Store
	janitor *session.Janitor
	usage   io.Closer
	router  *router.Router
	logger  *log.Logger
}

func newAssistant(ctx context.Context, cfg *types.Config, logger *log.Logger) (*assistant, error) {
	markets := params.DefaultMarkets()
	if cfg.MarketsFile != "" {
		m, err := params.LoadMarkets(cfg.MarketsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load markets: %w", err)
		}
		markets = m
	}

	client, err := llm.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	api, err := analytics.NewClient(cfg.AnalyticsAPIURL, cfg.AnalyticsTimeout,
		analytics.WithRateLimit(cfg.AnalyticsRateLimit, cfg.AnalyticsRateBurst),
		analytics.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics client: %w", err)
	}

	a := &assistant{
		logger: logger,
		store: session.NewStore(session.Config{
			MaxContexts: cfg.SessionMaxContexts,
			MaxAge:      cfg.SessionMaxAge,
			SweepEvery:  cfg.SessionSweepEvery,
		}, session.WithLogger(logger)),
	}
	a.janitor = session.NewJanitor(a.store, cfg.SessionMaxAge, 0, logger)

	deps := tools.Deps{
		Analytics:     api,
		LLM:           client,
		Store:         a.store,
		Markets:       markets,
		DefaultYear:   cfg.DefaultYear,
		PlanCAC:       cfg.PlanCAC,
		PlanFillRatio: cfg.PlanFillRatio,
		Logger:        logger,
	}
	var routerOpts []router.Option
	routerOpts = append(routerOpts, router.WithLogger(logger))

	if !cfg.UsageDisabled {
		u, err := usage.Open(cfg.UsageDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage store: %w", err)
		}
		if _, err := usage.RegisterGauge(u); err != nil {
			logger.Printf("event=usage_gauge status=error err=%v", err)
		}
		a.usage = u
		deps.Usage = u
		routerOpts = append(routerOpts, router.WithUsage(u))
	}

	if cfg.ReportsS3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		archiver, err := reports.NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.ReportsS3Bucket, cfg.ReportsS3Prefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Archiver = archiver
		logger.Printf("event=reports_archive status=enabled bucket=%s prefix=%s", cfg.ReportsS3Bucket, cfg.ReportsS3Prefix)
	}

	registry := tools.NewRegistry(deps)
	normalizer := params.NewNormalizer(markets, cfg.DefaultYear)
	cls := classifier.New(client, normalizer, registry.Names(), logger)
	a.router = router.New(cls, registry, a.store, routerOpts...)
	return a, nil
}

// Start launches background maintenance until ctx is done.
func (a *assistant) Start(ctx context.Context) {
	a.janitor.Start(ctx)
}

func (a *assistant) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.usage != nil {
		if err := a.usage.Close(); err != nil {
			a.logger.Printf("event=usage_close status=error err=%v", err)
		}
	}
}
