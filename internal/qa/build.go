package qa

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/company"
	"github.com/ppiankov/filingqa/internal/llm"
	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/retrieval"
	"github.com/ppiankov/filingqa/internal/secapi"
	"github.com/ppiankov/filingqa/internal/strategy"
	"github.com/ppiankov/filingqa/internal/worker"
)

// Build wires a System from configuration. Systems built for one batch
// should share evidenceCache; it may be nil to disable evidence caching.
func Build(cfg *model.Config, evidenceCache *cache.EvidenceCache, logger *slog.Logger) (*System, error) {
	logger = logging.OrDefault(logger)

	provider, err := llm.NewProvider(llm.WithEnv(llm.ConfigFromModel(cfg.LLM, cfg.SECAPI), nil))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	resolver, err := company.Load(cfg.Companies.TickersFile, companyCache(cfg.Cache), cfg.Cache.CompanyTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("company registry: %w", err)
	}

	client := secapi.NewClient(cfg.SECAPI, newLimiter(cfg.RateLimiting), logger)
	fetcher := retrieval.NewFetcher(client, cfg.Retrieval.DefaultWindowDays, logger)
	fetcher.SetFormPause(cfg.Retrieval.FormPause)

	retriever, err := newRetriever(cfg.Retrieval, fetcher, resolver, evidenceCache, logger)
	if err != nil {
		return nil, err
	}

	return New(provider, resolver, retriever, logger), nil
}

func newRetriever(cfg model.RetrievalConfig, fetcher *retrieval.Fetcher, resolver *company.Resolver, evidenceCache *cache.EvidenceCache, logger *slog.Logger) (Retriever, error) {
	switch cfg.Mode {
	case model.ModeTargeted, "":
		return &TargetedRetriever{
			Controller: retrieval.NewController(strategy.NewSelector(nil), fetcher, evidenceCache, cfg.TargetPause, logger),
			Options: retrieval.Options{
				AllowDefault: cfg.AllowDefault,
				FallbackTier: cfg.FallbackTier,
				MaxTargets:   cfg.MaxTargets,
			},
		}, nil
	case model.ModeBroad:
		return &BroadRetriever{
			Collector: retrieval.NewCollector(fetcher, evidenceCache, cfg.FilingsPerType, logger),
			Resolver:  resolver,
			TopK:      cfg.TopCompanies,
		}, nil
	default:
		return nil, fmt.Errorf("unknown retrieval mode %q (supported: targeted, broad)", cfg.Mode)
	}
}

func newLimiter(cfg model.RateLimitingConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for host, rps := range cfg.Hosts {
		limiter.SetHostRate(host, rps, cfg.BurstSize)
	}
	return limiter
}

func companyCache(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return cache.NewMemoryCache(cfg.CompanyTTL, cfg.CompanyTTL)
	}
	return cache.NewLayeredCache(cfg.CompanyTTL, filepath.Join(cfg.Dir, "companies"), cfg.CompanyTTL)
}
