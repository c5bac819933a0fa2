package retrieval

import (
	"context"
	"log/slog"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
)

// FilingsFetcher sweeps a company's filings across several forms
type FilingsFetcher interface {
	FetchFilings(ctx context.Context, ticker string, forms []string, dateFloor string, limit int) []model.EvidenceRecord
}

// Collector gathers evidence per company for broad retrieval
type Collector struct {
	fetcher FilingsFetcher
	cache   *cache.EvidenceCache
	limit   int
	logger  *slog.Logger
}

// NewCollector creates a collector fetching up to limit filings per form
func NewCollector(fetcher FilingsFetcher, evidenceCache *cache.EvidenceCache, limit int, logger *slog.Logger) *Collector {
	if limit <= 0 {
		limit = 3
	}
	return &Collector{
		fetcher: fetcher,
		cache:   evidenceCache,
		limit:   limit,
		logger:  logging.OrDefault(logger),
	}
}

// Collect returns the evidence for every company in order, plus the
// companies that yielded nothing
func (c *Collector) Collect(ctx context.Context, companies, forms []string, dateFloor string) ([]model.EvidenceRecord, []string) {
	var records []model.EvidenceRecord
	var missing []string

	for _, company := range companies {
		if ctx.Err() != nil {
			break
		}
		fetch := func() []model.EvidenceRecord {
			return c.fetcher.FetchFilings(ctx, company, forms, dateFloor, c.limit)
		}

		var got []model.EvidenceRecord
		if c.cache != nil {
			got = c.cache.GetOrFetch(company, forms, dateFloor, fetch)
		} else {
			got = fetch()
		}

		if len(got) == 0 {
			missing = append(missing, company)
			continue
		}
		c.logger.Debug("collected filings", "ticker", company, "records", len(got))
		records = append(records, got...)
	}
	return records, missing
}
