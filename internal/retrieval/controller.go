package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/strategy"
)

const (
	// MaxTargets caps target consumption regardless of configuration
	MaxTargets = 6

	// FallbackGeneralSmall enables the single-company probe after an empty targeted pass
	FallbackGeneralSmall = "general_small"
	FallbackNone         = "none"

	probeRecordLimit = 2
)

// TargetFetcher fetches evidence for planned targets
type TargetFetcher interface {
	Fetch(ctx context.Context, target model.RetrievalTarget, dateFloor string) []model.EvidenceRecord
	FetchGeneral(ctx context.Context, ticker, form string) []model.EvidenceRecord
}

// Options tune one retrieval
type Options struct {
	AllowDefault bool
	FallbackTier string
	MaxTargets   int
}

// Stage records where retrieval finished
type Stage string

const (
	StageTargeted Stage = "targeted"
	StageProbe    Stage = "probe"
	StageEmpty    Stage = "empty"
)

// Outcome is the result of one retrieval
type Outcome struct {
	Plan    strategy.Plan
	Records []model.EvidenceRecord
	Stage   Stage
	Missing []string // companies that yielded no evidence
}

// Controller runs the targeted pass and, when it comes back empty, a
// single small probe
type Controller struct {
	selector *strategy.Selector
	fetcher  TargetFetcher
	cache    *cache.EvidenceCache
	pause    time.Duration
	logger   *slog.Logger
}

// NewController creates a controller. evidenceCache may be nil.
func NewController(selector *strategy.Selector, fetcher TargetFetcher, evidenceCache *cache.EvidenceCache, pause time.Duration, logger *slog.Logger) *Controller {
	if selector == nil {
		selector = strategy.NewSelector(nil)
	}
	return &Controller{
		selector: selector,
		fetcher:  fetcher,
		cache:    evidenceCache,
		pause:    pause,
		logger:   logging.OrDefault(logger),
	}
}

// Retrieve gathers evidence for q
func (c *Controller) Retrieve(ctx context.Context, q model.StructuredQuery, opts Options) Outcome {
	plan := c.selector.Select(q, opts.AllowDefault)
	targets := capTargets(plan.Targets, opts.MaxTargets)
	floor := strategy.DateFloor(q.TimePeriods)

	c.logger.Debug("retrieval plan",
		"reason", plan.Reason, "targets", len(targets), "planned", len(plan.Targets), "date_floor", floor)

	yield := newCompanyLedger()
	var records []model.EvidenceRecord
	for i, t := range targets {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			sleepFunc(c.pause)
		}
		got := c.fetchTarget(ctx, t, floor)
		yield.record(t.Ticker, len(got))
		records = append(records, got...)
	}

	if len(records) > 0 {
		return Outcome{Plan: plan, Records: records, Stage: StageTargeted, Missing: yield.missing()}
	}

	if opts.FallbackTier == FallbackGeneralSmall && ctx.Err() == nil {
		company, probed := c.probe(ctx, q)
		if company != "" {
			yield.record(company, len(probed))
		}
		if len(probed) > 0 {
			c.logger.Info("targeted retrieval empty, probe succeeded", "ticker", company, "records", len(probed))
			return Outcome{Plan: plan, Records: probed, Stage: StageProbe, Missing: yield.missing()}
		}
	}

	c.logger.Info("no evidence found", "reason", plan.Reason, "missing", strings.Join(yield.missing(), ","))
	return Outcome{Plan: plan, Stage: StageEmpty, Missing: yield.missing()}
}

func (c *Controller) fetchTarget(ctx context.Context, t model.RetrievalTarget, floor string) []model.EvidenceRecord {
	fetch := func() []model.EvidenceRecord {
		return c.fetcher.Fetch(ctx, t, floor)
	}
	if c.cache == nil {
		return fetch()
	}
	return c.cache.GetOrFetch(t.Ticker, []string{t.DocumentType}, floor, fetch)
}

// probe tries one company and one form
func (c *Controller) probe(ctx context.Context, q model.StructuredQuery) (string, []model.EvidenceRecord) {
	companies := c.selector.Companies(q)
	if len(companies) == 0 {
		return "", nil
	}
	company := companies[0]

	form := model.Form10K
	if len(q.DocumentTypes) > 0 && strings.TrimSpace(q.DocumentTypes[0]) != "" {
		form = strings.ToUpper(strings.TrimSpace(q.DocumentTypes[0]))
	}

	var records []model.EvidenceRecord
	switch form {
	case model.Form10K:
		records = c.fetcher.Fetch(ctx, model.RetrievalTarget{
			Ticker: company, DocumentType: form, Sections: []string{"1A"}, Tier: model.TierDefault,
		}, "")
	case model.Form10Q:
		records = c.fetcher.Fetch(ctx, model.RetrievalTarget{
			Ticker: company, DocumentType: form, Sections: []string{"part1item2"}, Tier: model.TierDefault,
		}, "")
	default:
		records = c.fetcher.FetchGeneral(ctx, company, form)
	}

	if len(records) > probeRecordLimit {
		records = records[:probeRecordLimit]
	}
	return company, records
}

func capTargets(targets []model.RetrievalTarget, limit int) []model.RetrievalTarget {
	if limit <= 0 || limit > MaxTargets {
		limit = MaxTargets
	}
	if len(targets) > limit {
		return targets[:limit]
	}
	return targets
}

// companyLedger tracks which companies produced evidence, in first-seen order
type companyLedger struct {
	order []string
	count map[string]int
}

func newCompanyLedger() *companyLedger {
	return &companyLedger{count: make(map[string]int)}
}

func (l *companyLedger) record(company string, n int) {
	if _, seen := l.count[company]; !seen {
		l.order = append(l.order, company)
	}
	l.count[company] += n
}

func (l *companyLedger) missing() []string {
	var out []string
	for _, c := range l.order {
		if l.count[c] == 0 {
			out = append(out, c)
		}
	}
	return out
}
