// Package retrieval turns retrieval targets into citable evidence records.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/secapi"
	"github.com/ppiankov/filingqa/internal/strategy"
)

// sleepFunc is overridable in tests
var sleepFunc = time.Sleep

var errShortExtraction = errors.New("extracted section too short")

// FilingSource is the filing-data provider the fetcher reads from
type FilingSource interface {
	SearchFilings(ctx context.Context, req secapi.SearchRequest) ([]secapi.Filing, error)
	ExtractSection(ctx context.Context, filingURL, item string) (string, error)
	SearchInsider(ctx context.Context, req secapi.InsiderRequest) ([]secapi.InsiderFiling, error)
}

// FetchOutcome distinguishes an empty result from a failed call
type FetchOutcome string

const (
	FetchRecords FetchOutcome = "records"
	FetchNoData  FetchOutcome = "no_data"
	FetchFailed  FetchOutcome = "failed"
)

// FetchResult is the internal result of one fetch
type FetchResult struct {
	Records []model.EvidenceRecord
	Outcome FetchOutcome
	Err     error
}

func found(records ...model.EvidenceRecord) FetchResult {
	if len(records) == 0 {
		return FetchResult{Outcome: FetchNoData}
	}
	return FetchResult{Records: records, Outcome: FetchRecords}
}

func failed(err error) FetchResult {
	return FetchResult{Outcome: FetchFailed, Err: err}
}

// Fetcher retrieves evidence for one target at a time
type Fetcher struct {
	source     FilingSource
	logger     *slog.Logger
	windowDays int
	formPause  time.Duration
	now        func() time.Time
}

// NewFetcher creates a fetcher. windowDays is the rolling insider window
// used when the query names no year.
func NewFetcher(source FilingSource, windowDays int, logger *slog.Logger) *Fetcher {
	if windowDays <= 0 {
		windowDays = 180
	}
	return &Fetcher{
		source:     source,
		logger:     logging.OrDefault(logger),
		windowDays: windowDays,
		formPause:  500 * time.Millisecond,
		now:        time.Now,
	}
}

// SetFormPause sets the pause between forms and filings in broad retrieval
func (f *Fetcher) SetFormPause(d time.Duration) {
	f.formPause = d
}

// Fetch returns the evidence for target. It never fails: provider errors
// are logged and yield an empty slice.
func (f *Fetcher) Fetch(ctx context.Context, target model.RetrievalTarget, dateFloor string) []model.EvidenceRecord {
	res := f.fetch(ctx, target, dateFloor)
	f.report(res, "ticker", target.Ticker, "form", target.DocumentType, "section", target.FirstSection(), "tier", string(target.Tier))
	return res.Records
}

// FetchGeneral returns a metadata summary of the newest filing of form,
// whatever its class
func (f *Fetcher) FetchGeneral(ctx context.Context, ticker, form string) []model.EvidenceRecord {
	res := f.fetchGeneral(ctx, ticker, form)
	f.report(res, "ticker", ticker, "form", form, "tier", "probe")
	return res.Records
}

func (f *Fetcher) report(res FetchResult, attrs ...any) {
	switch res.Outcome {
	case FetchFailed:
		f.logger.Warn("fetch failed", append(attrs, "error", res.Err)...)
	case FetchNoData:
		f.logger.Debug("no filings for target", attrs...)
	default:
		f.logger.Debug("fetched evidence", append(attrs, "records", len(res.Records))...)
	}
}

func (f *Fetcher) fetch(ctx context.Context, target model.RetrievalTarget, dateFloor string) FetchResult {
	switch model.ClassOf(target.DocumentType) {
	case model.ClassInsider:
		return f.fetchInsider(ctx, target.Ticker, target.DocumentType, dateFloor)
	case model.ClassStructured:
		return f.fetchStructured(ctx, target.Ticker, target.DocumentType, target.Sections)
	default:
		return f.fetchGeneral(ctx, target.Ticker, target.DocumentType)
	}
}

func (f *Fetcher) fetchInsider(ctx context.Context, ticker, form, dateFloor string) FetchResult {
	if dateFloor == "" {
		dateFloor = strategy.RollingFloor(f.now(), f.windowDays)
	}

	filings, err := f.source.SearchInsider(ctx, secapi.InsiderRequest{
		Ticker:    ticker,
		Form:      form,
		DateFloor: dateFloor,
		Size:      1,
	})
	if err != nil {
		return failed(fmt.Errorf("insider search: %w", err))
	}
	if len(filings) == 0 {
		return found()
	}

	filing := filings[0]
	rec, ok := newRecord(model.EvidenceRecord{
		ID:           fmt.Sprintf("%s_%s_targeted", ticker, form),
		Content:      insiderSummary(ticker, filing),
		Ticker:       ticker,
		DocumentType: form,
		FilingDate:   filing.FiledDate(),
		Section:      "Insider Filing - " + filing.OwnerName(),
		SourceURL:    filing.LinkToFilingDetails,
		Confidence:   1.0,
	})
	if !ok {
		return found()
	}
	return found(rec)
}

func (f *Fetcher) fetchStructured(ctx context.Context, ticker, form string, sections []string) FetchResult {
	filing, ok, err := f.newestFiling(ctx, ticker, form)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return found()
	}

	link := filing.DocumentLink()
	if link == "" || len(sections) == 0 {
		return found()
	}

	item := sections[0]
	text, err := f.source.ExtractSection(ctx, link, item)
	if err != nil {
		return failed(fmt.Errorf("extract item %s: %w", item, err))
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minExtractLength {
		return failed(fmt.Errorf("item %s: %w (%d chars)", item, errShortExtraction, utf8.RuneCountInString(text)))
	}

	rec, ok := newRecord(model.EvidenceRecord{
		ID:           fmt.Sprintf("%s_%s_%s_targeted", ticker, form, item),
		Content:      text,
		Ticker:       ticker,
		DocumentType: form,
		FilingDate:   filing.FiledDate(),
		Section:      item,
		SourceURL:    link,
		Confidence:   1.0,
	})
	if !ok {
		return found()
	}
	return found(rec)
}

func (f *Fetcher) fetchGeneral(ctx context.Context, ticker, form string) FetchResult {
	filing, ok, err := f.newestFiling(ctx, ticker, form)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return found()
	}

	rec, ok := newRecord(model.EvidenceRecord{
		ID:           fmt.Sprintf("%s_%s_targeted", ticker, form),
		Content:      generalSummary(form, filing),
		Ticker:       ticker,
		DocumentType: form,
		FilingDate:   filing.FiledDate(),
		Section:      SectionName(form),
		SourceURL:    filing.LinkToFilingDetails,
		Confidence:   0.8,
	})
	if !ok {
		return found()
	}
	return found(rec)
}

func (f *Fetcher) newestFiling(ctx context.Context, ticker, form string) (secapi.Filing, bool, error) {
	filings, err := f.source.SearchFilings(ctx, secapi.SearchRequest{
		Query: filingQuery(ticker, form, ""),
		Size:  1,
	})
	if err != nil {
		return secapi.Filing{}, false, fmt.Errorf("filing search: %w", err)
	}
	if len(filings) == 0 {
		return secapi.Filing{}, false, nil
	}
	return filings[0], true, nil
}

// FetchFilings sweeps every form for one company, returning up to limit
// filings per form. Used by broad retrieval.
func (f *Fetcher) FetchFilings(ctx context.Context, ticker string, forms []string, dateFloor string, limit int) []model.EvidenceRecord {
	if limit <= 0 {
		limit = 3
	}

	var all []model.EvidenceRecord
	for i, form := range forms {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			sleepFunc(f.formPause)
		}

		var res FetchResult
		switch model.ClassOf(form) {
		case model.ClassInsider:
			res = f.insiderFilings(ctx, ticker, form, dateFloor, limit)
		case model.ClassStructured:
			res = f.structuredFilings(ctx, ticker, form, dateFloor, limit)
		default:
			res = f.generalFilings(ctx, ticker, form, dateFloor, limit)
		}
		f.report(res, "ticker", ticker, "form", form, "mode", string(model.ModeBroad))
		all = append(all, res.Records...)
	}
	return all
}

func (f *Fetcher) insiderFilings(ctx context.Context, ticker, form, dateFloor string, limit int) FetchResult {
	filings, err := f.source.SearchInsider(ctx, secapi.InsiderRequest{
		Ticker:    ticker,
		Form:      form,
		DateFloor: dateFloor,
		Size:      min(limit, 10),
	})
	if err != nil {
		f.logger.Warn("insider search failed, falling back to filing search",
			"ticker", ticker, "form", form, "error", err)
		return f.generalFilings(ctx, ticker, form, dateFloor, limit)
	}

	if len(filings) > 5 {
		filings = filings[:5]
	}
	var records []model.EvidenceRecord
	for _, filing := range filings {
		content := insiderReport(ticker, filing)
		if utf8.RuneCountInString(content) <= minSummaryLength {
			continue
		}
		rec, ok := newRecord(model.EvidenceRecord{
			ID:           fmt.Sprintf("%s_%s_%s", ticker, form, accessionOr(filing.AccessionNo, content)),
			Content:      content,
			Ticker:       ticker,
			DocumentType: form,
			FilingDate:   filing.FiledDate(),
			Section:      "Insider Filing - " + filing.OwnerName(),
			SourceURL:    filing.LinkToFilingDetails,
			Confidence:   1.0,
		})
		if ok {
			records = append(records, rec)
		}
	}
	return found(records...)
}

// extractionItems lists the items pulled from structured filings in broad mode
func extractionItems(form string) []string {
	switch form {
	case model.Form10K:
		return []string{"1", "1A", "7"}
	case model.Form10Q:
		return []string{"part1item2"}
	default:
		return nil
	}
}

func (f *Fetcher) structuredFilings(ctx context.Context, ticker, form, dateFloor string, limit int) FetchResult {
	filings, err := f.source.SearchFilings(ctx, secapi.SearchRequest{
		Query: filingQuery(ticker, form, dateFloor),
		Size:  limit,
	})
	if err != nil {
		return failed(fmt.Errorf("filing search: %w", err))
	}

	items := extractionItems(form)
	var records []model.EvidenceRecord
	for i, filing := range filings {
		link := filing.DocumentLink()
		if link == "" {
			continue
		}
		if i > 0 {
			sleepFunc(f.formPause)
		}
		for _, item := range items {
			if ctx.Err() != nil {
				return found(records...)
			}
			text, err := f.source.ExtractSection(ctx, link, item)
			if err != nil {
				f.logger.Debug("item extraction failed", "ticker", ticker, "form", form, "item", item, "error", err)
				continue
			}
			text = strings.TrimSpace(text)
			if utf8.RuneCountInString(text) <= minExtractLength {
				continue
			}
			rec, ok := newRecord(model.EvidenceRecord{
				ID:           fmt.Sprintf("%s_%s_%s_%s", ticker, form, orDefault(filing.AccessionNo, "unknown"), item),
				Content:      text,
				Ticker:       ticker,
				DocumentType: form,
				FilingDate:   filing.FiledDate(),
				Section:      item,
				SourceURL:    link,
				Confidence:   1.0,
			})
			if ok {
				records = append(records, rec)
			}
		}
	}
	return found(records...)
}

func (f *Fetcher) generalFilings(ctx context.Context, ticker, form, dateFloor string, limit int) FetchResult {
	filings, err := f.source.SearchFilings(ctx, secapi.SearchRequest{
		Query: filingQuery(ticker, form, dateFloor),
		Size:  limit,
	})
	if err != nil {
		return failed(fmt.Errorf("filing search: %w", err))
	}

	var records []model.EvidenceRecord
	for _, filing := range filings {
		content := filingSummary(form, filing)
		if utf8.RuneCountInString(content) <= minSummaryLength {
			continue
		}
		rec, ok := newRecord(model.EvidenceRecord{
			ID:           fmt.Sprintf("%s_%s_%s", ticker, form, orDefault(filing.AccessionNo, "unknown")),
			Content:      content,
			Ticker:       ticker,
			DocumentType: form,
			FilingDate:   filing.FiledDate(),
			Section:      SectionName(form),
			SourceURL:    filing.LinkToFilingDetails,
			Confidence:   0.8,
		})
		if ok {
			records = append(records, rec)
		}
	}
	return found(records...)
}

func filingQuery(ticker, form, dateFloor string) string {
	q := fmt.Sprintf(`ticker:%s AND formType:"%s"`, ticker, form)
	if dateFloor != "" {
		q += fmt.Sprintf(" AND filedAt:[%s TO *]", dateFloor)
	}
	return q
}

// accessionOr returns the accession number, or a short stable digest of
// content when the provider omitted it
func accessionOr(accession, content string) string {
	if accession != "" {
		return accession
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(content)).String()[:8]
}

// newRecord enforces the content bound on every record handed downstream
func newRecord(rec model.EvidenceRecord) (model.EvidenceRecord, bool) {
	rec.Content = strings.TrimSpace(rec.Content)
	if rec.Content == "" {
		return model.EvidenceRecord{}, false
	}
	rec.Content = clip(rec.Content, model.MaxContentLength, ellipsis)
	return rec, true
}
