// Package company resolves tickers and company names against the SEC
// company_tickers.json registry.
package company

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/strategy"
)

var nameSuffixes = []string{" inc.", " inc", " corp.", " corp", " ltd.", " ltd"}

// Meta is the registry entry for one public company
type Meta struct {
	Ticker string `json:"ticker"`
	CIK    string `json:"cik"` // zero-padded to 10 digits
	Name   string `json:"name"`
}

// Entry is one row of company_tickers.json
type Entry struct {
	CIK    json.RawMessage `json:"cik_str"`
	Ticker string          `json:"ticker"`
	Title  string          `json:"title"`
}

func (e Entry) meta() Meta {
	cik := strings.Trim(string(e.CIK), `"`)
	if n, err := strconv.ParseInt(cik, 10, 64); err == nil {
		cik = fmt.Sprintf("%010d", n)
	}
	return Meta{
		Ticker: strings.ToUpper(strings.TrimSpace(e.Ticker)),
		CIK:    cik,
		Name:   strings.TrimSpace(e.Title),
	}
}

// Parse reads company_tickers.json, returning entries in file index order
func Parse(r io.Reader) ([]Entry, error) {
	var raw map[string]Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode company registry: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, raw[k])
	}
	return entries, nil
}

// Resolver maps tickers and company names to registry entries
type Resolver struct {
	byTicker map[string]Meta
	byName   map[string]string
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewResolver indexes entries. lookups may be nil to disable caching.
func NewResolver(entries []Entry, lookups cache.Cache, ttl time.Duration, logger *slog.Logger) *Resolver {
	r := &Resolver{
		byTicker: make(map[string]Meta, len(entries)),
		byName:   make(map[string]string, len(entries)*2),
		cache:    lookups,
		ttl:      ttl,
		logger:   logging.OrDefault(logger),
	}

	for _, e := range entries {
		m := e.meta()
		if m.Ticker == "" || m.Name == "" {
			continue
		}
		if _, dup := r.byTicker[m.Ticker]; !dup {
			r.byTicker[m.Ticker] = m
		}

		// first entry wins: the registry lists the primary share class first
		name := strings.ToLower(m.Name)
		r.indexName(name, m.Ticker)
		for _, suffix := range nameSuffixes {
			if strings.HasSuffix(name, suffix) {
				r.indexName(strings.TrimSpace(strings.TrimSuffix(name, suffix)), m.Ticker)
			}
		}
	}
	return r
}

func (r *Resolver) indexName(name, ticker string) {
	if name == "" {
		return
	}
	if _, ok := r.byName[name]; !ok {
		r.byName[name] = ticker
	}
}

// Load reads the registry file. A missing file yields an empty resolver
// that passes tickers through unchanged.
func Load(path string, lookups cache.Cache, ttl time.Duration, logger *slog.Logger) (*Resolver, error) {
	logger = logging.OrDefault(logger)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("company registry not found, tickers will not be validated", "path", path)
		return NewResolver(nil, lookups, ttl, logger), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open company registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return NewResolver(entries, lookups, ttl, logger), nil
}

// Len returns the number of companies in the registry
func (r *Resolver) Len() int {
	return len(r.byTicker)
}

// Resolve looks up a ticker (case-insensitive) or a company name
func (r *Resolver) Resolve(identifier string) (Meta, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Meta{}, false
	}

	if m, ok := r.resolveTicker(strings.ToUpper(identifier)); ok {
		return m, true
	}
	if alt, ok := r.byName[strings.ToLower(identifier)]; ok {
		return r.resolveTicker(alt)
	}
	return Meta{}, false
}

func (r *Resolver) resolveTicker(ticker string) (Meta, bool) {
	key := cache.Key("company", ticker)
	if r.cache != nil {
		if data, ok := r.cache.Get(key); ok {
			var m Meta
			if err := json.Unmarshal(data, &m); err == nil && m.Ticker != "" {
				return m, true
			}
		}
	}

	m, ok := r.byTicker[ticker]
	if !ok {
		return Meta{}, false
	}

	if r.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := r.cache.Set(key, data, r.ttl); err != nil {
				r.logger.Debug("company cache write failed", "ticker", ticker, "error", err)
			}
		}
	}
	return m, true
}

// Validate returns the resolvable identifiers as canonical tickers,
// deduplicated, in input order
func (r *Resolver) Validate(identifiers []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range identifiers {
		m, ok := r.Resolve(id)
		if !ok {
			r.logger.Debug("unknown company", "identifier", id)
			continue
		}
		if !seen[m.Ticker] {
			seen[m.Ticker] = true
			out = append(out, m.Ticker)
		}
	}
	return out
}

// Normalize canonicalises tickers. With an empty registry every
// identifier is uppercased and kept.
func (r *Resolver) Normalize(identifiers []string) []string {
	if r.Len() > 0 {
		return r.Validate(identifiers)
	}

	var out []string
	seen := make(map[string]bool)
	for _, id := range identifiers {
		t := strings.ToUpper(strings.TrimSpace(id))
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// DetermineCompanies picks up to topK companies for broad retrieval:
// the query's tickers, else its suggested tickers, else the fallback pool
func (r *Resolver) DetermineCompanies(q model.StructuredQuery, topK int) []string {
	if topK <= 0 {
		topK = 3
	}

	companies := r.Normalize(q.Tickers)
	if len(companies) == 0 {
		companies = r.Normalize(q.SuggestedTickers)
	}
	if len(companies) == 0 {
		companies = r.Normalize(strategy.FallbackPool)
	}

	if len(companies) > topK {
		companies = companies[:topK]
	}
	return append([]string(nil), companies...)
}
