package company

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/filingqa/internal/cache"
	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
)

const registryJSON = `{
	"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
	"1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"},
	"2": {"cik_str": 1652044, "ticker": "GOOGL", "title": "Alphabet Inc."},
	"3": {"cik_str": 1652044, "ticker": "GOOG", "title": "Alphabet Inc."},
	"10": {"cik_str": "19617", "ticker": "jpm", "title": "JPMORGAN CHASE & CO"}
}`

func testResolver(t *testing.T, c cache.Cache) *Resolver {
	t.Helper()
	entries, err := Parse(strings.NewReader(registryJSON))
	require.NoError(t, err)
	return NewResolver(entries, c, 24*time.Hour, logging.Discard())
}

func TestParse_OrdersByIndex(t *testing.T) {
	entries, err := Parse(strings.NewReader(registryJSON))
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "AAPL", entries[0].Ticker)
	assert.Equal(t, "GOOG", entries[3].Ticker)
	assert.Equal(t, "jpm", entries[4].Ticker, "index 10 sorts after 3")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"0": [`))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	r := testResolver(t, nil)

	tests := []struct {
		in   string
		want string
	}{
		{"AAPL", "AAPL"},
		{"aapl", "AAPL"},
		{" msft ", "MSFT"},
		{"Apple Inc.", "AAPL"},
		{"apple", "AAPL"},
		{"Microsoft", "MSFT"},
		{"alphabet", "GOOGL"},
		{"JPM", "JPM"},
	}
	for _, tt := range tests {
		m, ok := r.Resolve(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, m.Ticker, tt.in)
	}

	_, ok := r.Resolve("Nonexistent Holdings")
	assert.False(t, ok)
	_, ok = r.Resolve("")
	assert.False(t, ok)
}

func TestResolve_CIKPadding(t *testing.T) {
	r := testResolver(t, nil)
	m, ok := r.Resolve("AAPL")
	require.True(t, ok)
	assert.Equal(t, "0000320193", m.CIK)

	m, ok = r.Resolve("jpm")
	require.True(t, ok)
	assert.Equal(t, "0000019617", m.CIK)
}

func TestResolve_UsesLookupCache(t *testing.T) {
	c := cache.NewMemoryCache(time.Hour, time.Minute)
	r := testResolver(t, c)

	_, ok := r.Resolve("MSFT")
	require.True(t, ok)

	data, found := c.Get(cache.Key("company", "MSFT"))
	require.True(t, found)
	assert.Contains(t, string(data), `"name":"MICROSOFT CORP"`)

	// a cached entry answers even after the registry changes
	r.byTicker = map[string]Meta{}
	m, ok := r.Resolve("MSFT")
	require.True(t, ok)
	assert.Equal(t, "0000789019", m.CIK)
}

func TestValidate(t *testing.T) {
	r := testResolver(t, nil)
	got := r.Validate([]string{"aapl", "Apple", "ZZZZ", "Microsoft", "MSFT"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestNormalize_EmptyRegistryPassesThrough(t *testing.T) {
	r := NewResolver(nil, nil, 0, nil)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []string{"AAPL", "ZZZZ"}, r.Normalize([]string{"aapl", " zzzz", "AAPL", ""}))
}

func TestDetermineCompanies(t *testing.T) {
	r := testResolver(t, nil)

	got := r.DetermineCompanies(model.StructuredQuery{Tickers: []string{"msft", "bogus"}}, 3)
	assert.Equal(t, []string{"MSFT"}, got)

	got = r.DetermineCompanies(model.StructuredQuery{
		Tickers:          []string{"bogus"},
		SuggestedTickers: []string{"GOOGL", "JPM", "AAPL", "MSFT"},
	}, 3)
	assert.Equal(t, []string{"GOOGL", "JPM", "AAPL"}, got)

	got = r.DetermineCompanies(model.StructuredQuery{}, 3)
	assert.Equal(t, []string{"AAPL", "MSFT", "JPM"}, got)

	got[0] = "CHANGED"
	assert.Equal(t, []string{"AAPL", "MSFT", "JPM"}, r.DetermineCompanies(model.StructuredQuery{}, 3))
}

func TestDetermineCompanies_FallbackPoolValidated(t *testing.T) {
	entries, err := Parse(strings.NewReader(`{
		"0": {"cik_str": 1652044, "ticker": "GOOGL", "title": "Alphabet Inc."},
		"1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
	}`))
	require.NoError(t, err)
	r := NewResolver(entries, nil, 0, logging.Discard())

	assert.Equal(t, []string{"MSFT", "GOOGL"}, r.DetermineCompanies(model.StructuredQuery{}, 3))

	empty := NewResolver(nil, nil, 0, logging.Discard())
	assert.Equal(t, []string{"AAPL", "MSFT", "JPM"}, empty.DetermineCompanies(model.StructuredQuery{}, 3))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "company_tickers.json")
	require.NoError(t, os.WriteFile(path, []byte(registryJSON), 0o644))

	r, err := Load(path, nil, time.Hour, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())

	missing, err := Load(filepath.Join(dir, "absent.json"), nil, time.Hour, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Len())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))
	_, err = Load(bad, nil, time.Hour, logging.Discard())
	assert.Error(t, err)
}
