package secapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoAPIKey is returned when a call is attempted without credentials
var ErrNoAPIKey = errors.New("sec-api key is not configured")

// StatusError reports a non-success HTTP status from the provider
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// SearchRequest is a full-text filing search
type SearchRequest struct {
	Query string // query_string expression, e.g. `ticker:AAPL AND formType:"10-K"`
	From  int
	Size  int
}

// Filing is the metadata of one filing returned by search
type Filing struct {
	Ticker              string     `json:"ticker"`
	FormType            string     `json:"formType"`
	FiledAt             string     `json:"filedAt"`
	CompanyName         string     `json:"companyName"`
	Description         string     `json:"description"`
	AccessionNo         string     `json:"accessionNo"`
	CIK                 flexString `json:"cik"`
	LinkToFilingDetails string     `json:"linkToFilingDetails"`
	LinkToHTML          string     `json:"linkToHtml"`
	LinkToTxt           string     `json:"linkToTxt"`
}

// DocumentLink returns the best link for section extraction
func (f Filing) DocumentLink() string {
	if f.LinkToHTML != "" {
		return f.LinkToHTML
	}
	return f.LinkToTxt
}

// FiledDate returns the YYYY-MM-DD prefix of FiledAt
func (f Filing) FiledDate() string {
	return datePrefix(f.FiledAt)
}

// InsiderRequest searches insider transaction filings
type InsiderRequest struct {
	Ticker    string
	Form      string // "3", "4" or "5"
	DateFloor string // YYYY-MM-DD; empty means no floor
	Size      int
}

// Query renders the request as a query_string expression
func (r InsiderRequest) Query() string {
	q := fmt.Sprintf("issuer.tradingSymbol:%s AND documentType:%s", r.Ticker, r.Form)
	if r.DateFloor != "" {
		q += fmt.Sprintf(" AND filedAt:[%s TO *]", r.DateFloor)
	}
	return q
}

// InsiderFiling is one Form 3/4/5 filing with its transactions
type InsiderFiling struct {
	AccessionNo         string            `json:"accessionNo"`
	FiledAt             string            `json:"filedAt"`
	DocumentType        string            `json:"documentType"`
	PeriodOfReport      string            `json:"periodOfReport"`
	LinkToFilingDetails string            `json:"linkToFilingDetails"`
	Issuer              InsiderIssuer     `json:"issuer"`
	ReportingOwner      *ReportingOwner   `json:"reportingOwner"`
	NonDerivativeTable  *TransactionTable `json:"nonDerivativeTable"`
	DerivativeTable     *TransactionTable `json:"derivativeTable"`
}

// InsiderIssuer identifies the company whose securities were traded
type InsiderIssuer struct {
	Name          string `json:"name"`
	TradingSymbol string `json:"tradingSymbol"`
}

// ReportingOwner is the insider who filed
type ReportingOwner struct {
	Name string `json:"name"`
}

// TransactionTable holds derivative or non-derivative transactions
type TransactionTable struct {
	Transactions []InsiderTransaction `json:"transactions"`
}

// InsiderTransaction is one reported transaction line
type InsiderTransaction struct {
	SecurityTitle   string             `json:"securityTitle"`
	TransactionDate string             `json:"transactionDate"`
	Coding          TransactionCoding  `json:"coding"`
	Amounts         TransactionAmounts `json:"amounts"`
}

// TransactionCoding carries the SEC transaction code (e.g., "S", "P", "M")
type TransactionCoding struct {
	Code string `json:"code"`
}

// TransactionAmounts are the share count, price and direction of a trade
type TransactionAmounts struct {
	Shares               FlexFloat `json:"shares"`
	PricePerShare        FlexFloat `json:"pricePerShare"`
	AcquiredDisposedCode string    `json:"acquiredDisposedCode"`
}

// OwnerName returns the reporting owner's name or a placeholder
func (f InsiderFiling) OwnerName() string {
	if f.ReportingOwner == nil || strings.TrimSpace(f.ReportingOwner.Name) == "" {
		return "Unknown Person"
	}
	return f.ReportingOwner.Name
}

// FiledDate returns the YYYY-MM-DD prefix of FiledAt
func (f InsiderFiling) FiledDate() string {
	return datePrefix(f.FiledAt)
}

// NonDerivative returns the non-derivative transaction lines
func (f InsiderFiling) NonDerivative() []InsiderTransaction {
	if f.NonDerivativeTable == nil {
		return nil
	}
	return f.NonDerivativeTable.Transactions
}

// HasDerivative reports whether derivative transactions were filed too
func (f InsiderFiling) HasDerivative() bool {
	return f.DerivativeTable != nil && len(f.DerivativeTable.Transactions) > 0
}

// FlexFloat decodes a JSON number, numeric string, empty string or null.
// Values that cannot be parsed decode without error and are marked invalid.
type FlexFloat struct {
	Value   float64
	Invalid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}

	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			*f = FlexFloat{Invalid: true}
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			*f = FlexFloat{}
			return nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = FlexFloat{Invalid: true}
		return nil
	}
	*f = FlexFloat{Value: v}
	return nil
}

// flexString decodes either a JSON string or a JSON number
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}

func datePrefix(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}
