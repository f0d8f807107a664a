// Package http serves the ledger as a JSON API.
//
// This file holds request parsing: month and paging parameters, and a body
// parser that accepts JSON or form-encoded input.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneydrain/internal/core"
)

// maxBodyBytes bounds request bodies; a transaction is a few hundred bytes.
const maxBodyBytes = 64 << 10

var (
	errInvalidDate   = errors.New("date must be RFC 3339 or YYYY-MM-DD")
	errInvalidNumber = errors.New("must be an integer")
	errBodyTooLarge  = errors.New("request body too large")
)

type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from the query, defaulting each
// to the month of now. Range checks are left to the store.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	m := core.MonthOf(now)
	params := MonthParams{Year: m.Year, Month: m.Month}

	var err error
	if params.Year, err = intParam(query, "year", params.Year); err != nil {
		return MonthParams{}, err
	}
	if params.Month, err = intParam(query, "month", params.Month); err != nil {
		return MonthParams{}, err
	}
	return params, nil
}

// ParsePage reads limit and offset. Missing values fall back to the store
// defaults.
func ParsePage(query url.Values) (limit, offset int, err error) {
	if limit, err = intParam(query, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(query, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ValidationError{Field: key, Err: errInvalidNumber}
	}
	return n, nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: errors.New("must be a positive integer")}
	}
	return id, nil
}

// RequestBodyParser handles JSON and form-encoded bodies behind one
// accessor.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a trimmed, sanitized string value from the parsed body.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseNewTransaction builds the input of a transaction from a parsed body.
func parseNewTransaction(p *RequestBodyParser) (core.NewTransaction, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.NewTransaction{}, err
	}
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.NewTransaction{}, err
	}
	date, err := parseDate(p.Get("date"))
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Amount:        amount,
		Type:          typ,
		Category:      p.Get("category"),
		CategoryIcon:  p.Get("categoryIcon"),
		CategoryColor: p.Get("categoryColor"),
		Note:          p.Get("note"),
		Date:          date,
	}, nil
}

func parseNewCategory(p *RequestBodyParser) (core.NewCategory, error) {
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.NewCategory{}, err
	}
	return core.NewCategory{
		Name:  p.Get("name"),
		Color: p.Get("color"),
		Icon:  p.Get("icon"),
		Type:  typ,
	}, nil
}

// parseDate accepts an empty string (meaning now), RFC 3339 or a plain
// YYYY-MM-DD day in UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, &core.ValidationError{Field: "date", Err: errInvalidDate}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
