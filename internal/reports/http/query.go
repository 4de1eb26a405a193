package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/reports"
)

type queryErrors map[string]string

func (q queryErrors) add(field, msg string) { q[field] = msg }

func parseDecimal(values url.Values, field string, errs queryErrors) *decimal.Decimal {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		errs.add(field, "decimal")
		return nil
	}
	return &v
}

// parseTime accepts RFC3339 timestamps or plain dates.
func parseTime(values url.Values, field string, errs queryErrors) *time.Time {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	errs.add(field, "date")
	return nil
}

// parsePage reads page and perPage. paged is false when neither is given.
func parsePage(values url.Values, errs queryErrors) (page, perPage int, paged bool) {
	paged = values.Get("page") != "" || values.Get("perPage") != ""
	page = parseInt(values, "page", 1, errs)
	perPage = parseInt(values, "perPage", 20, errs)
	if perPage > 200 {
		errs.add("perPage", "max")
	}
	return page, perPage, paged
}

func parseInt(values url.Values, field string, fallback int, errs queryErrors) int {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		errs.add(field, "integer")
		return fallback
	}
	return v
}

func parseSort(values url.Values, errs queryErrors) (string, string) {
	by := strings.ToLower(strings.TrimSpace(values.Get("sortBy")))
	switch by {
	case "", reports.SortByDate, reports.SortByAmount, reports.SortByCustomer, reports.SortByCategory:
	default:
		errs.add("sortBy", "oneof")
	}
	order := strings.ToLower(strings.TrimSpace(values.Get("sortOrder")))
	switch order {
	case "", reports.SortAsc, reports.SortDesc:
	default:
		errs.add("sortOrder", "oneof")
	}
	return by, order
}

func parseDebtFilter(values url.Values) (reports.DebtFilter, queryErrors) {
	errs := queryErrors{}
	f := reports.DebtFilter{
		Query:      values.Get("q"),
		CustomerID: values.Get("customerId"),
		Category:   values.Get("category"),
		Status:     ledger.Status(values.Get("status")),
		MinAmount:  parseDecimal(values, "minAmount", errs),
		MaxAmount:  parseDecimal(values, "maxAmount", errs),
		From:       parseTime(values, "from", errs),
		To:         parseTime(values, "to", errs),
	}
	if f.Status != "" && !f.Status.IsValid() {
		errs.add("status", "oneof")
	}
	f.SortBy, f.SortOrder = parseSort(values, errs)
	return f, errs
}

func parsePaymentFilter(values url.Values) (reports.PaymentFilter, queryErrors) {
	errs := queryErrors{}
	f := reports.PaymentFilter{
		Query:      values.Get("q"),
		CustomerID: values.Get("customerId"),
		DebtID:     values.Get("debtId"),
		MinAmount:  parseDecimal(values, "minAmount", errs),
		MaxAmount:  parseDecimal(values, "maxAmount", errs),
		From:       parseTime(values, "from", errs),
		To:         parseTime(values, "to", errs),
	}
	f.SortBy, f.SortOrder = parseSort(values, errs)
	return f, errs
}

func cacheKey(route string, values url.Values, lang string, version int64) string {
	return fmt.Sprintf("%s@%d?%s#%s", route, version, values.Encode(), lang)
}
