// Package normalizer maps heterogeneous billing-export rows onto the
// canonical CostRecord shape. Column names are resolved once per batch
// through a static alias table; unrecognized columns are ignored.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/costlens/backend/internal/model"
)

// Canonical field names.
const (
	FieldProvider       = "provider"
	FieldAccountID      = "cloud_account_id"
	FieldServiceName    = "service_name"
	FieldRegion         = "region"
	FieldCost           = "cost"
	FieldCurrency       = "currency"
	FieldUsageStartDate = "usage_start_date"
	FieldUsageEndDate   = "usage_end_date"
	FieldCategory       = "category"
)

// aliases maps each canonical field to the source column names it accepts,
// in priority order: the first alias present in the header wins. Names are
// matched after lower-casing and collapsing spaces and dashes to
// underscores, so "UnblendedCost" and "unblended_cost" both resolve.
var aliases = map[string][]string{
	FieldProvider:       {"provider", "cloud_provider", "cloud", "vendor"},
	FieldAccountID:      {"cloud_account_id", "account_id", "account", "account_number", "linked_account"},
	FieldServiceName:    {"service_name", "service", "product", "product_name", "resource_type"},
	FieldRegion:         {"region", "location", "availability_zone", "zone"},
	FieldCost:           {"cost", "charge", "amount", "price", "total_cost", "billed_cost", "unblendedcost", "unblended_cost"},
	FieldCurrency:       {"currency", "currency_code"},
	FieldUsageStartDate: {"usage_start_date", "start_date", "from_date", "begin_date", "period_start", "date"},
	FieldUsageEndDate:   {"usage_end_date", "end_date", "to_date", "finish_date", "period_end"},
	FieldCategory:       {"category", "cost_category", "charge_category"},
}

// dateFormats are tried in order when parsing date columns.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
}

// MaxSampleErrors caps how many row errors a batch result carries.
const MaxSampleErrors = 5

// RawRow is one parsed upload row keyed by its original column names.
type RawRow map[string]string

// RowError records a failed row for the upload summary.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Message)
}

// Result summarizes a batch normalization. Partial success is the default:
// failed rows are counted and sampled, never fatal to the batch.
type Result struct {
	Records      []*model.CostRecord
	TotalRows    int
	SuccessCount int
	ErrorCount   int
	SampleErrors []RowError
}

// columnMap is the per-batch resolution of canonical field -> source column.
type columnMap map[string]string

func normalizeName(col string) string {
	s := strings.ToLower(strings.TrimSpace(col))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// resolveColumns builds the alias resolution for a batch header.
func resolveColumns(header []string) columnMap {
	normalized := make(map[string]string, len(header))
	for _, col := range header {
		key := normalizeName(col)
		if _, ok := normalized[key]; !ok {
			normalized[key] = col
		}
	}

	cm := make(columnMap)
	for field, names := range aliases {
		for _, name := range names {
			if src, ok := normalized[normalizeName(name)]; ok {
				cm[field] = src
				break
			}
		}
	}
	return cm
}

// NormalizeBatch converts raw rows into CostRecords. The header is taken
// from the union of keys in the first row; callers holding an explicit
// header should pass rows that all share it.
func NormalizeBatch(rows []RawRow) *Result {
	res := &Result{TotalRows: len(rows)}
	if len(rows) == 0 {
		return res
	}

	header := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		header = append(header, col)
	}
	cm := resolveColumns(header)

	for i, row := range rows {
		rec, err := normalizeRow(cm, row)
		if err != nil {
			res.ErrorCount++
			if len(res.SampleErrors) < MaxSampleErrors {
				res.SampleErrors = append(res.SampleErrors, RowError{RowIndex: i, Message: err.Error()})
			}
			continue
		}
		res.SuccessCount++
		res.Records = append(res.Records, rec)
	}
	return res
}

func normalizeRow(cm columnMap, row RawRow) (*model.CostRecord, error) {
	get := func(field string) string {
		col, ok := cm[field]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	costStr := get(FieldCost)
	if costStr == "" {
		return nil, fmt.Errorf("cost column is missing or empty")
	}
	cost, err := parseCost(costStr)
	if err != nil {
		return nil, err
	}

	service := get(FieldServiceName)
	if service == "" {
		service = get(FieldCategory)
	}
	if service == "" {
		return nil, fmt.Errorf("no service or category column resolved")
	}

	start, err := parseDate(get(FieldUsageStartDate))
	end, endErr := parseDate(get(FieldUsageEndDate))
	switch {
	case err == nil && endErr != nil:
		end = start
	case err != nil && endErr == nil:
		start = end
	case err != nil && endErr != nil:
		return nil, fmt.Errorf("no date column resolved")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("usage_start_date is after usage_end_date")
	}

	currency := model.Currency(strings.ToUpper(get(FieldCurrency)))
	if currency == "" {
		currency = model.CurrencyUSD
	}

	rec := &model.CostRecord{
		BaseEntity:     model.NewBaseEntity(),
		Provider:       get(FieldProvider),
		CloudAccountID: get(FieldAccountID),
		ServiceName:    service,
		Region:         get(FieldRegion),
		Cost:           cost,
		Currency:       currency,
		UsageStartDate: start,
		UsageEndDate:   end,
		Category:       get(FieldCategory),
	}
	return rec, nil
}

// parseCost accepts plain numbers plus common billing-export decorations
// (currency symbols, thousands separators). Negative costs are credits and
// remain valid.
func parseCost(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	cleaned = strings.TrimSpace(cleaned)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cost %q is not numeric", s)
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q has no recognized format", s)
}
