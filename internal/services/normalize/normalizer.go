// Package normalize turns the upstream transaction payload into typed sale records.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StockSense/internal/domain/models"
	"StockSense/pkg/util"
)

// Drop reasons reported in NormalizeStats.DropReasons.
const (
	ReasonMissingEntity    = "missing_entity"
	ReasonMissingType      = "missing_type"
	ReasonMissingTimestamp = "missing_timestamp"
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonMissingQuantity  = "missing_quantity"
	ReasonInvalidQuantity  = "invalid_quantity"
	ReasonNegativeQuantity = "negative_quantity"
	ReasonMissingAmount    = "missing_amount"
	ReasonInvalidAmount    = "invalid_amount"
	ReasonNegativeAmount   = "negative_amount"
)

// wrapperKeys are envelope keys unwrapped when the payload is an object.
var wrapperKeys = []string{"data", "transactions", "results"}

// Fields names the upstream record attributes.
type Fields struct {
	Entity    string
	Type      string
	Timestamp string
	Quantity  string
	Amount    string
}

// DefaultFields matches the upstream transaction API.
func DefaultFields() Fields {
	return Fields{
		Entity:    "productName",
		Type:      "transactionType",
		Timestamp: "date",
		Quantity:  "quantity",
		Amount:    "amount",
	}
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	fields Fields
	loc    *time.Location
}

// New creates a Normalizer. Zone-less timestamps are read in loc (UTC if nil).
func New(fields Fields, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{fields: fields, loc: loc}
}

// Location is the zone used for zone-less timestamps and calendar days.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize decodes raw and returns the accepted sale records. It fails with
// models.ErrStructural only when raw is not an array of JSON objects; bad
// individual records are counted in the stats and skipped.
func (n *Normalizer) Normalize(raw []byte) ([]models.TransactionRecord, models.NormalizeStats, error) {
	var stats models.NormalizeStats

	rows, err := splitRecords(raw)
	if err != nil {
		return nil, stats, err
	}

	out := make([]models.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		stats.Total++
		rec, reason, sale := n.record(row)
		switch {
		case reason != "":
			stats.Drop(reason)
		case !sale:
			stats.Filtered++
		default:
			stats.Accepted++
			out = append(out, rec)
		}
	}
	return out, stats, nil
}

func splitRecords(raw []byte) ([]map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", models.ErrStructural)
	}

	if raw[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStructural, err)
		}
		inner, ok := unwrap(envelope)
		if !ok {
			return nil, fmt.Errorf("%w: object payload without a record list", models.ErrStructural)
		}
		raw = bytes.TrimSpace(inner)
	}

	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: payload is not an array", models.ErrStructural)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStructural, err)
	}

	rows := make([]map[string]json.RawMessage, 0, len(elems))
	for i, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", models.ErrStructural, i)
		}
		var row map[string]json.RawMessage
		if err := json.Unmarshal(e, &row); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", models.ErrStructural, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func unwrap(envelope map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, k := range wrapperKeys {
		if v, ok := envelope[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// record converts one row. A non-empty reason means the row is dropped;
// sale is false for well-formed rows of another transaction type.
func (n *Normalizer) record(row map[string]json.RawMessage) (rec models.TransactionRecord, reason string, sale bool) {
	typ, ok := stringField(row, n.fields.Type)
	if !ok {
		return rec, ReasonMissingType, false
	}
	rec.Type = models.ParseTransactionType(typ)
	if !rec.IsSale() {
		return rec, "", false
	}

	entity, ok := stringField(row, n.fields.Entity)
	if !ok {
		return rec, ReasonMissingEntity, false
	}
	rec.EntityID = entity

	ts, reason := n.timestamp(row[n.fields.Timestamp])
	if reason != "" {
		return rec, reason, false
	}
	rec.Timestamp = ts

	qty, reason := quantity(row[n.fields.Quantity])
	if reason != "" {
		return rec, reason, false
	}
	rec.Quantity = qty

	amt, reason := amount(row[n.fields.Amount])
	if reason != "" {
		return rec, reason, false
	}
	rec.Amount = amt

	return rec, "", true
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// stringField returns a non-blank string value, accepting numbers as text.
func stringField(row map[string]json.RawMessage, key string) (string, bool) {
	v, ok := row[key]
	if !ok || isNull(v) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(v, &num); err != nil {
			return "", false
		}
		s = num.String()
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func (n *Normalizer) timestamp(v json.RawMessage) (time.Time, string) {
	if isNull(v) {
		return time.Time{}, ReasonMissingTimestamp
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return time.Time{}, ReasonMissingTimestamp
		}
		if t, ok := util.ParseTime(s, n.loc); ok {
			return t, ""
		}
		return time.Time{}, ReasonInvalidTimestamp
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		if t, ok := util.FromUnix(f); ok {
			return t, ""
		}
	}
	return time.Time{}, ReasonInvalidTimestamp
}

// numeric reads a JSON number or numeric string as a decimal.
func numeric(v json.RawMessage) (decimal.Decimal, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(v, &num); err != nil {
			return decimal.Decimal{}, false
		}
		s = num.String()
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func quantity(v json.RawMessage) (int64, string) {
	if isNull(v) {
		return 0, ReasonMissingQuantity
	}
	d, ok := numeric(v)
	if !ok || !d.IsInteger() {
		return 0, ReasonInvalidQuantity
	}
	if d.IsNegative() {
		return 0, ReasonNegativeQuantity
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ReasonInvalidQuantity
	}
	return d.IntPart(), ""
}

func amount(v json.RawMessage) (decimal.Decimal, string) {
	if isNull(v) {
		return decimal.Decimal{}, ReasonMissingAmount
	}
	d, ok := numeric(v)
	if !ok {
		return decimal.Decimal{}, ReasonInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ReasonNegativeAmount
	}
	return d, ""
}
