package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies an upstream transaction.
type TransactionType string

const (
	TransactionSale  TransactionType = "sale"
	TransactionOther TransactionType = "other"
)

// ParseTransactionType maps the upstream label to a TransactionType. Only the
// lower-case label "sale" is a sale; "Sale" and "SALE" are TransactionOther.
func ParseTransactionType(s string) TransactionType {
	if s == string(TransactionSale) {
		return TransactionSale
	}
	return TransactionOther
}

// TransactionRecord is a well-typed upstream transaction.
type TransactionRecord struct {
	EntityID  string
	Type      TransactionType
	Timestamp time.Time
	Quantity  int64
	Amount    decimal.Decimal
}

// IsSale reports whether the record participates in aggregation.
func (r TransactionRecord) IsSale() bool { return r.Type == TransactionSale }

// NormalizeStats describes what the normalizer kept and discarded.
type NormalizeStats struct {
	Total       int            `json:"total"`
	Accepted    int            `json:"accepted"`
	Filtered    int            `json:"filtered"`
	Dropped     int            `json:"dropped"`
	DropReasons map[string]int `json:"drop_reasons,omitempty"`
}

// Drop records one discarded record under reason.
func (s *NormalizeStats) Drop(reason string) {
	s.Dropped++
	if s.DropReasons == nil {
		s.DropReasons = make(map[string]int)
	}
	s.DropReasons[reason]++
}
