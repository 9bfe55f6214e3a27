package normalize

import (
	"errors"
	"testing"
	"time"

	"StockSense/internal/domain/models"
)

func TestNormalizeFiltersNonSales(t *testing.T) {
	raw := []byte(`[
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":3,"amount":"30.00"},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-02","quantity":5,"amount":50},
		{"productName":"Widget","transactionType":"return","date":"2024-01-02","quantity":1,"amount":10}
	]`)

	recs, stats, err := New(DefaultFields(), nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if stats.Total != 3 || stats.Accepted != 2 || stats.Filtered != 1 || stats.Dropped != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if recs[0].Quantity != 3 || recs[1].Quantity != 5 {
		t.Fatalf("unexpected quantities %d, %d", recs[0].Quantity, recs[1].Quantity)
	}
	if recs[0].Amount.String() != "30" {
		t.Fatalf("amount = %s", recs[0].Amount)
	}
}

func TestNormalizeSaleLabelIsExact(t *testing.T) {
	tests := []struct {
		label string
		sale  bool
	}{
		{"sale", true},
		{"Sale", false},
		{"SALE", false},
		{"sales", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			raw := []byte(`[{"productName":"Widget","transactionType":"` + tt.label + `","date":"2024-01-01","quantity":3,"amount":30}]`)
			recs, stats, err := New(DefaultFields(), nil).Normalize(raw)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got := len(recs) == 1; got != tt.sale {
				t.Fatalf("accepted = %v, want %v (stats %+v)", got, tt.sale, stats)
			}
			if !tt.sale && stats.Filtered != 1 {
				t.Fatalf("expected filtered row, got %+v", stats)
			}
		})
	}
}

func TestNormalizeDropsMalformed(t *testing.T) {
	raw := []byte(`[
		{"productName":"Widget","transactionType":"sale","quantity":3,"amount":1},
		{"productName":"Widget","transactionType":"sale","date":"not a date","quantity":3,"amount":1},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":2.5,"amount":1},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":-1,"amount":1},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":1,"amount":"abc"},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":1,"amount":-4},
		{"productName":"","transactionType":"sale","date":"2024-01-01","quantity":1,"amount":1},
		{"productName":"Widget","date":"2024-01-01","quantity":1,"amount":1},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":null,"amount":1},
		{"productName":"Widget","transactionType":"sale","date":"2024-01-01","quantity":4,"amount":2}
	]`)

	recs, stats, err := New(DefaultFields(), nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(recs) != 1 || recs[0].Quantity != 4 {
		t.Fatalf("expected the single valid record, got %+v", recs)
	}
	if stats.Dropped != 9 {
		t.Fatalf("dropped = %d, want 9 (%+v)", stats.Dropped, stats.DropReasons)
	}
	want := map[string]int{
		ReasonMissingTimestamp: 1,
		ReasonInvalidTimestamp: 1,
		ReasonInvalidQuantity:  1,
		ReasonNegativeQuantity: 1,
		ReasonInvalidAmount:    1,
		ReasonNegativeAmount:   1,
		ReasonMissingEntity:    1,
		ReasonMissingType:      1,
		ReasonMissingQuantity:  1,
	}
	for reason, n := range want {
		if stats.DropReasons[reason] != n {
			t.Errorf("reason %s = %d, want %d", reason, stats.DropReasons[reason], n)
		}
	}
}

func TestNormalizeStructuralFailure(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"scalar":         `42`,
		"string":         `"hello"`,
		"array of ints":  `[1,2,3]`,
		"mixed":          `[{"a":1}, "x"]`,
		"object no list": `{"detail":"Invalid token"}`,
		"broken json":    `[{"a":`,
	}
	n := New(DefaultFields(), nil)
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := n.Normalize([]byte(raw))
			if !errors.Is(err, models.ErrStructural) {
				t.Fatalf("expected ErrStructural, got %v", err)
			}
		})
	}
}

func TestNormalizeEnvelopeAndEmpty(t *testing.T) {
	n := New(DefaultFields(), nil)

	recs, stats, err := n.Normalize([]byte(`{"data":[{"productName":"A","transactionType":"sale","date":"2024-03-01","quantity":"7","amount":"1.5"}]}`))
	if err != nil || len(recs) != 1 || recs[0].Quantity != 7 {
		t.Fatalf("envelope: %+v %+v %v", recs, stats, err)
	}

	recs, stats, err = n.Normalize([]byte(`[]`))
	if err != nil || len(recs) != 0 || stats.Total != 0 {
		t.Fatalf("empty array: %+v %+v %v", recs, stats, err)
	}
}

func TestNormalizeTimestamps(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	n := New(DefaultFields(), loc)

	cases := []struct {
		date string
		want string
	}{
		{`"2024-01-05T10:00:00Z"`, "2024-01-05T10:00:00Z"},
		{`"2024-01-05 10:00:00"`, "2024-01-05T15:00:00Z"},
		{`"2024-01-05"`, "2024-01-05T05:00:00Z"},
		{`1704448800`, "2024-01-05T10:00:00Z"},
		{`1704448800000`, "2024-01-05T10:00:00Z"},
		{`"1704448800"`, "2024-01-05T10:00:00Z"},
	}
	for _, tc := range cases {
		raw := []byte(`[{"productName":"A","transactionType":"sale","date":` + tc.date + `,"quantity":1,"amount":1}]`)
		recs, stats, err := n.Normalize(raw)
		if err != nil || len(recs) != 1 {
			t.Fatalf("%s: %+v %+v %v", tc.date, recs, stats, err)
		}
		if got := recs[0].Timestamp.UTC().Format(time.RFC3339); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.date, got, tc.want)
		}
	}
}

func TestNormalizeCustomFields(t *testing.T) {
	n := New(Fields{Entity: "sku", Type: "kind", Timestamp: "ts", Quantity: "qty", Amount: "total"}, time.UTC)
	recs, _, err := n.Normalize([]byte(`[{"sku":"X-1","kind":"sale","ts":"2024-02-02","qty":2,"total":9.99}]`))
	if err != nil || len(recs) != 1 {
		t.Fatalf("custom fields: %+v %v", recs, err)
	}
	if recs[0].EntityID != "X-1" || recs[0].Amount.String() != "9.99" {
		t.Fatalf("unexpected record %+v", recs[0])
	}
}
