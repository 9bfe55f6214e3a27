// Package aggregate sums sale records into daily and weekly buckets.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"StockSense/internal/domain/models"
)

type dayKey struct {
	date   models.Date
	entity string
}

// Daily groups sale records by (calendar day in loc, entity) and sums them.
// Non-sale records are ignored. Output is ordered by (date, entity). A total
// that would overflow fails with models.ErrQuantityOverflow.
func Daily(records []models.TransactionRecord, loc *time.Location) ([]models.DailyBucket, error) {
	if loc == nil {
		loc = time.UTC
	}

	groups := make(map[dayKey]*models.DailyBucket)
	for _, r := range records {
		if !r.IsSale() {
			continue
		}
		k := dayKey{date: models.DateOf(r.Timestamp, loc), entity: r.EntityID}
		b, ok := groups[k]
		if !ok {
			b = &models.DailyBucket{EntityID: k.entity, Date: k.date, TotalAmount: decimal.Zero}
			groups[k] = b
		}
		q, ok := addQuantity(b.TotalQuantity, r.Quantity)
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", models.ErrQuantityOverflow, k.entity, k.date)
		}
		b.TotalQuantity = q
		b.TotalAmount = b.TotalAmount.Add(r.Amount)
	}

	out := make([]models.DailyBucket, 0, len(groups))
	for _, b := range groups {
		out = append(out, *b)
	}
	SortDaily(out)
	return out, nil
}

// addQuantity adds non-negative quantities, reporting false on overflow.
func addQuantity(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}

// SortDaily orders buckets by (date, entity) ascending.
func SortDaily(b []models.DailyBucket) {
	sort.Slice(b, func(i, j int) bool {
		if !b[i].Date.Equal(b[j].Date) {
			return b[i].Date.Before(b[j].Date)
		}
		return b[i].EntityID < b[j].EntityID
	})
}
