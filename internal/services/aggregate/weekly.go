package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"StockSense/internal/domain/models"
)

// WeekEnd returns the first day on or after d that falls on weekEnd.
func WeekEnd(d models.Date, weekEnd time.Weekday) models.Date {
	diff := (int(weekEnd) - int(d.Weekday()) + 7) % 7
	return d.AddDays(diff)
}

// NextWeekEnds returns the n week ends following last.
func NextWeekEnds(last models.Date, n int) []models.Date {
	out := make([]models.Date, n)
	for i := range out {
		out[i] = last.AddDays(7 * (i + 1))
	}
	return out
}

type weekKey struct {
	entity string
	end    models.Date
}

// Weekly re-sums daily buckets per (entity, week end). With zeroFill, weeks
// between an entity's first and last observed week that had no sales appear
// as explicit zero buckets. Output is ordered by (week end, entity).
func Weekly(daily []models.DailyBucket, weekEnd time.Weekday, zeroFill bool) ([]models.WeeklyBucket, error) {
	groups := make(map[weekKey]*models.WeeklyBucket)
	first := make(map[string]models.Date)
	last := make(map[string]models.Date)

	for _, d := range daily {
		end := WeekEnd(d.Date, weekEnd)
		k := weekKey{entity: d.EntityID, end: end}
		b, ok := groups[k]
		if !ok {
			b = &models.WeeklyBucket{EntityID: d.EntityID, WeekEnd: end, TotalAmount: decimal.Zero}
			groups[k] = b
		}
		q, ok := addQuantity(b.TotalQuantity, d.TotalQuantity)
		if !ok {
			return nil, fmt.Errorf("%w: %s week ending %s", models.ErrQuantityOverflow, d.EntityID, end)
		}
		b.TotalQuantity = q
		b.TotalAmount = b.TotalAmount.Add(d.TotalAmount)

		if f, ok := first[d.EntityID]; !ok || end.Before(f) {
			first[d.EntityID] = end
		}
		if l, ok := last[d.EntityID]; !ok || end.After(l) {
			last[d.EntityID] = end
		}
	}

	if zeroFill {
		for entity, f := range first {
			for w := f; !w.After(last[entity]); w = w.AddDays(7) {
				k := weekKey{entity: entity, end: w}
				if _, ok := groups[k]; !ok {
					groups[k] = &models.WeeklyBucket{EntityID: entity, WeekEnd: w, TotalAmount: decimal.Zero}
				}
			}
		}
	}

	out := make([]models.WeeklyBucket, 0, len(groups))
	for _, b := range groups {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WeekEnd.Equal(out[j].WeekEnd) {
			return out[i].WeekEnd.Before(out[j].WeekEnd)
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

// SeriesByEntity splits weekly buckets into per-entity series ordered by week end.
func SeriesByEntity(weekly []models.WeeklyBucket) map[string][]models.WeeklyBucket {
	out := make(map[string][]models.WeeklyBucket)
	for _, b := range weekly {
		out[b.EntityID] = append(out[b.EntityID], b)
	}
	for _, s := range out {
		sort.Slice(s, func(i, j int) bool { return s[i].WeekEnd.Before(s[j].WeekEnd) })
	}
	return out
}

// Entities returns the entity ids of series in sorted order.
func Entities(series map[string][]models.WeeklyBucket) []string {
	ids := make([]string, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Quantities extracts the quantity series as floats for model fitting.
func Quantities(series []models.WeeklyBucket) []float64 {
	out := make([]float64, len(series))
	for i, b := range series {
		out[i] = float64(b.TotalQuantity)
	}
	return out
}
