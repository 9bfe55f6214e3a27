package models

import "github.com/shopspring/decimal"

// DailyBucket sums one entity's sales on one calendar day.
type DailyBucket struct {
	EntityID      string          `json:"entity_id"`
	Date          Date            `json:"date"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// WeeklyBucket sums one entity's sales over the week ending on WeekEnd.
type WeeklyBucket struct {
	EntityID      string          `json:"entity_id"`
	WeekEnd       Date            `json:"week_end"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}
