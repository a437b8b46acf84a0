package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the wire format for every promotion timestamp (UTC, no offset).
const TimestampLayout = "2006-01-02T15:04:05.999999"

// PromotionResponse is the API response DTO for a single promotion.
// Money is rounded to two places here and nowhere else.
type PromotionResponse struct {
	ID              int64        `json:"id"`
	ProductName     string       `json:"product_name"`
	Description     *string      `json:"description"`
	OriginalPrice   json.Number  `json:"original_price"`
	DiscountValue   *json.Number `json:"discount_value"`
	DiscountType    *string      `json:"discount_type"`
	PromotionType   string       `json:"promotion_type"`
	StartDate       string       `json:"start_date"`
	ExpirationDate  string       `json:"expiration_date"`
	Status          string       `json:"status"`
	DiscountedPrice json.Number  `json:"discounted_price"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
}

// NewPromotionResponse serializes p, computing discounted_price on the way out.
func NewPromotionResponse(p *Promotion) *PromotionResponse {
	resp := &PromotionResponse{
		ID:              p.ID,
		ProductName:     p.ProductName,
		Description:     p.Description,
		OriginalPrice:   money(p.OriginalPrice),
		PromotionType:   string(p.PromotionType),
		StartDate:       FormatTimestamp(p.StartDate),
		ExpirationDate:  FormatTimestamp(p.ExpirationDate),
		Status:          string(p.Status),
		DiscountedPrice: money(p.DiscountedPrice()),
		CreatedAt:       FormatTimestamp(p.CreatedAt),
		UpdatedAt:       FormatTimestamp(p.UpdatedAt),
	}
	if p.DiscountValue != nil {
		v := money(*p.DiscountValue)
		resp.DiscountValue = &v
	}
	if p.DiscountType != nil {
		t := string(*p.DiscountType)
		resp.DiscountType = &t
	}
	return resp
}

// NewPromotionResponses serializes a list, returning an empty slice rather than nil.
func NewPromotionResponses(promos []*Promotion) []*PromotionResponse {
	out := make([]*PromotionResponse, 0, len(promos))
	for _, p := range promos {
		out = append(out, NewPromotionResponse(p))
	}
	return out
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
