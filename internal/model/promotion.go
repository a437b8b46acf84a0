package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PromotionType distinguishes priced discounts from informational offers.
type PromotionType string

const (
	PromotionTypeDiscount PromotionType = "discount"
	PromotionTypeOther    PromotionType = "other"
)

// PromotionTypeValues lists every accepted promotion_type literal.
func PromotionTypeValues() []string {
	return []string{string(PromotionTypeDiscount), string(PromotionTypeOther)}
}

// ParsePromotionType converts a literal into a PromotionType.
func ParsePromotionType(s string) (PromotionType, error) {
	switch PromotionType(s) {
	case PromotionTypeDiscount, PromotionTypeOther:
		return PromotionType(s), nil
	}
	return "", fmt.Errorf("unknown promotion type %q", s)
}

// DiscountType says how discount_value is applied to original_price.
type DiscountType string

const (
	DiscountTypeAmount  DiscountType = "amount"
	DiscountTypePercent DiscountType = "percent"
)

// DiscountTypeValues lists every accepted discount_type literal.
func DiscountTypeValues() []string {
	return []string{string(DiscountTypeAmount), string(DiscountTypePercent)}
}

// ParseDiscountType converts a literal into a DiscountType.
func ParseDiscountType(s string) (DiscountType, error) {
	switch DiscountType(s) {
	case DiscountTypeAmount, DiscountTypePercent:
		return DiscountType(s), nil
	}
	return "", fmt.Errorf("unknown discount type %q", s)
}

// Status is the lifecycle state of a promotion.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusActive      Status = "active"
	StatusExpired     Status = "expired"
	StatusDeactivated Status = "deactivated"
	StatusDeleted     Status = "deleted"
)

// StatusValues lists every accepted status literal.
func StatusValues() []string {
	return []string{
		string(StatusDraft),
		string(StatusActive),
		string(StatusExpired),
		string(StatusDeactivated),
		string(StatusDeleted),
	}
}

// ParseStatus converts a literal into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusActive, StatusExpired, StatusDeactivated, StatusDeleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CanTransitionTo reports whether a promotion in status s may move to next.
// Staying in the same status is always allowed; deleted is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusDraft:
		return next == StatusActive || next == StatusDeactivated || next == StatusDeleted
	case StatusActive:
		return next == StatusExpired || next == StatusDeactivated || next == StatusDeleted
	case StatusExpired, StatusDeactivated:
		return next == StatusDeleted
	}
	return false
}

// Promotion is a discount or informational offer attached to a product.
// DiscountValue and DiscountType are nil unless a discount is applied.
type Promotion struct {
	ID             int64
	ProductName    string
	Description    *string
	OriginalPrice  decimal.Decimal
	PromotionType  PromotionType
	DiscountValue  *decimal.Decimal
	DiscountType   *DiscountType
	StartDate      time.Time
	ExpirationDate time.Time
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns the price after the discount is applied, never below zero.
// It is derived on every call and must not be stored.
func (p *Promotion) DiscountedPrice() decimal.Decimal {
	if p.PromotionType != PromotionTypeDiscount || p.DiscountValue == nil || p.DiscountType == nil {
		return p.OriginalPrice
	}

	var price decimal.Decimal
	switch *p.DiscountType {
	case DiscountTypeAmount:
		price = p.OriginalPrice.Sub(*p.DiscountValue)
	case DiscountTypePercent:
		factor := decimal.NewFromInt(1).Sub(p.DiscountValue.Div(hundred))
		price = p.OriginalPrice.Mul(factor)
	default:
		return p.OriginalPrice
	}

	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// Clone returns a deep copy so callers can merge changes without touching the original.
func (p *Promotion) Clone() *Promotion {
	c := *p
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	if p.DiscountValue != nil {
		v := *p.DiscountValue
		c.DiscountValue = &v
	}
	if p.DiscountType != nil {
		t := *p.DiscountType
		c.DiscountType = &t
	}
	return &c
}
