package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/promotion-service/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ValidateBusinessRules checks the promotion invariants in a fixed order and
// returns the first violation, or nil. It has no side effects.
func ValidateBusinessRules(p *model.Promotion) error {
	if !p.OriginalPrice.IsPositive() {
		return violation(RulePriceNotPositive,
			"original_price must be greater than 0", "original_price")
	}

	if p.DiscountType != nil && p.DiscountValue != nil {
		value := *p.DiscountValue
		switch *p.DiscountType {
		case model.DiscountTypeAmount:
			if value.IsNegative() || value.GreaterThan(p.OriginalPrice) {
				return violation(RuleDiscountExceedsPrice,
					"discount_value must be between 0 and original_price for amount discounts",
					"discount_value", "original_price")
			}
		case model.DiscountTypePercent:
			if value.IsNegative() || value.GreaterThan(hundred) {
				return violation(RulePercentOutOfRange,
					"discount_value must be between 0 and 100 for percent discounts",
					"discount_value")
			}
		}
	}

	if !p.ExpirationDate.After(p.StartDate) {
		return violation(RuleInvalidDateOrder,
			"expiration_date must be after start_date", "start_date", "expiration_date")
	}

	if p.PromotionType == model.PromotionTypeOther && (p.DiscountValue != nil || p.DiscountType != nil) {
		return violation(RuleDiscountFieldsOnNonDiscountType,
			"discount_value and discount_type should be null when promotion_type is other",
			"discount_value", "discount_type")
	}

	return nil
}

// ValidateTransition checks that a promotion may move from one status to another
// through an update. Deletion is only reachable through Delete.
func ValidateTransition(from, to model.Status) error {
	if to == model.StatusDeleted && from != model.StatusDeleted {
		return violation(RuleInvalidStatusTransition,
			"status cannot be set to deleted by an update; delete the promotion instead", "status")
	}
	if !from.CanTransitionTo(to) {
		return violation(RuleInvalidStatusTransition,
			fmt.Sprintf("status cannot change from %s to %s", from, to), "status")
	}
	return nil
}

// ValidateInitialStatus rejects statuses a promotion may not be created with.
func ValidateInitialStatus(s model.Status) error {
	if s == model.StatusDeleted {
		return violation(RuleInvalidStatusTransition,
			"a promotion cannot be created with status deleted", "status")
	}
	return nil
}
