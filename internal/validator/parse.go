package validator

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/promotion-service/internal/model"
)

const (
	maxProductNameLen = 255
	maxDescriptionLen = 1024
)

// moneyLimit is the first value that no longer fits NUMERIC(10,2).
var moneyLimit = decimal.New(1, 8)

// Exponent bounds for money literals; anything outside is rejected before any
// arithmetic rescales the coefficient.
const (
	minMoneyExponent = -32
	maxMoneyExponent = 8
)

var requiredOnCreate = []string{"product_name", "original_price", "promotion_type", "expiration_date"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParsePromotion coerces raw transport fields into a candidate promotion.
//
// With a nil base it builds a new promotion and requires product_name, original_price,
// promotion_type and expiration_date; start_date defaults to now and status to draft.
// With a base it clones it and overwrites only the supplied fields; an explicit null
// clears a nullable field. Business invariants are not checked here.
func ParsePromotion(raw map[string]any, base *model.Promotion, now time.Time) (*model.Promotion, error) {
	var p *model.Promotion
	if base == nil {
		for _, field := range requiredOnCreate {
			if v, ok := raw[field]; !ok || v == nil {
				return nil, MissingField(field)
			}
		}
		p = &model.Promotion{
			StartDate: now.UTC().Truncate(time.Microsecond),
			Status:    model.StatusDraft,
		}
	} else {
		p = base.Clone()
	}

	if v, ok := raw["product_name"]; ok {
		name, err := parseProductName(v)
		if err != nil {
			return nil, err
		}
		p.ProductName = name
	}

	if v, ok := raw["description"]; ok {
		desc, err := parseDescription(v)
		if err != nil {
			return nil, err
		}
		p.Description = desc
	}

	if v, ok := raw["original_price"]; ok {
		if v == nil {
			return nil, MissingField("original_price")
		}
		price, err := parseMoney("original_price", v)
		if err != nil {
			return nil, err
		}
		p.OriginalPrice = price
	}

	if v, ok := raw["promotion_type"]; ok {
		if v == nil {
			return nil, MissingField("promotion_type")
		}
		s, isString := v.(string)
		if !isString {
			return nil, InvalidFormat("promotion_type", "string")
		}
		pt, err := model.ParsePromotionType(s)
		if err != nil {
			return nil, InvalidEnum("promotion_type", model.PromotionTypeValues())
		}
		p.PromotionType = pt
	}

	if v, ok := raw["discount_value"]; ok {
		if v == nil {
			p.DiscountValue = nil
		} else {
			value, err := parseMoney("discount_value", v)
			if err != nil {
				return nil, err
			}
			p.DiscountValue = &value
		}
	}

	if v, ok := raw["discount_type"]; ok {
		if v == nil {
			p.DiscountType = nil
		} else {
			s, isString := v.(string)
			if !isString {
				return nil, InvalidFormat("discount_type", "string")
			}
			dt, err := model.ParseDiscountType(s)
			if err != nil {
				return nil, InvalidEnum("discount_type", model.DiscountTypeValues())
			}
			p.DiscountType = &dt
		}
	}

	if v, ok := raw["start_date"]; ok && v != nil {
		t, err := parseTimestampField("start_date", v)
		if err != nil {
			return nil, err
		}
		p.StartDate = t
	}

	if v, ok := raw["expiration_date"]; ok {
		if v == nil {
			return nil, MissingField("expiration_date")
		}
		t, err := parseTimestampField("expiration_date", v)
		if err != nil {
			return nil, err
		}
		p.ExpirationDate = t
	}

	if v, ok := raw["status"]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return nil, InvalidFormat("status", "string")
		}
		st, err := model.ParseStatus(s)
		if err != nil {
			return nil, InvalidEnum("status", model.StatusValues())
		}
		p.Status = st
	}

	// A discount needs both halves of the pair; which one is missing is structural.
	if p.PromotionType == model.PromotionTypeDiscount {
		if p.DiscountValue != nil && p.DiscountType == nil {
			return nil, MissingField("discount_type")
		}
		if p.DiscountType != nil && p.DiscountValue == nil {
			return nil, MissingField("discount_value")
		}
	}

	return p, nil
}

// ParseTimestamp accepts RFC 3339, naive ISO-8601 date-times and plain dates.
// Naive values are taken as UTC. dateOnly is set for the YYYY-MM-DD form.
func ParseTimestamp(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Microsecond), false, nil
		}
	}
	t, err = time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func parseProductName(v any) (string, error) {
	if v == nil {
		return "", MissingField("product_name")
	}
	name, ok := v.(string)
	if !ok {
		return "", InvalidFormat("product_name", "string")
	}
	if strings.TrimSpace(name) == "" {
		return "", MissingField("product_name")
	}
	if utf8.RuneCountInString(name) > maxProductNameLen {
		return "", InvalidFormat("product_name", "string of at most 255 characters")
	}
	return name, nil
}

func parseDescription(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	desc, ok := v.(string)
	if !ok {
		return nil, InvalidFormat("description", "string")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return nil, InvalidFormat("description", "string of at most 1024 characters")
	}
	return &desc, nil
}

func parseMoney(field string, v any) (decimal.Decimal, error) {
	const expected = "decimal number with at most 2 fractional digits"

	var (
		d   decimal.Decimal
		err error
	)
	switch n := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(n.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		d = decimal.NewFromFloat(n)
	case float32:
		d = decimal.NewFromFloat32(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case decimal.Decimal:
		d = n
	default:
		return decimal.Decimal{}, InvalidFormat(field, expected)
	}
	if err != nil {
		return decimal.Decimal{}, InvalidFormat(field, expected)
	}
	if exp := d.Exponent(); exp < minMoneyExponent || exp > maxMoneyExponent {
		return decimal.Decimal{}, InvalidFormat(field, expected)
	}
	if !d.Equal(d.Truncate(2)) || d.Abs().GreaterThanOrEqual(moneyLimit) {
		return decimal.Decimal{}, InvalidFormat(field, expected)
	}
	return d, nil
}

func parseTimestampField(field string, v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, InvalidFormat(field, "ISO-8601 timestamp")
	}
	t, _, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, InvalidFormat(field, "ISO-8601 timestamp")
	}
	return t, nil
}
