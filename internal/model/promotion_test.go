package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func discount(price string, value string, dt DiscountType) *Promotion {
	return &Promotion{
		OriginalPrice: decimal.RequireFromString(price),
		PromotionType: PromotionTypeDiscount,
		DiscountValue: dec(value),
		DiscountType:  &dt,
	}
}

func TestDiscountedPrice(t *testing.T) {
	testCases := []struct {
		name string
		p    *Promotion
		want string
	}{
		{name: "percent", p: discount("1000", "10", DiscountTypePercent), want: "900"},
		{name: "fractional_percent", p: discount("19.99", "15", DiscountTypePercent), want: "16.9915"},
		{name: "amount", p: discount("100", "25.50", DiscountTypeAmount), want: "74.5"},
		{name: "amount_whole_price", p: discount("100", "100", DiscountTypeAmount), want: "0"},
		{name: "amount_floors_at_zero", p: discount("100", "150", DiscountTypeAmount), want: "0"},
		{name: "percent_floors_at_zero", p: discount("100", "120", DiscountTypePercent), want: "0"},
		{name: "zero_percent", p: discount("50", "0", DiscountTypePercent), want: "50"},
		{
			name: "other_ignores_discount",
			p: &Promotion{
				OriginalPrice: decimal.RequireFromString("80"),
				PromotionType: PromotionTypeOther,
			},
			want: "80",
		},
		{
			name: "discount_without_pair",
			p: &Promotion{
				OriginalPrice: decimal.RequireFromString("80"),
				PromotionType: PromotionTypeDiscount,
			},
			want: "80",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.p.DiscountedPrice()
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestDiscountedPrice_NeverAboveOriginal(t *testing.T) {
	for _, value := range []string{"0", "0.01", "1", "33.33", "50", "99.99", "100"} {
		for _, dt := range []DiscountType{DiscountTypeAmount, DiscountTypePercent} {
			p := discount("100", value, dt)
			got := p.DiscountedPrice()
			assert.False(t, got.IsNegative(), "%s %s", value, dt)
			assert.True(t, got.LessThanOrEqual(p.OriginalPrice), "%s %s", value, dt)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	desc := "desc"
	p := discount("100", "10", DiscountTypeAmount)
	p.Description = &desc

	c := p.Clone()
	*c.Description = "changed"
	*c.DiscountValue = decimal.NewFromInt(99)
	*c.DiscountType = DiscountTypePercent

	assert.Equal(t, "desc", *p.Description)
	assert.Equal(t, "10", p.DiscountValue.String())
	assert.Equal(t, DiscountTypeAmount, *p.DiscountType)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:       {StatusDraft, StatusActive, StatusDeactivated, StatusDeleted},
		StatusActive:      {StatusActive, StatusExpired, StatusDeactivated, StatusDeleted},
		StatusExpired:     {StatusExpired, StatusDeleted},
		StatusDeactivated: {StatusDeactivated, StatusDeleted},
		StatusDeleted:     {StatusDeleted},
	}

	for _, from := range StatusValues() {
		for _, to := range StatusValues() {
			want := false
			for _, s := range allowed[Status(from)] {
				if s == Status(to) {
					want = true
				}
			}
			assert.Equal(t, want, Status(from).CanTransitionTo(Status(to)), "%s -> %s", from, to)
		}
	}
}

func TestParseEnums(t *testing.T) {
	pt, err := ParsePromotionType("other")
	require.NoError(t, err)
	assert.Equal(t, PromotionTypeOther, pt)
	_, err = ParsePromotionType("Other")
	assert.Error(t, err, "enum literals are case-sensitive")

	dt, err := ParseDiscountType("amount")
	require.NoError(t, err)
	assert.Equal(t, DiscountTypeAmount, dt)
	_, err = ParseDiscountType("fixed")
	assert.Error(t, err)

	st, err := ParseStatus("deactivated")
	require.NoError(t, err)
	assert.Equal(t, StatusDeactivated, st)
	_, err = ParseStatus("")
	assert.Error(t, err)

	r, err := ParseRole("manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)
	_, err = ParseRole("guest")
	assert.Error(t, err)
}

func TestNewPromotionResponse(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := discount("19.99", "15", DiscountTypePercent)
	p.ID = 3
	p.ProductName = "Headphones"
	p.StartDate = at
	p.ExpirationDate = time.Date(2025, 6, 30, 12, 0, 0, 500000000, time.FixedZone("WIB", 7*3600))
	p.Status = StatusActive
	p.CreatedAt = at
	p.UpdatedAt = at

	resp := NewPromotionResponse(p)

	assert.Equal(t, "19.99", resp.OriginalPrice.String())
	assert.Equal(t, "15.00", resp.DiscountValue.String())
	assert.Equal(t, "16.99", resp.DiscountedPrice.String(), "rounded to two places on output")
	assert.Equal(t, "percent", *resp.DiscountType)
	assert.Equal(t, "2025-01-01T00:00:00", resp.StartDate)
	assert.Equal(t, "2025-06-30T05:00:00.5", resp.ExpirationDate, "rendered in UTC")
	assert.Nil(t, resp.Description)
}

func TestNewPromotionResponse_Nulls(t *testing.T) {
	p := &Promotion{
		OriginalPrice: decimal.RequireFromString("5"),
		PromotionType: PromotionTypeOther,
	}

	resp := NewPromotionResponse(p)

	assert.Nil(t, resp.DiscountValue)
	assert.Nil(t, resp.DiscountType)
	assert.Equal(t, "5.00", resp.DiscountedPrice.String())
}

func TestNewPromotionResponses_Empty(t *testing.T) {
	out := NewPromotionResponses(nil)

	require.NotNil(t, out)
	assert.Len(t, out, 0)
}
