package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/promotion-service/internal/model"
	"github.com/fairyhunter13/promotion-service/internal/repository"
	"github.com/fairyhunter13/promotion-service/internal/service"
	"github.com/fairyhunter13/promotion-service/internal/validator"
)

const admin = "administrator"

var scenarioNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newScenarioService() *service.PromotionService {
	return service.NewPromotionService(
		repository.NewMemoryRepository(),
		service.WithClock(func() time.Time { return scenarioNow }),
	)
}

// payload decodes a JSON literal the way the HTTP layer does.
func payload(t *testing.T, body string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var raw map[string]any
	require.NoError(t, dec.Decode(&raw))
	return raw
}

func requireRuleViolation(t *testing.T, err error, rule validator.Rule) {
	t.Helper()
	var rv *validator.RuleViolation
	require.True(t, errors.As(err, &rv), "expected a rule violation, got %v", err)
	assert.Equal(t, rule, rv.Rule)
}

func TestScenario_PercentDiscount(t *testing.T) {
	svc := newScenarioService()

	p, err := svc.Create(context.Background(), admin, payload(t, `{
		"product_name": "Black Friday Sale",
		"original_price": 100.0,
		"discount_value": 20.0,
		"discount_type": "percent",
		"promotion_type": "discount",
		"expiration_date": "2025-11-14T23:59:59"
	}`))
	require.NoError(t, err)

	resp := model.NewPromotionResponse(p)
	assert.Equal(t, json.Number("80.00"), resp.DiscountedPrice)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, "2025-01-01T00:00:00", resp.StartDate)
	assert.Equal(t, "2025-11-14T23:59:59", resp.ExpirationDate)
}

func TestScenario_AmountDiscount(t *testing.T) {
	svc := newScenarioService()

	p, err := svc.Create(context.Background(), admin, payload(t, `{
		"product_name": "Holiday Special",
		"original_price": 200.0,
		"discount_value": 50.0,
		"discount_type": "amount",
		"promotion_type": "discount",
		"expiration_date": "2025-12-31T23:59:59"
	}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("150.00"), model.NewPromotionResponse(p).DiscountedPrice)
}

func TestScenario_OtherPromotion(t *testing.T) {
	svc := newScenarioService()

	p, err := svc.Create(context.Background(), admin, payload(t, `{
		"product_name": "Flash Sale",
		"original_price": 99.99,
		"promotion_type": "other",
		"expiration_date": "2025-10-10T23:59:59"
	}`))
	require.NoError(t, err)

	resp := model.NewPromotionResponse(p)
	assert.Equal(t, json.Number("99.99"), resp.DiscountedPrice)
	assert.Nil(t, resp.DiscountValue)
	assert.Nil(t, resp.DiscountType)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"discount_value":null`)
}

func TestScenario_AmountExceedsPrice(t *testing.T) {
	svc := newScenarioService()

	_, err := svc.Create(context.Background(), admin, payload(t, `{
		"product_name": "Too Generous",
		"original_price": 100.0,
		"discount_value": 150.0,
		"discount_type": "amount",
		"promotion_type": "discount",
		"expiration_date": "2025-12-31T23:59:59"
	}`))

	requireRuleViolation(t, err, validator.RuleDiscountExceedsPrice)
}

func TestScenario_ExpirationNotAfterStart(t *testing.T) {
	svc := newScenarioService()

	for _, expiration := range []string{"2025-03-01T00:00:00", "2025-02-01T00:00:00"} {
		_, err := svc.Create(context.Background(), admin, payload(t, fmt.Sprintf(`{
			"product_name": "Backwards",
			"original_price": 10,
			"promotion_type": "other",
			"start_date": "2025-03-01T00:00:00",
			"expiration_date": %q
		}`, expiration)))

		requireRuleViolation(t, err, validator.RuleInvalidDateOrder)
	}
}

func TestScenario_DuplicateNameOfActivePromotion(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, payload(t, `{
		"product_name": "Spring Deal",
		"original_price": 50,
		"promotion_type": "other",
		"expiration_date": "2025-06-01T00:00:00"
	}`))
	require.NoError(t, err)
	_, err = svc.Update(ctx, admin, p.ID, map[string]any{"status": "active"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, payload(t, `{
		"product_name": "Spring Deal",
		"original_price": 75,
		"promotion_type": "other",
		"expiration_date": "2025-07-01T00:00:00"
	}`))

	assert.ErrorIs(t, err, service.ErrPromotionExists)
}

func TestScenario_DeletedNameCanBeReused(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()
	body := `{
		"product_name": "Reusable",
		"original_price": 5,
		"promotion_type": "other",
		"expiration_date": "2025-06-01T00:00:00"
	}`

	first, err := svc.Create(ctx, admin, payload(t, body))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, first.ID))

	second, err := svc.Create(ctx, admin, payload(t, body))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	deleted, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, deleted.Status)
}

func TestScenario_LazyExpiry(t *testing.T) {
	now := scenarioNow
	svc := service.NewPromotionService(
		repository.NewMemoryRepository(),
		service.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, payload(t, `{
		"product_name": "Short Lived",
		"original_price": 20,
		"promotion_type": "other",
		"expiration_date": "2025-01-02T00:00:00"
	}`))
	require.NoError(t, err)
	_, err = svc.Update(ctx, admin, p.ID, map[string]any{"status": "active"})
	require.NoError(t, err)

	now = scenarioNow.Add(48 * time.Hour)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)

	visible, err := svc.List(ctx, "customer", model.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, visible, "customers only see active promotions")

	visible, err = svc.List(ctx, "supplier", model.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestScenario_ListVisibilityAndFilters(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	create := func(name, body string) *model.Promotion {
		p, err := svc.Create(ctx, admin, payload(t, fmt.Sprintf(`{
			"product_name": %q,
			"original_price": 100,
			"expiration_date": "2025-09-30T00:00:00",
			%s
		}`, name, body)))
		require.NoError(t, err)
		return p
	}
	laptop := create("Laptop Deal", `"promotion_type": "discount", "discount_value": 10, "discount_type": "percent"`)
	phone := create("Phone Deal", `"promotion_type": "discount", "discount_value": 5, "discount_type": "amount"`)
	banner := create("Summer Banner", `"promotion_type": "other", "description": "laptop accessories"`)

	_, err := svc.Update(ctx, admin, laptop.ID, map[string]any{"status": "active"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, admin, banner.ID, map[string]any{"status": "deactivated"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, banner.ID))

	ids := func(promos []*model.Promotion) []int64 {
		out := []int64{}
		for _, p := range promos {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := svc.List(ctx, "", model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []int64{laptop.ID, phone.ID}, ids(all))

	managed, err := svc.List(ctx, "manager", model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []int64{laptop.ID, phone.ID, banner.ID}, ids(managed))

	byKeyword, err := svc.List(ctx, "administrator", model.ListQuery{Q: "LAPTOP"})
	require.NoError(t, err)
	assert.Equal(t, []int64{laptop.ID, banner.ID}, ids(byKeyword))

	byType, err := svc.List(ctx, "", model.ListQuery{DiscountType: "amount"})
	require.NoError(t, err)
	assert.Equal(t, []int64{phone.ID}, ids(byType))

	customer, err := svc.List(ctx, "customer", model.ListQuery{Status: "draft"})
	require.NoError(t, err)
	assert.Empty(t, customer, "explicit clauses cannot widen the visibility tier")
}

func TestScenario_DuplicateCreatesDraftCopy(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	source, err := svc.Create(ctx, admin, payload(t, `{
		"product_name": "Weekend Offer",
		"original_price": 40,
		"promotion_type": "discount",
		"discount_value": 25,
		"discount_type": "percent",
		"expiration_date": "2025-05-01T00:00:00"
	}`))
	require.NoError(t, err)
	_, err = svc.Update(ctx, admin, source.ID, map[string]any{"status": "active"})
	require.NoError(t, err)

	copied, err := svc.Duplicate(ctx, admin, source.ID, nil)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, "Weekend Offer_copy_20250101_000000", copied.ProductName)
	assert.Equal(t, model.StatusDraft, copied.Status)
	assert.True(t, decimal.NewFromInt(30).Equal(copied.DiscountedPrice()))

	_, err = svc.Duplicate(ctx, admin, source.ID, nil)
	assert.ErrorIs(t, err, service.ErrPromotionExists, "same second, same generated name")
}

func TestProperty_RepeatedReadsAgree(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, payload(t, `{
		"product_name": "Stable",
		"original_price": 33.33,
		"promotion_type": "discount",
		"discount_value": 33.33,
		"discount_type": "percent",
		"expiration_date": "2025-12-31T00:00:00"
	}`))
	require.NoError(t, err)

	first, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.NewPromotionResponse(first), model.NewPromotionResponse(again))
	}
}

func TestProperty_DiscountedPriceNeverNegative(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	testCases := []struct {
		price, value, kind string
	}{
		{"100", "100", "amount"},
		{"0.01", "0.01", "amount"},
		{"100", "100", "percent"},
		{"0.01", "99.99", "percent"},
		{"99999999.99", "100", "percent"},
		{"1", "0", "amount"},
	}

	for i, tc := range testCases {
		p, err := svc.Create(ctx, admin, map[string]any{
			"product_name":    fmt.Sprintf("Floor %d", i),
			"original_price":  json.Number(tc.price),
			"discount_value":  json.Number(tc.value),
			"discount_type":   tc.kind,
			"promotion_type":  "discount",
			"expiration_date": "2025-12-31T00:00:00",
		})
		require.NoError(t, err, "case %d", i)
		assert.False(t, p.DiscountedPrice().IsNegative(), "case %d", i)
		assert.False(t, p.DiscountedPrice().GreaterThan(p.OriginalPrice), "case %d", i)
	}
}

func TestProperty_SerializedPromotionParsesBack(t *testing.T) {
	svc := newScenarioService()

	p, err := svc.Create(context.Background(), admin, payload(t, `{
		"product_name": "Round Trip",
		"description": "exercise the wire format",
		"original_price": 12.5,
		"promotion_type": "discount",
		"discount_value": 2.25,
		"discount_type": "amount",
		"start_date": "2025-02-01T10:20:30.123456",
		"expiration_date": "2025-03-01T00:00:00"
	}`))
	require.NoError(t, err)

	out, err := json.Marshal(model.NewPromotionResponse(p))
	require.NoError(t, err)

	parsed, err := validator.ParsePromotion(payload(t, string(out)), nil, scenarioNow)
	require.NoError(t, err)

	assert.Equal(t, p.ProductName, parsed.ProductName)
	assert.Equal(t, p.Description, parsed.Description)
	assert.True(t, p.OriginalPrice.Equal(parsed.OriginalPrice))
	assert.True(t, p.DiscountValue.Equal(*parsed.DiscountValue))
	assert.Equal(t, p.DiscountType, parsed.DiscountType)
	assert.Equal(t, p.PromotionType, parsed.PromotionType)
	assert.True(t, p.StartDate.Equal(parsed.StartDate))
	assert.True(t, p.ExpirationDate.Equal(parsed.ExpirationDate))
	assert.Equal(t, p.Status, parsed.Status)
	assert.True(t, p.DiscountedPrice().Equal(parsed.DiscountedPrice()))
}

func TestProperty_PartialUpdateKeepsOtherFields(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, payload(t, `{
		"product_name": "Untouched",
		"description": "keep me",
		"original_price": 80,
		"promotion_type": "discount",
		"discount_value": 15,
		"discount_type": "amount",
		"expiration_date": "2025-08-01T00:00:00"
	}`))
	require.NoError(t, err)
	before := model.NewPromotionResponse(p)

	updated, err := svc.Update(ctx, admin, p.ID, payload(t, `{"status": "active"}`))
	require.NoError(t, err)
	after := model.NewPromotionResponse(updated)

	assert.Equal(t, "active", after.Status)
	after.Status = before.Status
	assert.Equal(t, before, after)
}

func TestProperty_SecondCreateWithSameNameConflicts(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()
	body := `{
		"product_name": "Once Only",
		"original_price": 10,
		"promotion_type": "other",
		"expiration_date": "2025-08-01T00:00:00"
	}`

	_, err := svc.Create(ctx, admin, payload(t, body))
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, payload(t, body))
	assert.ErrorIs(t, err, service.ErrPromotionExists)

	promos, err := svc.List(ctx, "manager", model.ListQuery{ProductName: "Once Only"})
	require.NoError(t, err)
	assert.Len(t, promos, 1)
}
