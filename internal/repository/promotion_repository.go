package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/promotion-service/internal/model"
	"github.com/fairyhunter13/promotion-service/internal/service"
	"github.com/fairyhunter13/promotion-service/pkg/database"
)

const promotionColumns = `id, product_name, description, original_price, promotion_type,
	discount_value, discount_type, start_date, expiration_date, status, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PromotionRepository provides data access for promotions using pgx.
type PromotionRepository struct {
	pool database.TxQuerier
}

// NewPromotionRepository creates a new PromotionRepository with the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// NewPromotionRepositoryWithPool creates a new PromotionRepository with a custom pool interface.
// This is primarily used for testing.
func NewPromotionRepositoryWithPool(pool database.TxQuerier) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// Insert stores a new promotion and sets its generated id.
// Returns service.ErrPromotionExists if a live promotion already uses the product name.
func (r *PromotionRepository) Insert(ctx context.Context, p *model.Promotion) error {
	query := `INSERT INTO promotions (product_name, description, original_price, promotion_type,
		discount_value, discount_type, start_date, expiration_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		p.ProductName,
		p.Description,
		p.OriginalPrice,
		string(p.PromotionType),
		nullDecimal(p.DiscountValue),
		discountTypeArg(p.DiscountType),
		p.StartDate,
		p.ExpirationDate,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrPromotionExists
		}
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

// GetByID retrieves a promotion by id, including soft-deleted ones.
// Returns nil, nil if the promotion is not found (service layer handles this).
func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	p, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promotion %d: %w", id, err)
	}
	return p, nil
}

// Update overwrites every mutable column of an existing promotion.
// Returns service.ErrPromotionNotFound if no row has the id.
func (r *PromotionRepository) Update(ctx context.Context, p *model.Promotion) error {
	query := `UPDATE promotions SET product_name = $2, description = $3, original_price = $4,
		promotion_type = $5, discount_value = $6, discount_type = $7, start_date = $8,
		expiration_date = $9, status = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		p.ProductName,
		p.Description,
		p.OriginalPrice,
		string(p.PromotionType),
		nullDecimal(p.DiscountValue),
		discountTypeArg(p.DiscountType),
		p.StartDate,
		p.ExpirationDate,
		string(p.Status),
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrPromotionExists
		}
		return fmt.Errorf("update promotion %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrPromotionNotFound
	}
	return nil
}

// NameExists reports whether a non-deleted promotion other than excludeID uses name.
func (r *PromotionRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM promotions WHERE product_name = $1 AND status <> 'deleted' AND id <> $2
	)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product name %s: %w", name, err)
	}
	return exists, nil
}

// List returns the promotions matching filter ordered by id.
// On success, returns an empty slice (not nil) when nothing matches.
func (r *PromotionRepository) List(ctx context.Context, filter model.Filter) ([]*model.Promotion, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + promotionColumns + ` FROM promotions` + where + ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	promos := []*model.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promos = append(promos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion rows: %w", err)
	}

	return promos, nil
}

// ExpireOverdue flips every active promotion whose expiration date is before now to expired.
func (r *PromotionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE promotions SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND expiration_date < $1`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue promotions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// buildWhere renders filter as a parameterized WHERE clause.
func buildWhere(f model.Filter) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Statuses != nil {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		clauses = append(clauses, "status = ANY("+arg(statuses)+")")
	}
	if f.Status != nil {
		clauses = append(clauses, "status = "+arg(string(*f.Status)))
	}
	if f.ProductName != "" {
		clauses = append(clauses, "product_name ILIKE "+arg(likePattern(f.ProductName)))
	}
	if f.Keyword != "" {
		n := arg(likePattern(f.Keyword))
		clauses = append(clauses, "(product_name ILIKE "+n+" OR description ILIKE "+n+")")
	}
	if f.PromotionType != nil {
		clauses = append(clauses, "promotion_type = "+arg(string(*f.PromotionType)))
	}
	if f.DiscountType != nil {
		clauses = append(clauses, "discount_type = "+arg(string(*f.DiscountType)))
	}
	if f.ExpiresOnBefore != nil {
		clauses = append(clauses, "expiration_date <= "+arg(*f.ExpiresOnBefore))
	}
	if f.StartsOnAfter != nil {
		clauses = append(clauses, "start_date >= "+arg(*f.StartsOnAfter))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanPromotion(row rowScanner) (*model.Promotion, error) {
	var (
		p             model.Promotion
		promotionType string
		status        string
		discountValue decimal.NullDecimal
		discountType  *string
	)
	err := row.Scan(
		&p.ID,
		&p.ProductName,
		&p.Description,
		&p.OriginalPrice,
		&promotionType,
		&discountValue,
		&discountType,
		&p.StartDate,
		&p.ExpirationDate,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PromotionType = model.PromotionType(promotionType)
	p.Status = model.Status(status)
	if discountValue.Valid {
		v := discountValue.Decimal
		p.DiscountValue = &v
	}
	if discountType != nil {
		dt := model.DiscountType(*discountType)
		p.DiscountType = &dt
	}
	p.StartDate = p.StartDate.UTC()
	p.ExpirationDate = p.ExpirationDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	return &p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func discountTypeArg(dt *model.DiscountType) *string {
	if dt == nil {
		return nil
	}
	s := string(*dt)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
