package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/promotion-service/internal/events"
	"github.com/fairyhunter13/promotion-service/internal/model"
	"github.com/fairyhunter13/promotion-service/internal/validator"
)

// PromotionRepositoryInterface defines the interface for promotion data access.
type PromotionRepositoryInterface interface {
	Insert(ctx context.Context, p *model.Promotion) error
	GetByID(ctx context.Context, id int64) (*model.Promotion, error)
	Update(ctx context.Context, p *model.Promotion) error
	NameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	List(ctx context.Context, filter model.Filter) ([]*model.Promotion, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// EventPublisher emits promotion lifecycle events after a mutation is committed.
type EventPublisher interface {
	Publish(ctx context.Context, event events.PromotionEvent) error
}

// OperationRecorder counts operation outcomes.
type OperationRecorder interface {
	RecordOperation(operation, outcome string)
}

// PromotionService sequences authorization, validation, the duplicate-name check and
// persistence for every promotion operation.
type PromotionService struct {
	repo      PromotionRepositoryInterface
	publisher EventPublisher
	recorder  OperationRecorder
	now       func() time.Time
}

// Option configures a PromotionService.
type Option func(*PromotionService)

// WithClock replaces time.Now. Primarily used for testing.
func WithClock(now func() time.Time) Option {
	return func(s *PromotionService) { s.now = now }
}

// WithPublisher enables lifecycle events.
func WithPublisher(p EventPublisher) Option {
	return func(s *PromotionService) { s.publisher = p }
}

// WithRecorder enables operation outcome metrics.
func WithRecorder(r OperationRecorder) Option {
	return func(s *PromotionService) { s.recorder = r }
}

// NewPromotionService creates a new PromotionService backed by the given repository.
func NewPromotionService(repo PromotionRepositoryInterface, opts ...Option) *PromotionService {
	s := &PromotionService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates raw fields and stores a new promotion.
// Returns:
//   - ErrAuthenticationRequired / ErrForbidden for a missing or non-administrator role
//   - *validator.StructuralError when the payload is malformed
//   - *validator.RuleViolation when a business rule fails
//   - ErrPromotionExists when the product name is taken
func (s *PromotionService) Create(ctx context.Context, role string, raw map[string]any) (p *model.Promotion, err error) {
	defer func() { s.record("create", err) }()

	if err := AuthorizeAdministrator(role); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrInvalidRequest
	}

	now := s.clock()
	p, err = validator.ParsePromotion(raw, nil, now)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateInitialStatus(p.Status); err != nil {
		return nil, err
	}
	if err := validator.ValidateBusinessRules(p); err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, p.ProductName, 0); err != nil {
		return nil, err
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrPromotionExists) {
			return nil, ErrPromotionExists
		}
		return nil, fmt.Errorf("insert promotion: %w", err)
	}

	log.Info().
		Int64("promotion_id", p.ID).
		Str("product_name", p.ProductName).
		Msg("promotion created")
	s.publish(ctx, events.TypeCreated, p, nil)

	return p, nil
}

// Get retrieves a promotion by id. Soft-deleted promotions are still returned.
// Returns ErrPromotionNotFound if the id was never assigned.
func (s *PromotionService) Get(ctx context.Context, id int64) (*model.Promotion, error) {
	p, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPromotionNotFound
	}
	return p, nil
}

// Update applies a partial change and re-validates the merged promotion as a whole.
// Soft-deleted promotions are reported as ErrPromotionNotFound.
func (s *PromotionService) Update(ctx context.Context, role string, id int64, raw map[string]any) (p *model.Promotion, err error) {
	defer func() { s.record("update", err) }()

	if err := AuthorizeAdministrator(role); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrInvalidRequest
	}

	current, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status == model.StatusDeleted {
		return nil, ErrPromotionNotFound
	}

	now := s.clock()
	p, err = validator.ParsePromotion(raw, current, now)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateBusinessRules(p); err != nil {
		return nil, err
	}
	if err := validator.ValidateTransition(current.Status, p.Status); err != nil {
		return nil, err
	}
	if p.ProductName != current.ProductName {
		if err := s.ensureNameAvailable(ctx, p.ProductName, id); err != nil {
			return nil, err
		}
	}

	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrPromotionExists) || errors.Is(err, ErrPromotionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update promotion: %w", err)
	}

	log.Info().
		Int64("promotion_id", p.ID).
		Str("product_name", p.ProductName).
		Str("status", string(p.Status)).
		Msg("promotion updated")
	s.publish(ctx, events.TypeUpdated, p, nil)

	return p, nil
}

// Delete soft-deletes a promotion by setting its status to deleted.
// Deleting an already deleted promotion succeeds without changes.
// Returns ErrCannotDeleteActive for active promotions.
func (s *PromotionService) Delete(ctx context.Context, role string, id int64) (err error) {
	defer func() { s.record("delete", err) }()

	if err := AuthorizeAdministrator(role); err != nil {
		return err
	}

	current, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrPromotionNotFound
	}
	switch current.Status {
	case model.StatusDeleted:
		return nil
	case model.StatusActive:
		return ErrCannotDeleteActive
	}

	current.Status = model.StatusDeleted
	current.UpdatedAt = s.clock()
	if err := s.repo.Update(ctx, current); err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return err
		}
		return fmt.Errorf("delete promotion: %w", err)
	}

	log.Info().
		Int64("promotion_id", current.ID).
		Str("product_name", current.ProductName).
		Msg("promotion deleted")
	s.publish(ctx, events.TypeDeleted, current, nil)

	return nil
}

// Duplicate copies a promotion, applies overrides and stores the result as a new draft.
// Without a product_name override the copy is named "<source>_copy_<timestamp>".
// A status override is ignored.
func (s *PromotionService) Duplicate(ctx context.Context, role string, id int64, overrides map[string]any) (p *model.Promotion, err error) {
	defer func() { s.record("duplicate", err) }()

	if err := AuthorizeAdministrator(role); err != nil {
		return nil, err
	}

	source, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if source == nil || source.Status == model.StatusDeleted {
		return nil, ErrPromotionNotFound
	}

	now := s.clock()
	fields := make(map[string]any, len(overrides)+1)
	for k, v := range overrides {
		fields[k] = v
	}
	if _, ok := fields["product_name"]; !ok {
		fields["product_name"] = copyName(source.ProductName, now)
	}
	// Copies always start as drafts, so a status override is never parsed.
	delete(fields, "status")

	p, err = validator.ParsePromotion(fields, source, now)
	if err != nil {
		return nil, err
	}
	p.ID = 0
	p.Status = model.StatusDraft
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := validator.ValidateBusinessRules(p); err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, p.ProductName, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrPromotionExists) {
			return nil, ErrPromotionExists
		}
		return nil, fmt.Errorf("insert duplicated promotion: %w", err)
	}

	log.Info().
		Int64("promotion_id", p.ID).
		Int64("source_id", source.ID).
		Str("product_name", p.ProductName).
		Msg("promotion duplicated")
	s.publish(ctx, events.TypeDuplicated, p, &source.ID)

	return p, nil
}

// List returns the promotions visible to role that match every clause of query.
// An empty role lists everything except deleted promotions.
func (s *PromotionService) List(ctx context.Context, role string, query model.ListQuery) ([]*model.Promotion, error) {
	filter, err := BuildFilter(role, query)
	if err != nil {
		return nil, err
	}

	if err := s.expireOverdue(ctx); err != nil {
		return nil, err
	}

	promos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return promos, nil
}

// BuildFilter composes the visibility tier of role with the explicit query clauses.
// Returns ErrInvalidRole for unknown roles and *validator.StructuralError for bad values.
func BuildFilter(role string, query model.ListQuery) (model.Filter, error) {
	var f model.Filter

	if query.Role != "" {
		role = query.Role
	}
	if role != "" {
		r, err := model.ParseRole(role)
		if err != nil {
			return f, ErrInvalidRole
		}
		f.Statuses = r.VisibleStatuses()
	} else {
		f.Statuses = model.Role("").VisibleStatuses()
	}

	f.ProductName = query.ProductName
	f.Keyword = query.Q

	if query.Status != "" {
		st, err := model.ParseStatus(query.Status)
		if err != nil {
			return f, validator.InvalidEnum("status", model.StatusValues())
		}
		f.Status = &st
	}
	if query.PromotionType != "" {
		pt, err := model.ParsePromotionType(query.PromotionType)
		if err != nil {
			return f, validator.InvalidEnum("promotion_type", model.PromotionTypeValues())
		}
		f.PromotionType = &pt
	}
	if query.DiscountType != "" {
		dt, err := model.ParseDiscountType(query.DiscountType)
		if err != nil {
			return f, validator.InvalidEnum("discount_type", model.DiscountTypeValues())
		}
		f.DiscountType = &dt
	}

	for field, value := range map[string]string{
		"expiration_date": query.ExpirationDate,
		"end_date":        query.EndDate,
	} {
		if value == "" {
			continue
		}
		t, dateOnly, err := validator.ParseTimestamp(value)
		if err != nil {
			return f, validator.InvalidFormat(field, "YYYY-MM-DD or ISO-8601 timestamp")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Microsecond)
		}
		if f.ExpiresOnBefore == nil || t.Before(*f.ExpiresOnBefore) {
			f.ExpiresOnBefore = &t
		}
	}
	if query.StartDate != "" {
		t, _, err := validator.ParseTimestamp(query.StartDate)
		if err != nil {
			return f, validator.InvalidFormat("start_date", "YYYY-MM-DD or ISO-8601 timestamp")
		}
		f.StartsOnAfter = &t
	}

	return f, nil
}

// lookup applies lazy expiry and then fetches the promotion; nil means not found.
func (s *PromotionService) lookup(ctx context.Context, id int64) (*model.Promotion, error) {
	if err := s.expireOverdue(ctx); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	return p, nil
}

func (s *PromotionService) expireOverdue(ctx context.Context) error {
	n, err := s.repo.ExpireOverdue(ctx, s.clock())
	if err != nil {
		return fmt.Errorf("expire overdue promotions: %w", err)
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("expired overdue promotions")
	}
	return nil
}

func (s *PromotionService) ensureNameAvailable(ctx context.Context, name string, excludeID int64) error {
	exists, err := s.repo.NameExists(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("check product name: %w", err)
	}
	if exists {
		return ErrPromotionExists
	}
	return nil
}

func (s *PromotionService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *PromotionService) publish(ctx context.Context, t events.Type, p *model.Promotion, sourceID *int64) {
	if s.publisher == nil {
		return
	}
	event := events.NewPromotionEvent(t, p, s.clock())
	event.SourceID = sourceID
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(t)).
			Int64("promotion_id", p.ID).
			Msg("failed to publish promotion event")
	}
}

func (s *PromotionService) record(operation string, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordOperation(operation, Outcome(err))
}

// Outcome classifies an operation result into a stable label.
func Outcome(err error) string {
	var structural *validator.StructuralError
	var rule *validator.RuleViolation
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAuthenticationRequired):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidRequest), errors.As(err, &structural):
		return "structural"
	case errors.As(err, &rule):
		return "business_rule"
	case errors.Is(err, ErrPromotionExists), errors.Is(err, ErrCannotDeleteActive):
		return "conflict"
	case errors.Is(err, ErrPromotionNotFound):
		return "not_found"
	}
	return "error"
}

// AuthorizeAdministrator returns ErrAuthenticationRequired for an empty role and
// ErrForbidden for anything other than an administrator.
func AuthorizeAdministrator(role string) error {
	if role == "" {
		return ErrAuthenticationRequired
	}
	if model.Role(role) != model.RoleAdministrator {
		return ErrForbidden
	}
	return nil
}

func copyName(source string, now time.Time) string {
	suffix := "_copy_" + now.Format("20060102_150405")
	limit := 255 - len(suffix)
	if utf8.RuneCountInString(source) > limit {
		source = string([]rune(source)[:limit])
	}
	return source + suffix
}
