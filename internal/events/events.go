package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/promotion-service/internal/model"
)

// Type names a promotion lifecycle event.
type Type string

const (
	TypeCreated    Type = "promotion.created"
	TypeUpdated    Type = "promotion.updated"
	TypeDuplicated Type = "promotion.duplicated"
	TypeDeleted    Type = "promotion.deleted"
)

// PromotionEvent is published after a promotion mutation has been stored.
type PromotionEvent struct {
	EventID     string                   `json:"event_id"`
	Type        Type                     `json:"type"`
	PromotionID int64                    `json:"promotion_id"`
	SourceID    *int64                   `json:"source_id,omitempty"`
	Promotion   *model.PromotionResponse `json:"promotion"`
	OccurredAt  time.Time                `json:"occurred_at"`
}

// NewPromotionEvent builds an event carrying the serialized promotion.
func NewPromotionEvent(t Type, p *model.Promotion, at time.Time) PromotionEvent {
	return PromotionEvent{
		EventID:     uuid.NewString(),
		Type:        t,
		PromotionID: p.ID,
		Promotion:   model.NewPromotionResponse(p),
		OccurredAt:  at,
	}
}
