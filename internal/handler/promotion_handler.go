package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/promotion-service/internal/model"
	"github.com/fairyhunter13/promotion-service/internal/service"
	pvalidator "github.com/fairyhunter13/promotion-service/internal/validator"
)

// HeaderRole carries the caller's role.
const HeaderRole = "X-Role"

// PromotionServiceInterface defines the interface for promotion business logic.
type PromotionServiceInterface interface {
	Create(ctx context.Context, role string, raw map[string]any) (*model.Promotion, error)
	Get(ctx context.Context, id int64) (*model.Promotion, error)
	Update(ctx context.Context, role string, id int64, raw map[string]any) (*model.Promotion, error)
	Delete(ctx context.Context, role string, id int64) error
	Duplicate(ctx context.Context, role string, id int64, overrides map[string]any) (*model.Promotion, error)
	List(ctx context.Context, role string, query model.ListQuery) ([]*model.Promotion, error)
}

// PromotionHandler handles HTTP requests for promotion operations.
type PromotionHandler struct {
	service   PromotionServiceInterface
	validator *validator.Validate
}

// NewPromotionHandler creates a new PromotionHandler with the given service and validator.
func NewPromotionHandler(svc PromotionServiceInterface, v *validator.Validate) *PromotionHandler {
	return &PromotionHandler{service: svc, validator: v}
}

// Register mounts the promotion routes on r.
func (h *PromotionHandler) Register(r fiber.Router) {
	r.Get("/promotions", h.ListPromotions)
	r.Post("/promotions", h.CreatePromotion)
	r.Get("/promotions/:id", h.GetPromotion)
	r.Put("/promotions/:id", h.UpdatePromotion)
	r.Delete("/promotions/:id", h.DeletePromotion)
	r.Post("/promotions/:id/duplicate", h.DuplicatePromotion)
}

// CreatePromotion handles POST /promotions. The role is checked before the body is read.
func (h *PromotionHandler) CreatePromotion(c *fiber.Ctx) error {
	if err := service.AuthorizeAdministrator(c.Get(HeaderRole)); err != nil {
		return h.serviceError(c, err, "failed to create promotion")
	}
	if !c.Is("json") {
		return errorResponse(c, fiber.StatusUnsupportedMediaType, "Content-Type must be application/json")
	}
	raw, err := decodeObject(c.Body())
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	p, err := h.service.Create(c.Context(), c.Get(HeaderRole), raw)
	if err != nil {
		return h.serviceError(c, err, "failed to create promotion")
	}

	c.Location("/promotions/" + strconv.FormatInt(p.ID, 10))
	return c.Status(fiber.StatusCreated).JSON(model.NewPromotionResponse(p))
}

// GetPromotion handles GET /promotions/:id.
func (h *PromotionHandler) GetPromotion(c *fiber.Ctx) error {
	id, ok := promotionID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "invalid promotion id")
	}

	p, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.serviceError(c, err, "failed to get promotion")
	}
	return c.JSON(model.NewPromotionResponse(p))
}

// UpdatePromotion handles PUT /promotions/:id with a partial body.
func (h *PromotionHandler) UpdatePromotion(c *fiber.Ctx) error {
	if err := service.AuthorizeAdministrator(c.Get(HeaderRole)); err != nil {
		return h.serviceError(c, err, "failed to update promotion")
	}
	id, ok := promotionID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "invalid promotion id")
	}
	if !c.Is("json") {
		return errorResponse(c, fiber.StatusUnsupportedMediaType, "Content-Type must be application/json")
	}
	raw, err := decodeObject(c.Body())
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	p, err := h.service.Update(c.Context(), c.Get(HeaderRole), id, raw)
	if err != nil {
		return h.serviceError(c, err, "failed to update promotion")
	}
	return c.JSON(model.NewPromotionResponse(p))
}

// DeletePromotion handles DELETE /promotions/:id.
func (h *PromotionHandler) DeletePromotion(c *fiber.Ctx) error {
	if err := service.AuthorizeAdministrator(c.Get(HeaderRole)); err != nil {
		return h.serviceError(c, err, "failed to delete promotion")
	}
	id, ok := promotionID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "invalid promotion id")
	}

	if err := h.service.Delete(c.Context(), c.Get(HeaderRole), id); err != nil {
		return h.serviceError(c, err, "failed to delete promotion")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DuplicatePromotion handles POST /promotions/:id/duplicate. The body is an optional
// object of overrides.
func (h *PromotionHandler) DuplicatePromotion(c *fiber.Ctx) error {
	if err := service.AuthorizeAdministrator(c.Get(HeaderRole)); err != nil {
		return h.serviceError(c, err, "failed to duplicate promotion")
	}
	id, ok := promotionID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "invalid promotion id")
	}

	var overrides map[string]any
	if len(bytes.TrimSpace(c.Body())) > 0 {
		var err error
		if overrides, err = decodeObject(c.Body()); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, err.Error())
		}
	}

	p, err := h.service.Duplicate(c.Context(), c.Get(HeaderRole), id, overrides)
	if err != nil {
		return h.serviceError(c, err, "failed to duplicate promotion")
	}

	c.Location("/promotions/" + strconv.FormatInt(p.ID, 10))
	return c.Status(fiber.StatusCreated).JSON(model.NewPromotionResponse(p))
}

// ListPromotions handles GET /promotions.
func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	var q model.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(q); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, pvalidator.FormatQueryError(err))
	}

	promos, err := h.service.List(c.Context(), c.Get(HeaderRole), q)
	if err != nil {
		return h.serviceError(c, err, "failed to list promotions")
	}
	return c.JSON(model.NewPromotionResponses(promos))
}

// serviceError maps service and validator errors to status codes.
func (h *PromotionHandler) serviceError(c *fiber.Ctx, err error, msg string) error {
	var structural *pvalidator.StructuralError
	if errors.As(err, &structural) {
		body := errorBody(fiber.StatusBadRequest, structural.Error())
		body["field"] = structural.Field
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	var rule *pvalidator.RuleViolation
	if errors.As(err, &rule) {
		body := errorBody(fiber.StatusUnprocessableEntity, rule.Error())
		body["rule"] = rule.Rule
		body["fields"] = rule.Fields
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	}

	switch {
	case errors.Is(err, service.ErrAuthenticationRequired):
		return errorResponse(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return errorResponse(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidRequest):
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPromotionNotFound):
		return errorResponse(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPromotionExists), errors.Is(err, service.ErrCannotDeleteActive):
		return errorResponse(c, fiber.StatusConflict, err.Error())
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("path", c.Path()).
		Msg(msg)
	return errorResponse(c, fiber.StatusInternalServerError, "internal server error")
}

func promotionID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

var errNotObject = errors.New("request body must be a JSON object")

// decodeObject parses a JSON object keeping numbers as json.Number so money keeps its
// exact decimal form.
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is empty")
		}
		return nil, errors.New("malformed JSON body")
	}
	if dec.More() {
		return nil, errors.New("malformed JSON body")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}
