package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the caller identity carried by the X-Role header or role query parameter.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleSupplier      Role = "supplier"
	RoleManager       Role = "manager"
	RoleAdministrator Role = "administrator"
)

// ParseRole converts a literal into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleSupplier, RoleManager, RoleAdministrator:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// VisibleStatuses returns the statuses a role may see in listings.
// A nil result means every status, including deleted.
func (r Role) VisibleStatuses() []Status {
	switch r {
	case RoleCustomer:
		return []Status{StatusActive}
	case RoleSupplier:
		return []Status{StatusActive, StatusExpired}
	case RoleManager, RoleAdministrator:
		return nil
	}
	return []Status{StatusDraft, StatusActive, StatusExpired, StatusDeactivated}
}

// ListQuery is the DTO bound from GET /promotions query parameters.
type ListQuery struct {
	ProductName    string `query:"product_name" validate:"max=255"`
	Q              string `query:"q" validate:"max=255"`
	Status         string `query:"status" validate:"omitempty,oneof=draft active expired deactivated deleted"`
	PromotionType  string `query:"promotion_type" validate:"omitempty,oneof=discount other"`
	DiscountType   string `query:"discount_type" validate:"omitempty,oneof=amount percent"`
	ExpirationDate string `query:"expiration_date" validate:"omitempty,timestamp"`
	StartDate      string `query:"start_date" validate:"omitempty,timestamp"`
	EndDate        string `query:"end_date" validate:"omitempty,timestamp"`
	Role           string `query:"role" validate:"omitempty,oneof=customer supplier manager administrator"`
}

// Filter is the single listing predicate: an optional visibility tier AND explicit clauses.
// Zero-valued clauses do not constrain the result.
type Filter struct {
	Statuses        []Status // visibility tier; nil = any
	Status          *Status
	ProductName     string // case-insensitive substring
	Keyword         string // case-insensitive substring of name or description
	PromotionType   *PromotionType
	DiscountType    *DiscountType
	ExpiresOnBefore *time.Time
	StartsOnAfter   *time.Time
}

// Matches evaluates the filter against p in memory.
func (f Filter) Matches(p *Promotion) bool {
	if f.Statuses != nil && !containsStatus(f.Statuses, p.Status) {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.ProductName != "" && !containsFold(p.ProductName, f.ProductName) {
		return false
	}
	if f.Keyword != "" {
		inName := containsFold(p.ProductName, f.Keyword)
		inDesc := p.Description != nil && containsFold(*p.Description, f.Keyword)
		if !inName && !inDesc {
			return false
		}
	}
	if f.PromotionType != nil && p.PromotionType != *f.PromotionType {
		return false
	}
	if f.DiscountType != nil && (p.DiscountType == nil || *p.DiscountType != *f.DiscountType) {
		return false
	}
	if f.ExpiresOnBefore != nil && p.ExpirationDate.After(*f.ExpiresOnBefore) {
		return false
	}
	if f.StartsOnAfter != nil && p.StartDate.Before(*f.StartsOnAfter) {
		return false
	}
	return true
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
