package validator

import (
	"fmt"
	"strings"
)

// StructuralKind classifies a payload that is syntactically or typologically wrong.
type StructuralKind string

const (
	KindMissingField  StructuralKind = "missing_field"
	KindInvalidFormat StructuralKind = "invalid_format"
	KindInvalidEnum   StructuralKind = "invalid_enum"
)

// StructuralError is returned by ParsePromotion when a field is absent or of the wrong shape.
type StructuralError struct {
	Kind     StructuralKind
	Field    string
	Expected string   // InvalidFormat only
	Allowed  []string // InvalidEnum only
}

func (e *StructuralError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing required field: %s", e.Field)
	case KindInvalidFormat:
		return fmt.Sprintf("invalid format for %s: expected %s", e.Field, e.Expected)
	case KindInvalidEnum:
		return fmt.Sprintf("invalid value for %s: must be one of %s", e.Field, strings.Join(e.Allowed, ", "))
	}
	return "invalid field: " + e.Field
}

// MissingField reports an absent required field.
func MissingField(field string) *StructuralError {
	return &StructuralError{Kind: KindMissingField, Field: field}
}

// InvalidFormat reports a value that cannot be coerced to the declared type.
func InvalidFormat(field, expected string) *StructuralError {
	return &StructuralError{Kind: KindInvalidFormat, Field: field, Expected: expected}
}

// InvalidEnum reports a literal outside the enum's allowed values.
func InvalidEnum(field string, allowed []string) *StructuralError {
	return &StructuralError{Kind: KindInvalidEnum, Field: field, Allowed: allowed}
}

// Rule names a business invariant.
type Rule string

const (
	RulePriceNotPositive                Rule = "PriceNotPositive"
	RuleDiscountExceedsPrice            Rule = "DiscountExceedsPrice"
	RulePercentOutOfRange               Rule = "PercentOutOfRange"
	RuleInvalidDateOrder                Rule = "InvalidDateOrder"
	RuleDiscountFieldsOnNonDiscountType Rule = "DiscountFieldsOnNonDiscountType"
	RuleInvalidStatusTransition         Rule = "InvalidStatusTransition"
)

// RuleViolation is a well-formed but semantically invalid promotion.
type RuleViolation struct {
	Rule   Rule
	Fields []string
	Msg    string
}

func (e *RuleViolation) Error() string {
	return e.Msg
}

func violation(rule Rule, msg string, fields ...string) *RuleViolation {
	return &RuleViolation{Rule: rule, Fields: fields, Msg: msg}
}
