package service

import "errors"

var (
	// ErrPromotionExists is returned when another non-deleted promotion already uses the product name
	ErrPromotionExists = errors.New("promotion with this product name already exists")

	// ErrPromotionNotFound is returned when a promotion cannot be found
	ErrPromotionNotFound = errors.New("promotion not found")

	// ErrCannotDeleteActive is returned when deleting a promotion that is still active
	ErrCannotDeleteActive = errors.New("cannot delete active promotion; deactivate it first")

	// ErrAuthenticationRequired is returned when the caller supplied no role at all
	ErrAuthenticationRequired = errors.New("authentication required: X-Role header is missing")

	// ErrForbidden is returned when the caller's role may not perform the operation
	ErrForbidden = errors.New("administrator privileges required")

	// ErrInvalidRole is returned when the caller supplied an unknown role
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
