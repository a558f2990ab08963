// Package services holds the application logic of the backoffice: list
// sessions over the storefront API, confirmed admin actions, and the
// storefront add-to-cart qualification flow.
//
// This file centralizes service-level error values. Translation into HTTP
// status codes happens in the handler layer.
package services

import "errors"

var (
	// ErrUnknownResource indicates that no list page is registered under the
	// requested name.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrProductNotFound is returned when the storefront product to add does
	// not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidQuantity is returned for a non-positive cart quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrIncompleteAnswers is returned when a questionnaire submission does
	// not answer every active question.
	ErrIncompleteAnswers = errors.New("every question must be answered")

	// ErrUnknownOption is returned when an answer names an option the
	// question does not have.
	ErrUnknownOption = errors.New("unknown answer option")
)
