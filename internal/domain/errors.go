package domain

import (
	"errors"
	"fmt"
)

// Machine-readable rule keys carried by validation errors.
const (
	RuleBelowMinimumOrder       = "BelowMinimumOrder"
	RuleUnsupportedDeliveryArea = "UnsupportedDeliveryArea"
	RuleCashPaymentNotAccepted  = "CashPaymentNotAccepted"
	RuleInvalidQuantity         = "InvalidQuantity"
	RuleInvalidStatusTransition = "InvalidStatusTransition"
	RuleAddressArchived         = "AddressArchived"
	RuleEmptyCart               = "EmptyCart"
	RuleEmptyMessage            = "EmptyMessage"
)

// ValidationError covers caller-fixable input and business-rule violations.
// Rule is a stable key clients can branch on.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func NewValidationError(rule, message string) *ValidationError {
	return &ValidationError{Rule: rule, Message: message}
}

type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func NewNotFoundError(entity string) *NotFoundError {
	return &NotFoundError{Entity: entity}
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// ErrOrderArchived guards the archived-immutability invariant: no status
// change and no chat message once an order is archived.
var ErrOrderArchived = NewConflictError("order is archived")

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
