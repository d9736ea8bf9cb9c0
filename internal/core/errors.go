package core

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed ledger errors through errors.Is.
var (
	ErrDuplicateTenant = errors.New("duplicate tenant")
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// DuplicateTenantError is returned when a tenant name is already in the ledger.
type DuplicateTenantError struct {
	Name string
}

func (e *DuplicateTenantError) Error() string {
	return fmt.Sprintf("tenant %q already exists", e.Name)
}

func (e *DuplicateTenantError) Is(target error) bool {
	return target == ErrDuplicateTenant
}

// TenantNotFoundError is returned when no tenant has the given name.
type TenantNotFoundError struct {
	Name string
}

func (e *TenantNotFoundError) Error() string {
	return fmt.Sprintf("tenant %q not found", e.Name)
}

func (e *TenantNotFoundError) Is(target error) bool {
	return target == ErrTenantNotFound
}

// InvalidAmountError is returned for a payment amount that is not positive.
type InvalidAmountError struct {
	Amount Money
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid payment amount %s: must be greater than zero", e.Amount)
}

func (e *InvalidAmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}
