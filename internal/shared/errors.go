package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCompanyMissing occurs when a request carries no tenant context.
	ErrCompanyMissing = errors.New("company context missing")
	// ErrCrossCompany occurs when a referenced record belongs to another company.
	ErrCrossCompany = errors.New("record does not belong to your company")
)
