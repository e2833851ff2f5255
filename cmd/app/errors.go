package main

import (
	"fmt"
	"net/http"

	"github.com/clearledger/clearledger/internal/domain"
)

// serviceError carries a ledger error received over the wire. Unwrap
// restores the domain sentinel, so CLI code can errors.Is against the same
// taxonomy as in-process callers.
type serviceError struct {
	code    int
	message string
	kind    error
}

func (e *serviceError) Error() string { return e.message }
func (e *serviceError) Unwrap() error { return e.kind }

// newServiceError maps a wire code onto the ledger error taxonomy. Both
// surfaces are covered: HTTP statuses (404/409/422) and the JSON-RPC
// application codes that mirror them (40400/40900/42200).
func newServiceError(code int, message string) error {
	var kind error
	switch code {
	case http.StatusNotFound, 40400:
		kind = domain.ErrNotFound
	case http.StatusConflict, 40900:
		kind = domain.ErrInsufficientFunds
	case http.StatusUnprocessableEntity, 42200:
		kind = domain.ErrInvalidState
	default:
		return fmt.Errorf("ledger error (%d): %s", code, message)
	}
	return &serviceError{code: code, message: message, kind: kind}
}
