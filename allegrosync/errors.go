package allegrosync

import (
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// AuthError means the integration's credentials are unusable. The integration
// is deactivated when this is raised; callers must not reattempt the pass.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("allegro auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError means the order listing call failed entirely. No partial results
// accompany it; the pass is retryable.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("allegro fetch: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// CreationError wraps a failure from the invoice-creation path for one order.
// The message names the human order number so operators can find the order in
// the marketplace UI; the external id is kept for correlation.
type CreationError struct {
	ExternalOrderId string
	OrderNumber     string
	Err             error
}

func (e *CreationError) Error() string {
	number := e.OrderNumber
	if number == "" {
		number = e.ExternalOrderId
	}
	return fmt.Sprintf("invoice creation for order %s: %v", number, e.Err)
}
func (e *CreationError) Unwrap() error { return e.Err }

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
