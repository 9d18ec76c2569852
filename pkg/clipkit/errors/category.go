// Package errors classifies failures coming back from collaborators
// (sinks, encryptors, persistence backends) and retries the transient ones.
//
// Core components never retry on their own initiative; they ask Categorize
// whether a failure is worth another attempt and hand the call to Retry
// when it is.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category says whether repeating a failed call can help.
type Category int

const (
	// CategoryTransient failures may succeed on another attempt:
	// collaborator timeouts, a sink that is briefly unavailable.
	CategoryTransient Category = iota

	// CategoryPermanent failures will not: malformed input, a closed
	// store, a cancelled context.
	CategoryPermanent
)

var categoryNames = map[Category]string{
	CategoryTransient: "transient",
	CategoryPermanent: "permanent",
}

// String returns the category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// CategorizedError attaches a Category to an error.
type CategorizedError struct {
	Err      error
	Category Category
	// Retries is the number of attempts made, when known.
	Retries int
	// Context names the operation.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	msg := e.Err.Error()
	if e.Context != "" {
		msg = e.Context + ": " + msg
	}
	if e.Retries > 0 {
		return fmt.Sprintf("%s [%s, %d attempts]", msg, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s [%s]", msg, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Transient marks err as worth retrying.
func Transient(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Context: op}
}

// Permanent marks err as final.
func Permanent(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Context: op}
}

// Categorize reports how err should be handled. Explicit categories win;
// timeouts and temporary collaborator failures are transient, and a
// deadline on a single call is transient while cancellation is not.
func Categorize(err error) Category {
	var (
		catErr     *CategorizedError
		timeoutErr *TimeoutError
		collabErr  *CollaboratorError
	)
	switch {
	case err == nil:
		return CategoryPermanent
	case errors.As(err, &catErr):
		return catErr.Category
	case errors.As(err, &timeoutErr):
		return CategoryTransient
	case errors.As(err, &collabErr):
		if collabErr.Temporary {
			return CategoryTransient
		}
		return CategoryPermanent
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
