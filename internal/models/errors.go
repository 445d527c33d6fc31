package models

import "fmt"

// Failure kinds for the reconciliation engine and its collaborators.
// Each carries enough context to log the smallest affected unit; callers
// route on the kind with errors.As.

// AuthError indicates a rejected token exchange. The account's token
// state is left unchanged and its work for the cycle is skipped.
type AuthError struct {
	AccountID string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed for account %s: %v", e.AccountID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError indicates a transport failure or non-success status while
// fetching a search page or reaching the platform.
type FetchError struct {
	URL        string
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates a search page that could not be read or carried
// no item-link microdata.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PlatformError indicates an Avito API call that completed at the
// transport level but returned a non-success application status.
type PlatformError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("avito %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// NotFoundError indicates a referenced account or listing that does not
// exist. Surfaced directly to the caller, never retried.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
