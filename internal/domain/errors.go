// Package domain holds the types shared by the crawl pipeline: ranges and phases,
// listings and detail snapshots, extracted records and the resumable crawl state.
package domain

import "errors"

// Error taxonomy. Concrete errors wrap one of these so callers can classify with errors.Is.
var (
	// ErrNavigation marks a transient network or render failure. It is retried.
	ErrNavigation = errors.New("navigation failed")
	// ErrFieldNotFound marks expected page structure that is absent.
	ErrFieldNotFound = errors.New("field not found")
	// ErrParse marks text that could not be decomposed.
	ErrParse = errors.New("parse failed")
	// ErrPersistence marks an I/O failure while writing the table or checkpoint. It is fatal.
	ErrPersistence = errors.New("persistence failed")
)
