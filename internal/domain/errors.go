package domain

import "errors"

var (
	// ErrNotFound reports a missing run or path.
	ErrNotFound = errors.New("not found")
	// ErrPathViolation reports a traversal attempt or a path resolving outside the root.
	ErrPathViolation = errors.New("path violation")
	// ErrBinaryFile reports file content that is not valid UTF-8.
	ErrBinaryFile = errors.New("binary file")
	// ErrInvalidInput reports a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
