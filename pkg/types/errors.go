package types

import "errors"

// Game operation errors. Each is returned before any state changes.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidState           = errors.New("operation not valid in current phase")
	ErrNoHistory              = errors.New("no earlier question to go back to")
	ErrMalformedQuestion      = errors.New("question does not match a known template")
	ErrTraversalInconsistency = errors.New("tree references an unknown feature")
	ErrQuestionRequired       = errors.New("a distinguishing question is required")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionLimit           = errors.New("too many open sessions")
)

// Dataset errors.
var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidValue    = errors.New("attribute value must be 0 or 1")
	ErrDuplicateEntity = errors.New("entity already exists")
	ErrUnknownEntity   = errors.New("entity not found")
	ErrDuplicateColumn = errors.New("attribute already exists")
	ErrUnknownColumn   = errors.New("attribute not found")
	ErrEmptyDataset    = errors.New("dataset has no entities")
)
