package summary

import "errors"

var (
	// ErrInputInvalid wraps a *validation.Error describing the rejected input.
	ErrInputInvalid = errors.New("summary: invalid input")
	// ErrExternal marks a failed or unusable generative call. Absorbed by fallback.
	ErrExternal = errors.New("summary: external service failed")
	// ErrContract means an output failed the contract gate.
	ErrContract = errors.New("summary: output contract violation")
)
