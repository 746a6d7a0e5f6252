package ssao

import "errors"

// Sentinel errors. Callers match them with errors.Is; the returned errors
// wrap them with context about the failing program, field, or buffer.
var (
	// ErrMissingProgram is returned by Effect.Setup when a shader source is empty.
	ErrMissingProgram = errors.New("ssao: missing shader program")

	// ErrUnknownUniform is returned when a program does not declare a uniform
	// the binder requires.
	ErrUnknownUniform = errors.New("ssao: unknown uniform")

	// ErrUnknownKeyword is returned when a keyword is not part of the
	// program's exclusive keyword group.
	ErrUnknownKeyword = errors.New("ssao: unknown keyword")

	// ErrInvalidDescriptor is returned for degenerate texture descriptors
	// (zero or negative width or height).
	ErrInvalidDescriptor = errors.New("ssao: invalid texture descriptor")

	// ErrAllocation is returned when the device fails to create a buffer.
	ErrAllocation = errors.New("ssao: buffer allocation failed")

	// ErrMissingInput is returned when a frame lacks its command context,
	// depth texture, or G-buffer normals.
	ErrMissingInput = errors.New("ssao: missing frame input")

	// ErrOutOfRange is returned by Validate for settings outside their range.
	ErrOutOfRange = errors.New("ssao: value out of range")

	// ErrDisposed is returned by Setup after the effect has been disposed.
	ErrDisposed = errors.New("ssao: effect disposed")
)
