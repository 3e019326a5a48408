// Package packerr defines the shared error kinds returned by the pack
// engine's components.
package packerr

import "errors"

// Sentinel error kinds. The pack engine's fallible exported functions return
// these sentinels directly, without added detail; the deflate pipeline filter
// also passes through errors from the zlib reader and writer unchanged.
var (
	// ErrInvalidInput covers null/empty buffers, zero-size arrays, and
	// quantization requests with both nbits=0 and error=0.
	ErrInvalidInput = errors.New("pack: invalid input")

	// ErrCapacity covers an output buffer too small for the required
	// encoding, or a bitstream whose available space is insufficient.
	ErrCapacity = errors.New("pack: capacity exceeded")

	// ErrInvariant covers marker mismatches, a stream not in the expected
	// mode, and dimension mismatches between an array and a decoded tile.
	ErrInvariant = errors.New("pack: invariant violation")

	// ErrUnknownFilter covers dispatch to an unregistered pipeline filter ID.
	ErrUnknownFilter = errors.New("pack: unknown filter id")
)
