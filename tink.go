// Package fte implements Format-Transforming Encryption (FTE).
// This file defines the Encoder interface for Tink integration.
// For Tink integration, see the tinkfte package.

package fte

// Encoder is a Tink-compatible interface for Format-Transforming Encryption.
// This follows Tink's primitive pattern, similar to tink.AEAD.
// Encoder is randomized: encoding the same message twice yields different covertexts.
type Encoder interface {
	// Capacity returns the number of bits a covertext prefix can carry,
	// including the 16-byte header.
	Capacity() int

	// Encode transforms message into a covertext whose first N bytes are a
	// member of the encoder's language.
	Encode(message []byte) ([]byte, error)

	// Decode recovers the message from a covertext produced by Encode.
	// This is the inverse of Encode.
	Decode(covertext []byte) ([]byte, error)
}
