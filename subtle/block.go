// Package subtle provides low-level primitives for Format-Transforming Encryption.
// This package contains the raw-key header cipher and the byte/integer conversions
// the covertext framing is built on.
// It should not be used directly by most users; instead use the high-level APIs in the parent package.
package subtle

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// BlockSize is the size of the encrypted covertext header.
const BlockSize = aes.BlockSize

// NewHeaderCipher creates the AES block cipher that encrypts covertext headers
// with the given raw key. The key must be 16, 24 or 32 bytes (AES-128, AES-192
// or AES-256).
//
// The header carries its own random nonce, so the cipher is applied to exactly
// one block without a mode of operation.
func NewHeaderCipher(key []byte) (cipher.Block, error) {
	keyLen := len(key)
	if keyLen != 16 && keyLen != 24 && keyLen != 32 {
		return nil, fmt.Errorf("invalid key size: %d bytes (must be 16, 24, or 32)", keyLen)
	}
	return aes.NewCipher(key)
}

// EncryptOneBlock encrypts a single block with b.
// Thread safety: safe for concurrent use as long as b is.
func EncryptOneBlock(b cipher.Block, plaintext []byte) ([]byte, error) {
	if len(plaintext) != b.BlockSize() {
		return nil, fmt.Errorf("plaintext must be one block of %d bytes, got %d", b.BlockSize(), len(plaintext))
	}
	out := make([]byte, len(plaintext))
	b.Encrypt(out, plaintext)
	return out, nil
}

// DecryptOneBlock decrypts a single block with b.
func DecryptOneBlock(b cipher.Block, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != b.BlockSize() {
		return nil, fmt.Errorf("ciphertext must be one block of %d bytes, got %d", b.BlockSize(), len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	b.Decrypt(out, ciphertext)
	return out, nil
}
