package fte

import (
	"crypto/cipher"
	"fmt"

	"github.com/vdparikh/fte/subtle"
)

const (
	// HeaderLen is the size of the encrypted covertext header.
	HeaderLen = subtle.BlockSize
	// headerNonceLen random bytes precede the message length in the plaintext header.
	headerNonceLen = 8
	// headerLengthLen is the width of the big-endian message length field.
	headerLengthLen = HeaderLen - headerNonceLen
)

// randomBytes is the source of header nonces and padding.
var randomBytes = subtle.RandomBytes

// sealHeader builds nonce || uint64(msgLen) and encrypts it as one block.
func sealHeader(block cipher.Block, msgLen int) ([]byte, error) {
	if msgLen < 0 {
		return nil, fmt.Errorf("negative message length %d", msgLen)
	}
	length, err := subtle.Uint64ToBytes(uint64(msgLen), headerLengthLen)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(headerNonceLen)
	if err != nil {
		return nil, err
	}
	return subtle.EncryptOneBlock(block, append(nonce, length...))
}

// openHeader decrypts the header block and returns the message length field.
func openHeader(block cipher.Block, header []byte) (uint64, error) {
	plaintext, err := subtle.DecryptOneBlock(block, header)
	if err != nil {
		return 0, err
	}
	return subtle.BytesToUint64(plaintext[headerNonceLen:])
}
