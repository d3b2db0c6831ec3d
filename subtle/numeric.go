package subtle

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// ErrOverflow is returned when a value does not fit the requested number of bytes.
var ErrOverflow = errors.New("value does not fit in the requested width")

// BytesToInt interprets b as a big-endian unsigned integer.
func BytesToInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// IntToBytes renders v as exactly size big-endian bytes, left-padded with zeros.
func IntToBytes(v *big.Int, size int) ([]byte, error) {
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", v)
	}
	if v.BitLen() > size*8 {
		return nil, fmt.Errorf("%w: %d bits into %d bytes", ErrOverflow, v.BitLen(), size)
	}
	return v.FillBytes(make([]byte, size)), nil
}

// Uint64ToBytes renders v as exactly size big-endian bytes, left-padded with zeros.
func Uint64ToBytes(v uint64, size int) ([]byte, error) {
	return IntToBytes(new(big.Int).SetUint64(v), size)
}

// BytesToUint64 interprets b as a big-endian unsigned integer that must fit in 64 bits.
func BytesToUint64(b []byte) (uint64, error) {
	v := BytesToInt(b)
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %d bits into 8 bytes", ErrOverflow, v.BitLen())
	}
	return v.Uint64(), nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
