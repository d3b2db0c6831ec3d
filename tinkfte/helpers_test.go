package tinkfte

import (
	"testing"

	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
)

func newTestHandle(t testing.TB) *keyset.Handle {
	t.Helper()
	if err := Register(); err != nil {
		t.Fatalf("Failed to register KeyManager: %v", err)
	}
	handle, err := keyset.NewHandle(KeyTemplate())
	if err != nil {
		t.Fatalf("Failed to create keyset handle: %v", err)
	}
	return handle
}

// serializeKeyset writes handle in cleartext, as a key store would.
func serializeKeyset(handle *keyset.Handle) (*keyset.MemReaderWriter, error) {
	buf := &keyset.MemReaderWriter{}
	if err := insecurecleartextkeyset.Write(handle, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func deserializeKeyset(buf *keyset.MemReaderWriter) (*keyset.Handle, error) {
	return insecurecleartextkeyset.Read(buf)
}
