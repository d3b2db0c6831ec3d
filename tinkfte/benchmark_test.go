package tinkfte

import (
	cryptorand "crypto/rand"
	"testing"

	"github.com/google/tink/go/aead"
	"github.com/google/tink/go/keyset"
	"github.com/vdparikh/fte"
)

// BenchmarkEncode benchmarks Encode for each built-in format.
func BenchmarkEncode(b *testing.B) {
	handle := newTestHandle(b)
	formats := fte.DefaultFormats()
	message := make([]byte, 16)
	if _, err := cryptorand.Read(message); err != nil {
		b.Fatal(err)
	}

	for _, name := range formats.Names() {
		f, _ := formats.Lookup(name)
		encoder, err := NewFromFormat(handle, f)
		if err != nil {
			b.Fatalf("NewFromFormat(%s) failed: %v", name, err)
		}
		b.Run(name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := encoder.Encode(message); err != nil {
					b.Fatalf("Encode failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkDecode benchmarks Decode for each built-in format.
func BenchmarkDecode(b *testing.B) {
	handle := newTestHandle(b)
	formats := fte.DefaultFormats()

	for _, name := range formats.Names() {
		f, _ := formats.Lookup(name)
		encoder, err := NewFromFormat(handle, f)
		if err != nil {
			b.Fatalf("NewFromFormat(%s) failed: %v", name, err)
		}
		covertext, err := encoder.Encode([]byte("benchmark"))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := encoder.Decode(covertext); err != nil {
					b.Fatalf("Decode failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkSealedRoundTrip benchmarks an AEAD-sealed encode and decode.
func BenchmarkSealedRoundTrip(b *testing.B) {
	aeadHandle, err := keyset.NewHandle(aead.AES128GCMKeyTemplate())
	if err != nil {
		b.Fatal(err)
	}
	encoder, err := NewSealed(newTestHandle(b), aeadHandle, "^[0-9a-f]{0,128}$", 128)
	if err != nil {
		b.Fatal(err)
	}
	message := []byte("sealed benchmark message")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		covertext, err := encoder.Encode(message)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := encoder.Decode(covertext); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkNew measures encoder construction once the language is cached.
func BenchmarkNew(b *testing.B) {
	handle := newTestHandle(b)
	if _, err := New(handle, "^[a-z]{0,64}$", 64); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := New(handle, "^[a-z]{0,64}$", 64); err != nil {
			b.Fatal(err)
		}
	}
}
