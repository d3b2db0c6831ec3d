package tinkfte

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/google/tink/go/proto/tink_go_proto"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const nistKey = "2B7E151628AED2A6ABF7158809CF4F3C"

func TestKeyManagerPrimitive(t *testing.T) {
	km := NewKeyManager()
	key, _ := hex.DecodeString(nistKey)
	serialized, err := proto.Marshal(wrapperspb.Bytes(key))
	if err != nil {
		t.Fatal(err)
	}

	p, err := km.Primitive(serialized)
	if err != nil {
		t.Fatalf("Primitive() failed: %v", err)
	}
	block, ok := p.(cipher.Block)
	if !ok {
		t.Fatalf("Primitive() returned %T, want cipher.Block", p)
	}

	reference, _ := aes.NewCipher(key)
	in := []byte("sixteen byte blk")
	got, want := make([]byte, 16), make([]byte, 16)
	block.Encrypt(got, in)
	reference.Encrypt(want, in)
	if !bytes.Equal(got, want) {
		t.Errorf("header cipher output %x, want %x", got, want)
	}
}

func TestKeyManagerPrimitiveErrors(t *testing.T) {
	km := NewKeyManager()
	short, _ := proto.Marshal(wrapperspb.Bytes(make([]byte, 10)))

	testCases := []struct {
		name string
		key  []byte
	}{
		{"ShortKey", short},
		{"Empty", nil},
		{"Garbage", []byte{0xff, 0xff, 0xff}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := km.Primitive(tc.key); err == nil {
				t.Error("Primitive() accepted an invalid key")
			}
		})
	}
}

func TestKeyManagerNewKeyData(t *testing.T) {
	km := NewKeyManager()
	testCases := []struct {
		name     string
		template *tink_go_proto.KeyTemplate
		size     int
	}{
		{"Default", KeyTemplate(), 32},
		{"AES128", KeyTemplateAES128(), 16},
		{"AES192", KeyTemplateAES192(), 24},
		{"AES256", KeyTemplateAES256(), 32},
		{"EmptyFormat", &tink_go_proto.KeyTemplate{TypeUrl: HeaderKeyTypeURL}, 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			keyData, err := km.NewKeyData(tc.template.Value)
			if err != nil {
				t.Fatalf("NewKeyData() failed: %v", err)
			}
			if keyData.TypeUrl != HeaderKeyTypeURL {
				t.Errorf("TypeUrl = %q, want %q", keyData.TypeUrl, HeaderKeyTypeURL)
			}
			if keyData.KeyMaterialType != tink_go_proto.KeyData_SYMMETRIC {
				t.Errorf("KeyMaterialType = %v, want SYMMETRIC", keyData.KeyMaterialType)
			}
			key := new(wrapperspb.BytesValue)
			if err := proto.Unmarshal(keyData.Value, key); err != nil {
				t.Fatal(err)
			}
			if len(key.Value) != tc.size {
				t.Errorf("key size = %d, want %d", len(key.Value), tc.size)
			}
			if _, err := km.Primitive(keyData.Value); err != nil {
				t.Errorf("Primitive() on generated key failed: %v", err)
			}
		})
	}

	bad, _ := proto.Marshal(wrapperspb.UInt32(20))
	if _, err := km.NewKeyData(bad); err == nil {
		t.Error("NewKeyData() accepted a 20-byte key size")
	}
}

func TestKeyManagerTypeURL(t *testing.T) {
	km := NewKeyManager()
	if km.TypeURL() != HeaderKeyTypeURL {
		t.Errorf("TypeURL() = %q", km.TypeURL())
	}
	if !km.DoesSupport(HeaderKeyTypeURL) {
		t.Error("DoesSupport(HeaderKeyTypeURL) = false")
	}
	if km.DoesSupport("type.googleapis.com/google.crypto.tink.AesGcmKey") {
		t.Error("DoesSupport(AesGcmKey) = true")
	}
}

func TestRegisterIdempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		if err := Register(); err != nil {
			t.Fatalf("Register() call %d failed: %v", i, err)
		}
	}
}

func TestNewKeysetHandleFromKey(t *testing.T) {
	key, _ := hex.DecodeString(nistKey)
	handle, err := NewKeysetHandleFromKey(key)
	if err != nil {
		t.Fatalf("NewKeysetHandleFromKey() failed: %v", err)
	}

	buf, err := serializeKeyset(handle)
	if err != nil {
		t.Fatalf("Failed to serialize keyset: %v", err)
	}
	restored, err := deserializeKeyset(buf)
	if err != nil {
		t.Fatalf("Failed to deserialize keyset: %v", err)
	}

	encoder, err := New(handle, "^[a-z]{0,64}$", 64)
	if err != nil {
		t.Fatal(err)
	}
	decoder, err := New(restored, "^[a-z]{0,64}$", 64)
	if err != nil {
		t.Fatal(err)
	}
	covertext, err := encoder.Encode([]byte("from an hsm"))
	if err != nil {
		t.Fatal(err)
	}
	message, err := decoder.Decode(covertext)
	if err != nil {
		t.Fatalf("Decode with restored keyset failed: %v", err)
	}
	if string(message) != "from an hsm" {
		t.Errorf("Decode = %q, want %q", message, "from an hsm")
	}

	for _, size := range []int{0, 8, 20, 64} {
		if _, err := NewKeysetHandleFromKey(make([]byte, size)); err == nil {
			t.Errorf("NewKeysetHandleFromKey() accepted a %d-byte key", size)
		}
	}
}
