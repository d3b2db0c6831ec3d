// Package tinkfte provides Tink integration for Format-Transforming Encryption.
// This file contains the KeyManager implementation that registers the FTE
// header cipher with Tink's registry.
package tinkfte

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/google/tink/go/core/registry"
	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/proto/tink_go_proto"
	"github.com/vdparikh/fte/subtle"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// HeaderKeyTypeURL is the type URL for FTE header keys in Tink's registry.
	HeaderKeyTypeURL = "type.googleapis.com/google.crypto.tink.FteHeaderKey"

	defaultKeySize = 32
)

// KeyManager implements registry.KeyManager for FTE header keys.
// A key is serialized as a BytesValue holding the raw AES key; its primitive
// is the cipher.Block that encrypts covertext headers.
type KeyManager struct {
	typeURL string
}

// NewKeyManager creates a new FTE key manager.
func NewKeyManager() *KeyManager {
	return &KeyManager{
		typeURL: HeaderKeyTypeURL,
	}
}

func validKeySize(n int) bool {
	return n == 16 || n == 24 || n == 32
}

// Primitive creates a header cipher from the given serialized key.
func (km *KeyManager) Primitive(serializedKey []byte) (interface{}, error) {
	key := new(wrapperspb.BytesValue)
	if err := proto.Unmarshal(serializedKey, key); err != nil {
		return nil, fmt.Errorf("failed to parse header key: %w", err)
	}
	block, err := subtle.NewHeaderCipher(key.GetValue())
	if err != nil {
		return nil, fmt.Errorf("failed to create header cipher: %w", err)
	}
	return block, nil
}

// DoesSupport returns true if this KeyManager supports the given key type URL.
func (km *KeyManager) DoesSupport(typeURL string) bool {
	return typeURL == km.typeURL
}

// TypeURL returns the type URL of the keys managed by this KeyManager.
func (km *KeyManager) TypeURL() string {
	return km.typeURL
}

// keySize reads the key size from a serialized key format. An empty format
// selects AES-256.
func keySize(serializedKeyFormat []byte) (int, error) {
	if len(serializedKeyFormat) == 0 {
		return defaultKeySize, nil
	}
	format := new(wrapperspb.UInt32Value)
	if err := proto.Unmarshal(serializedKeyFormat, format); err != nil {
		return 0, fmt.Errorf("failed to parse key format: %w", err)
	}
	size := int(format.GetValue())
	if !validKeySize(size) {
		return 0, fmt.Errorf("invalid key size in template: %d bytes (must be 16, 24, or 32)", size)
	}
	return size, nil
}

// NewKey generates a new key according to the given key format.
func (km *KeyManager) NewKey(serializedKeyFormat []byte) (proto.Message, error) {
	size, err := keySize(serializedKeyFormat)
	if err != nil {
		return nil, err
	}
	key, err := subtle.RandomBytes(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return wrapperspb.Bytes(key), nil
}

// NewKeyData creates a new KeyData from the given key format.
func (km *KeyManager) NewKeyData(serializedKeyFormat []byte) (*tink_go_proto.KeyData, error) {
	key, err := km.NewKey(serializedKeyFormat)
	if err != nil {
		return nil, err
	}
	value, err := proto.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize key: %w", err)
	}
	return &tink_go_proto.KeyData{
		TypeUrl:         km.typeURL,
		Value:           value,
		KeyMaterialType: tink_go_proto.KeyData_SYMMETRIC,
	}, nil
}

// Verify that KeyManager implements registry.KeyManager
var _ registry.KeyManager = (*KeyManager)(nil)

func keyTemplate(size uint32) *tink_go_proto.KeyTemplate {
	value, err := proto.Marshal(wrapperspb.UInt32(size))
	if err != nil {
		// marshalling a scalar wrapper cannot fail
		panic(err)
	}
	return &tink_go_proto.KeyTemplate{
		TypeUrl:          HeaderKeyTypeURL,
		Value:            value,
		OutputPrefixType: tink_go_proto.OutputPrefixType_RAW,
	}
}

// KeyTemplate creates a key template for FTE header keys:
//
//	handle, err := keyset.NewHandle(tinkfte.KeyTemplate())
//
// The template generates AES-256 keys. Register must have been called before
// keyset.NewHandle can use it.
func KeyTemplate() *tink_go_proto.KeyTemplate {
	return KeyTemplateAES256()
}

// KeyTemplateAES128 creates a key template for AES-128 header keys.
func KeyTemplateAES128() *tink_go_proto.KeyTemplate {
	return keyTemplate(16)
}

// KeyTemplateAES192 creates a key template for AES-192 header keys.
func KeyTemplateAES192() *tink_go_proto.KeyTemplate {
	return keyTemplate(24)
}

// KeyTemplateAES256 creates a key template for AES-256 header keys.
func KeyTemplateAES256() *tink_go_proto.KeyTemplate {
	return keyTemplate(32)
}

// NewKeysetHandleFromKey creates a keyset handle from a raw key, for example
// one exported from an HSM. The key must be 16, 24, or 32 bytes.
//
// Note: This creates an unencrypted keyset. In production, consider encrypting
// the keyset before storing it using keyset.Write() with an AEAD.
func NewKeysetHandleFromKey(key []byte) (*keyset.Handle, error) {
	if !validKeySize(len(key)) {
		return nil, fmt.Errorf("invalid key size: %d bytes (must be 16, 24, or 32)", len(key))
	}
	value, err := proto.Marshal(wrapperspb.Bytes(key))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize key: %w", err)
	}

	keyIDBytes := make([]byte, 4)
	if _, err := rand.Read(keyIDBytes); err != nil {
		return nil, fmt.Errorf("failed to generate key ID: %w", err)
	}
	// key ID 0 is rejected by the factories
	keyID := binary.BigEndian.Uint32(keyIDBytes) | 1

	ks := &tink_go_proto.Keyset{
		PrimaryKeyId: keyID,
		Key: []*tink_go_proto.Keyset_Key{{
			KeyData: &tink_go_proto.KeyData{
				TypeUrl:         HeaderKeyTypeURL,
				Value:           value,
				KeyMaterialType: tink_go_proto.KeyData_SYMMETRIC,
			},
			KeyId:            keyID,
			Status:           tink_go_proto.KeyStatusType_ENABLED,
			OutputPrefixType: tink_go_proto.OutputPrefixType_RAW,
		}},
	}
	return insecurecleartextkeyset.Read(&keyset.MemReaderWriter{Keyset: ks})
}
