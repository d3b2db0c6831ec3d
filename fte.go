// Package fte implements Format-Transforming Encryption (FTE).
// FTE turns an encrypted payload into a string that is a member of a regular
// language, so that the covertext passes filters that only admit traffic of a
// known format.
//
// A format is a regular expression plus a fixed slice N. The package compiles
// the format into an automaton (see the dfa package), derives its capacity in
// bits and ranks payloads into words of exactly N bytes. Encode frames a message
// as an encrypted 16-byte header (random nonce and message length) followed by
// as much of the message as fits, pads the rest of the capacity with random
// bytes and unranks the result. Message bytes beyond the capacity are appended
// to the formatted prefix unchanged.
//
// Compiled formats are cached process-wide by the DefaultRegistry, so building
// several codecs for the same format compiles its automaton only once.
//
// Example usage:
//
//	key := []byte("0123456789abcdef") // 16, 24 or 32 bytes
//
//	codec, err := fte.New(`^[a-z]{0,64}$`, 64, key)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	covertext, err := codec.Encode([]byte("hello"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	// covertext[:64] is 64 lowercase letters
//
//	message, err := codec.Decode(covertext)
//	if err != nil {
//		log.Fatal(err)
//	}
//	// message is "hello"
package fte

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/npillmayer/schuko/tracing"
	"github.com/vdparikh/fte/subtle"
)

// tracer writes to trace with key 'fte'
func tracer() tracing.Trace {
	return tracing.Select("fte")
}

// Codec encodes messages into covertexts of one language and back. It holds
// no per-call state and is safe for concurrent use.
type Codec struct {
	lang  *Language
	block cipher.Block
}

// NewCodec creates a Codec for lang whose headers are encrypted with block.
// The block cipher must have a 16-byte block size.
func NewCodec(lang *Language, block cipher.Block) (*Codec, error) {
	const op = "codec"
	if lang == nil {
		return nil, NewError(InvalidInput, op, errors.New("language cannot be nil"))
	}
	if block == nil {
		return nil, NewError(InvalidInput, op, errors.New("header cipher cannot be nil"))
	}
	if block.BlockSize() != HeaderLen {
		return nil, NewError(InvalidInput, op, fmt.Errorf("header cipher block size must be %d, got %d", HeaderLen, block.BlockSize()))
	}
	return &Codec{lang: lang, block: block}, nil
}

// New creates a Codec for (regex, fixedSlice) from the DefaultRegistry with
// an AES header cipher under key. The key should be 16, 24 or 32 bytes.
func New(regex string, fixedSlice int, key []byte) (*Codec, error) {
	block, err := subtle.NewHeaderCipher(key)
	if err != nil {
		return nil, NewError(InvalidInput, "codec", err)
	}
	lang, err := DefaultRegistry.Get(regex, fixedSlice)
	if err != nil {
		return nil, err
	}
	return NewCodec(lang, block)
}

// Language returns the language covertexts are drawn from.
func (c *Codec) Language() *Language {
	return c.lang
}

// Capacity returns the capacity of the language in bits.
func (c *Codec) Capacity() int {
	if c == nil || c.lang == nil {
		return 0
	}
	return c.lang.Capacity()
}

func (c *Codec) check(op string) error {
	if c == nil || c.lang == nil || c.block == nil {
		return NewError(InvalidInput, op, errors.New("codec is not initialized"))
	}
	return nil
}

// maxBytes is the number of whole bytes that can be ranked.
func (c *Codec) maxBytes() int {
	return c.lang.Capacity() / 8
}

// Encode returns unrank(header || message[:k] || padding) || message[k:], where
// k is the number of message bytes that fit into the capacity after the
// 16-byte header. The first N bytes of the result are always a member of the
// language.
func (c *Codec) Encode(message []byte) ([]byte, error) {
	const op = "encode"
	if err := c.check(op); err != nil {
		return nil, err
	}

	maxBytes := c.maxBytes()
	usable := maxBytes - HeaderLen
	if usable <= 0 {
		return nil, NewError(InsufficientCapacity, op,
			fmt.Errorf("language carries %d bytes, the header alone needs %d", maxBytes, HeaderLen))
	}
	k := len(message)
	if k > usable {
		k = usable
	}

	header, err := sealHeader(c.block, k)
	if err != nil {
		if errors.Is(err, subtle.ErrOverflow) {
			return nil, NewError(InsufficientCapacity, op, err)
		}
		return nil, NewError(InvalidInput, op, err)
	}

	payload := make([]byte, 0, maxBytes)
	payload = append(payload, header...)
	payload = append(payload, message[:k]...)
	if pad := maxBytes - len(payload); pad > 0 {
		padding, err := randomBytes(pad)
		if err != nil {
			return nil, NewError(InvalidInput, op, err)
		}
		payload = append(payload, padding...)
	}

	formatted, err := c.lang.Unrank(subtle.BytesToInt(payload))
	if err != nil {
		// the payload is below 2^capacity, so it always has a rank
		return nil, NewError(InsufficientCapacity, op, err)
	}
	covertext := make([]byte, 0, len(formatted)+len(message)-k)
	covertext = append(covertext, formatted...)
	covertext = append(covertext, message[k:]...)
	return covertext, nil
}

// Decode inverts Encode: it ranks the first N bytes of covertext, decrypts the
// header and returns the framed message bytes followed by the unformatted
// remainder of covertext.
func (c *Codec) Decode(covertext []byte) ([]byte, error) {
	const op = "decode"
	if err := c.check(op); err != nil {
		return nil, err
	}

	n := c.lang.FixedSlice()
	if len(covertext) < n {
		return nil, NewError(DecodeFailure, op,
			fmt.Errorf("covertext is %d bytes, shorter than the fixed slice %d", len(covertext), n))
	}
	maxBytes := c.maxBytes()
	if maxBytes <= HeaderLen {
		return nil, NewError(InsufficientCapacity, op,
			fmt.Errorf("language carries %d bytes, the header alone needs %d", maxBytes, HeaderLen))
	}

	rank, err := c.lang.Rank(covertext[:n])
	if err != nil {
		return nil, NewError(DecodeFailure, op, err)
	}
	payload, err := subtle.IntToBytes(rank, maxBytes)
	if err != nil {
		return nil, NewError(DecodeFailure, op, err)
	}

	length, err := openHeader(c.block, payload[:HeaderLen])
	if err != nil {
		return nil, NewError(DecodeFailure, op, err)
	}
	if length > uint64(maxBytes-HeaderLen) {
		return nil, NewError(DecodeFailure, op,
			fmt.Errorf("header announces %d bytes, at most %d fit", length, maxBytes-HeaderLen))
	}

	end := HeaderLen + int(length)
	message := make([]byte, 0, int(length)+len(covertext)-n)
	message = append(message, payload[HeaderLen:end]...)
	message = append(message, covertext[n:]...)
	return message, nil
}

var _ Encoder = (*Codec)(nil)
