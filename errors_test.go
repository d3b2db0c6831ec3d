package fte

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	err := NewError(DecodeFailure, "decode", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrDecodeFailure) {
		t.Error("errors.Is(err, ErrDecodeFailure) = false")
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = true")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("wrapped error is not reachable")
	}
	if KindOf(err) != DecodeFailure {
		t.Errorf("KindOf = %v, want %v", KindOf(err), DecodeFailure)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != DecodeFailure || !errors.Is(wrapped, ErrDecodeFailure) {
		t.Errorf("kind lost through wrapping: %v", wrapped)
	}
	if KindOf(io.EOF) != 0 {
		t.Errorf("KindOf(io.EOF) = %v, want 0", KindOf(io.EOF))
	}

	// a populated error is not a sentinel for other errors of its kind
	other := NewError(DecodeFailure, "decode", io.EOF)
	if errors.Is(other, err) {
		t.Error("populated errors compare equal")
	}
}

func TestErrorString(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{NewError(InsufficientCapacity, "encode", errors.New("too small")), "fte: encode: insufficient capacity: too small"},
		{NewError(PatternError, "", nil), "fte: pattern error"},
		{ErrInvalidInput, "fte: invalid input"},
		{&Error{Kind: ErrorKind(42)}, "fte: error kind 42"},
	}
	for _, tc := range testCases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}
