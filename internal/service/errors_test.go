package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{ErrRequestInFlight, ""},
		{newOpError(ErrOutOfStock, "", nil), KindOutOfStock},
		{fmt.Errorf("wrapped: %w", ErrConcurrentModification), KindConcurrentModification},
		{validationError("address required"), KindValidation},
		{errors.New("boom"), KindGeneral},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestOpErrorKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := generalError("", cause)
	if !errors.Is(err, ErrGeneral) || !errors.Is(err, cause) {
		t.Fatalf("op error should match kind and cause")
	}
	if MessageOf(err) != ErrGeneral.Error() {
		t.Fatalf("empty message should fall back to the kind text, got %q", MessageOf(err))
	}
	if MessageOf(errors.New("raw")) != ErrGeneral.Error() {
		t.Fatalf("unknown errors should use the generic message")
	}
}
