package errs

import (
	"errors"
	"testing"
)

func TestErrPanic(t *testing.T) {
	if ErrPanic(nil) != nil {
		t.Fatal("nil recover value must map to nil error")
	}

	err := ErrPanic("boom")
	if err == nil {
		t.Fatal("expected error for non-nil recover value")
	}
	var ce *CodeError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CodeError, got %T", err)
	}
	if ce.Code != ServerInternalError {
		t.Fatalf("expected code %d, got %d", ServerInternalError, ce.Code)
	}
	if ce.Detail != "boom" {
		t.Fatalf("expected recover value in detail, got %q", ce.Detail)
	}
}
