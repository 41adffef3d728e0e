package safe

import (
	"testing"
	"time"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	done := make(chan struct{})
	SafeGo("boom", func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	// panic 被吞掉后还能继续起新 goroutine
	ok := make(chan struct{})
	SafeGo("after", func() { close(ok) })
	select {
	case <-ok:
	case <-time.After(time.Second):
		t.Fatal("SafeGo unusable after recovered panic")
	}
}

func TestMustNotNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil value")
		}
	}()
	var p *int
	MustNotNil(p, "p")
}
