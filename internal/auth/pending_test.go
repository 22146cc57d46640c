package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosspost/internal/model"
)

func TestPendingExchangeResolveOnce(t *testing.T) {
	p := NewPendingExchange()

	if err := p.Resolve("code-1"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if err := p.Resolve("code-2"); err == nil {
		t.Error("second Resolve should fail")
	}

	code, err := p.Await(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if code != "code-1" {
		t.Errorf("got %q, want the first delivered code", code)
	}
}

func TestPendingExchangeTimeout(t *testing.T) {
	p := NewPendingExchange()

	_, err := p.Await(context.Background(), 10*time.Millisecond)
	if !errors.Is(err, model.ErrAuthExchange) {
		t.Errorf("expected ErrAuthExchange on abandoned window, got %v", err)
	}
}

func TestPendingExchangeContextCancel(t *testing.T) {
	p := NewPendingExchange()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Await(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPendingExchangeConcurrentResolve(t *testing.T) {
	p := NewPendingExchange()

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() { errs <- p.Resolve("code") }()
	}

	delivered := 0
	for i := 0; i < 4; i++ {
		if <-errs == nil {
			delivered++
		}
	}
	if delivered != 1 {
		t.Errorf("%d resolves succeeded, want exactly 1", delivered)
	}
}
