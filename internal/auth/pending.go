package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crosspost/internal/model"
)

// PendingExchange is a single-producer single-consumer rendezvous for
// one OAuth authorization code. The redirect endpoint resolves it
// exactly once; the initiating flow awaits it with a bounded wait so
// an abandoned consent window eventually fails instead of blocking
// forever.
type PendingExchange struct {
	ch   chan string
	once sync.Once
}

func NewPendingExchange() *PendingExchange {
	return &PendingExchange{ch: make(chan string, 1)}
}

// Resolve delivers the authorization code. The second and later calls
// fail without delivering anything.
func (p *PendingExchange) Resolve(code string) error {
	delivered := false
	p.once.Do(func() {
		p.ch <- code
		delivered = true
	})
	if !delivered {
		return errors.New("authorization code already delivered")
	}
	return nil
}

// Await blocks until the code arrives, the timeout passes, or ctx is
// cancelled.
func (p *PendingExchange) Await(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case code := <-p.ch:
		return code, nil
	case <-t.C:
		return "", fmt.Errorf("%w: authorization window abandoned after %s", model.ErrAuthExchange, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
