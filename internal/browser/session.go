// Package browser wraps a chromedp Chrome session behind a small
// interface so automation code (and its tests) never touch allocator
// plumbing directly.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"crosspost/internal/model"
)

// Browser is one exclusive Chrome session. Close must be called on
// every exit path; it is safe to call more than once but the session
// is torn down exactly once.
type Browser interface {
	// Run executes actions against the session, bounded by timeout
	// when timeout > 0.
	Run(timeout time.Duration, actions ...chromedp.Action) error
	// SetCookies injects a harvested cookie jar into the session.
	SetCookies(cookies []model.Cookie) error
	// Cookies extracts all cookies currently held by the session.
	Cookies() ([]model.Cookie, error)
	Close()
}

// Factory opens a new session. Injected so tests can substitute a
// fake browser.
type Factory func(ctx context.Context) (Browser, error)

// Options controls how Chrome is launched.
type Options struct {
	Headless  bool
	UserAgent string
}

// NewFactory returns a Factory launching real Chrome sessions.
func NewFactory(opts Options) Factory {
	return func(ctx context.Context) (Browser, error) {
		return newSession(ctx, opts)
	}
}

type session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	once    sync.Once
}

func newSession(parent context.Context, opts Options) (*session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("start-maximized", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &session{ctx: ctx, cancels: []context.CancelFunc{cancelCtx, cancelAlloc}}

	// Surface launch failures now instead of on the first action.
	if err := chromedp.Run(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Run(timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(s.ctx, timeout)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *session) SetCookies(cookies []model.Cookie) error {
	return chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				param = param.WithExpires(&exp)
			}
			if err := param.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *session) Cookies() ([]model.Cookie, error) {
	var out []model.Cookie
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, model.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) Close() {
	s.once.Do(func() {
		for _, cancel := range s.cancels {
			cancel()
		}
	})
}
