package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"crosspost/internal/browser"
	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// loginStep is one bounded stage of an interactive login flow.
type loginStep struct {
	name   string
	wait   time.Duration
	action chromedp.Action
}

// loginSteps returns the platform's interactive login flow: open the
// login page, then block until the platform's "logged in" signal
// element shows up. The waits are generous because the user completes
// the login (and usually 2FA) by hand.
func loginSteps(p model.Platform) ([]loginStep, error) {
	const manualLoginWait = 300 * time.Second

	switch p {
	case model.PlatformYouTube:
		return []loginStep{
			{"open-login", 30 * time.Second, chromedp.Navigate("https://accounts.google.com/ServiceLogin?service=youtube")},
			{"await-account", manualLoginWait, chromedp.WaitVisible("#avatar-btn", chromedp.ByQuery)},
			{"open-studio", 30 * time.Second, chromedp.Navigate("https://studio.youtube.com")},
			{"await-studio", 60 * time.Second, chromedp.WaitVisible("#menu-paper-icon-item-1", chromedp.ByQuery)},
		}, nil
	case model.PlatformInstagram:
		return []loginStep{
			{"open-login", 30 * time.Second, chromedp.Navigate("https://www.instagram.com/accounts/login/")},
			{"await-feed", manualLoginWait, chromedp.WaitVisible("article", chromedp.ByQuery)},
		}, nil
	case model.PlatformX:
		return []loginStep{
			{"open-login", 30 * time.Second, chromedp.Navigate("https://twitter.com/i/flow/login")},
			{"await-home", manualLoginWait, chromedp.WaitVisible(`[data-testid="AppTabBar_Home_Link"]`, chromedp.ByQuery)},
		}, nil
	case model.PlatformTikTok:
		return []loginStep{
			{"open-login", 30 * time.Second, chromedp.Navigate("https://www.tiktok.com/login")},
			{"await-profile", manualLoginWait, chromedp.WaitVisible(`[data-e2e="profile-icon"]`, chromedp.ByQuery)},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedPlatform, p)
	}
}

// CookieAuthenticator drives an interactive login in a visible
// browser and harvests the resulting session cookies.
type CookieAuthenticator struct {
	platform   model.Platform
	newBrowser browser.Factory
	log        *logging.Logger
}

func NewCookieAuthenticator(p model.Platform, factory browser.Factory, log *logging.Logger) (*CookieAuthenticator, error) {
	if _, err := loginSteps(p); err != nil {
		return nil, err
	}
	return &CookieAuthenticator{platform: p, newBrowser: factory, log: log}, nil
}

func (a *CookieAuthenticator) Platform() model.Platform {
	return a.platform
}

// Authenticate runs the login flow to completion and returns the
// harvested cookie jar. The browser session is torn down on every
// exit path.
func (a *CookieAuthenticator) Authenticate(ctx context.Context, _ model.Credential) (model.Credential, error) {
	steps, err := loginSteps(a.platform)
	if err != nil {
		return model.Credential{}, err
	}

	b, err := a.newBrowser(ctx)
	if err != nil {
		return model.Credential{}, fmt.Errorf("launch login browser: %w", err)
	}
	defer b.Close()

	a.log.Infof("[%s] waiting for manual login", a.platform)
	for _, st := range steps {
		if err := b.Run(st.wait, st.action); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return model.Credential{}, fmt.Errorf("%w: %s signal %q not seen within %s", model.ErrLoginTimeout, a.platform, st.name, st.wait)
			}
			return model.Credential{}, fmt.Errorf("%s login step %q: %w", a.platform, st.name, err)
		}
	}

	cookies, err := b.Cookies()
	if err != nil {
		return model.Credential{}, fmt.Errorf("harvest %s cookies: %w", a.platform, err)
	}
	if len(cookies) == 0 {
		return model.Credential{}, fmt.Errorf("no session cookies after %s login", a.platform)
	}

	a.log.Infof("[%s] login complete, %d cookies harvested", a.platform, len(cookies))
	return model.CookieCredential(cookies), nil
}
