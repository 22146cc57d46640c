package drivers

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"crosspost/internal/browser"
	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// Step is one interaction in a platform upload script. Each step is
// bounded by its own timeout; the first failing step aborts the whole
// script, there is no backtracking.
type Step struct {
	Name    string
	Timeout time.Duration
	Action  chromedp.Action
}

// Script builds the platform's fixed interaction sequence for one
// upload: navigate to the compose surface, attach the file, type the
// caption, submit, wait for the post to settle.
type Script func(videoPath, caption string) []Step

// stepWait is the per-step selector wait shared by all scripts.
const stepWait = 60 * time.Second

// ScriptedDriver replays a Script against the platform's web UI in a
// browser session carrying the stored cookie jar.
type ScriptedDriver struct {
	platform   model.Platform
	script     Script
	newBrowser browser.Factory
	log        *logging.Logger
}

func NewScripted(p model.Platform, script Script, factory browser.Factory, log *logging.Logger) *ScriptedDriver {
	return &ScriptedDriver{platform: p, script: script, newBrowser: factory, log: log}
}

func (d *ScriptedDriver) Platform() model.Platform {
	return d.platform
}

// Upload runs the script to completion. Browser session and temporary
// file are released on every exit path. Scripted platforms expose no
// remote identifier, so success returns "".
func (d *ScriptedDriver) Upload(ctx context.Context, cred model.Credential, video *model.VideoAsset, meta model.PublishMetadata) (string, error) {
	if len(cred.Cookies) == 0 {
		return "", fmt.Errorf("%w: no %s session cookies", model.ErrAuthRequired, d.platform)
	}

	videoPath, cleanup, err := writeTempVideo(video)
	if err != nil {
		return "", fmt.Errorf("spool video: %w", err)
	}
	defer cleanup()

	b, err := d.newBrowser(ctx)
	if err != nil {
		return "", fmt.Errorf("launch upload browser: %w", err)
	}
	defer b.Close()

	if err := b.SetCookies(cred.Cookies); err != nil {
		return "", fmt.Errorf("inject %s cookies: %w", d.platform, err)
	}

	for _, st := range d.script(videoPath, meta.Caption()) {
		d.log.Infof("[%s] %s", d.platform, st.Name)
		if err := b.Run(st.Timeout, st.Action); err != nil {
			return "", fmt.Errorf("%w: %s step %q: %v", model.ErrUpload, d.platform, st.Name, err)
		}
	}
	return "", nil
}
