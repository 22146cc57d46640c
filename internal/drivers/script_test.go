package drivers

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"crosspost/internal/browser"
	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// fakeBrowser counts interactions and fails Run at a chosen step.
type fakeBrowser struct {
	runs       int
	failAtRun  int // 1-based; 0 means never
	setCookies [][]model.Cookie
	setErr     error
	closes     int
}

func (f *fakeBrowser) Run(_ time.Duration, _ ...chromedp.Action) error {
	f.runs++
	if f.failAtRun > 0 && f.runs == f.failAtRun {
		return errors.New("selector not found")
	}
	return nil
}

func (f *fakeBrowser) SetCookies(cookies []model.Cookie) error {
	f.setCookies = append(f.setCookies, cookies)
	return f.setErr
}

func (f *fakeBrowser) Cookies() ([]model.Cookie, error) { return nil, nil }

func (f *fakeBrowser) Close() { f.closes++ }

func fakeFactory(b *fakeBrowser, launches *int) browser.Factory {
	return func(ctx context.Context) (browser.Browser, error) {
		if launches != nil {
			*launches++
		}
		return b, nil
	}
}

func testScript(n int) Script {
	return func(videoPath, caption string) []Step {
		steps := make([]Step, n)
		for i := range steps {
			steps[i] = Step{Name: "step", Timeout: time.Second, Action: chromedp.Sleep(0)}
		}
		return steps
	}
}

var testCred = model.CookieCredential([]model.Cookie{{Name: "sid", Value: "v"}})

func testVideo(t *testing.T) *model.VideoAsset {
	t.Helper()
	v, err := model.NewVideoAsset("clip.mp4", model.MimeMP4, []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestScriptedUploadRunsAllSteps(t *testing.T) {
	b := &fakeBrowser{}
	d := NewScripted(model.PlatformTikTok, testScript(4), fakeFactory(b, nil), logging.Discard())

	remoteID, err := d.Upload(context.Background(), testCred, testVideo(t), model.PublishMetadata{Title: "t"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if remoteID != "" {
		t.Errorf("scripted platforms have no remote id, got %q", remoteID)
	}
	if b.runs != 4 {
		t.Errorf("ran %d steps, want 4", b.runs)
	}
	if len(b.setCookies) != 1 {
		t.Errorf("cookies injected %d times, want 1", len(b.setCookies))
	}
	if b.closes != 1 {
		t.Errorf("browser closed %d times, want 1", b.closes)
	}
}

func TestScriptedUploadAbortsOnFirstFailure(t *testing.T) {
	b := &fakeBrowser{failAtRun: 2}
	d := NewScripted(model.PlatformInstagram, testScript(5), fakeFactory(b, nil), logging.Discard())

	_, err := d.Upload(context.Background(), testCred, testVideo(t), model.PublishMetadata{Title: "t"})
	if !errors.Is(err, model.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if b.runs != 2 {
		t.Errorf("ran %d steps, want abort after 2", b.runs)
	}
	if b.closes != 1 {
		t.Errorf("browser closed %d times on failure path, want 1", b.closes)
	}
}

func TestScriptedUploadWithoutCookies(t *testing.T) {
	launches := 0
	d := NewScripted(model.PlatformX, testScript(3), fakeFactory(&fakeBrowser{}, &launches), logging.Discard())

	_, err := d.Upload(context.Background(), model.Credential{}, testVideo(t), model.PublishMetadata{Title: "t"})
	if !errors.Is(err, model.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if launches != 0 {
		t.Errorf("browser launched %d times for a credential-less upload, want 0", launches)
	}
}

func TestScriptedUploadClosesOnCookieError(t *testing.T) {
	b := &fakeBrowser{setErr: errors.New("cookie injection failed")}
	d := NewScripted(model.PlatformTikTok, testScript(3), fakeFactory(b, nil), logging.Discard())

	_, err := d.Upload(context.Background(), testCred, testVideo(t), model.PublishMetadata{Title: "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	if b.runs != 0 {
		t.Errorf("ran %d steps after cookie failure, want 0", b.runs)
	}
	if b.closes != 1 {
		t.Errorf("browser closed %d times, want 1", b.closes)
	}
}

func TestScriptedUploadCleansTempFile(t *testing.T) {
	var spooled string
	script := func(videoPath, caption string) []Step {
		spooled = videoPath
		return []Step{{Name: "check", Timeout: time.Second, Action: chromedp.Sleep(0)}}
	}
	d := NewScripted(model.PlatformTikTok, script, fakeFactory(&fakeBrowser{}, nil), logging.Discard())

	if _, err := d.Upload(context.Background(), testCred, testVideo(t), model.PublishMetadata{Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if spooled == "" {
		t.Fatal("script never saw the spooled path")
	}
	if _, err := os.Stat(spooled); !os.IsNotExist(err) {
		t.Errorf("temp video %s still present after upload", spooled)
	}
}

func TestScriptCaptionsAndPaths(t *testing.T) {
	meta := model.PublishMetadata{Title: "T", Description: "D", Tags: []string{"x"}}
	for name, script := range map[string]Script{
		"instagram": InstagramScript(0),
		"x":         XScript(0),
		"tiktok":    TikTokScript(0),
	} {
		steps := script("/tmp/clip.mp4", meta.Caption())
		if len(steps) == 0 {
			t.Errorf("%s script has no steps", name)
		}
		for _, st := range steps {
			if st.Action == nil {
				t.Errorf("%s step %q has no action", name, st.Name)
			}
			if st.Timeout <= 0 {
				t.Errorf("%s step %q has no timeout", name, st.Name)
			}
		}
	}
}
