package publisher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/oauth2"

	"crosspost/internal/credstore"
	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// fakeDriver returns its queued errors in order, then succeeds.
type fakeDriver struct {
	platform model.Platform
	errs     []error
	remoteID string
	calls    int
	creds    []model.Credential
	selfAuth bool
}

func (d *fakeDriver) Platform() model.Platform { return d.platform }

func (d *fakeDriver) Upload(_ context.Context, cred model.Credential, _ *model.VideoAsset, _ model.PublishMetadata) (string, error) {
	d.calls++
	d.creds = append(d.creds, cred)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return d.remoteID, nil
}

func (d *fakeDriver) SelfAuthenticated() bool { return d.selfAuth }

type fakeAuth struct {
	platform model.Platform
	cred     model.Credential
	err      error
	calls    int
}

func (a *fakeAuth) Platform() model.Platform { return a.platform }

func (a *fakeAuth) Authenticate(_ context.Context, _ model.Credential) (model.Credential, error) {
	a.calls++
	return a.cred, a.err
}

type fakeNotifier struct {
	calls   int
	results map[model.Platform]model.PublishResult
}

func (n *fakeNotifier) NotifyResults(_ context.Context, _ model.PublishMetadata, results map[model.Platform]model.PublishResult) {
	n.calls++
	n.results = results
}

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	store, err := credstore.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(store, logging.Discard())
}

func storeCookies(t *testing.T, p *Publisher, platform model.Platform) {
	t.Helper()
	cred := model.CookieCredential([]model.Cookie{{Name: "sid", Value: "v"}})
	if err := p.Store().Put(context.Background(), platform, cred); err != nil {
		t.Fatal(err)
	}
}

func testVideo(t *testing.T) *model.VideoAsset {
	t.Helper()
	v, err := model.NewVideoAsset("clip.mp4", model.MimeMP4, []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

var testMeta = model.PublishMetadata{Title: "Title"}

func TestPublishOneResultPerTarget(t *testing.T) {
	pub := newTestPublisher(t)
	for _, p := range []model.Platform{model.PlatformInstagram, model.PlatformX, model.PlatformTikTok} {
		pub.RegisterDriver(&fakeDriver{platform: p})
		storeCookies(t, pub, p)
	}

	targets := []model.Platform{
		model.PlatformInstagram, model.PlatformX,
		model.PlatformTikTok, model.PlatformInstagram, // duplicate
	}
	results, err := pub.Publish(context.Background(), testVideo(t), testMeta, targets)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("%d results, want one per distinct target", len(results))
	}
	for _, p := range []model.Platform{model.PlatformInstagram, model.PlatformX, model.PlatformTikTok} {
		r, ok := results[p]
		if !ok {
			t.Errorf("no result for %s", p)
			continue
		}
		if r.Outcome != model.OutcomeSuccess {
			t.Errorf("%s outcome %s, want success", p, r.Outcome)
		}
	}
}

func TestPublishDuplicateTargetUploadsOnce(t *testing.T) {
	pub := newTestPublisher(t)
	d := &fakeDriver{platform: model.PlatformTikTok}
	pub.RegisterDriver(d)
	storeCookies(t, pub, model.PlatformTikTok)

	_, err := pub.Publish(context.Background(), testVideo(t),
		testMeta, []model.Platform{model.PlatformTikTok, model.PlatformTikTok})
	if err != nil {
		t.Fatal(err)
	}
	if d.calls != 1 {
		t.Errorf("driver called %d times for a duplicated target, want 1", d.calls)
	}
}

func TestPublishRejectsInvalidMetadata(t *testing.T) {
	pub := newTestPublisher(t)
	pub.RegisterDriver(&fakeDriver{platform: model.PlatformTikTok})

	_, err := pub.Publish(context.Background(), testVideo(t),
		model.PublishMetadata{}, []model.Platform{model.PlatformTikTok})
	if err == nil {
		t.Error("blank title accepted")
	}
}

func TestPublishAbsentCredential(t *testing.T) {
	pub := newTestPublisher(t)
	d := &fakeDriver{platform: model.PlatformTikTok}
	pub.RegisterDriver(d)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformTikTok})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformTikTok].Outcome; got != model.OutcomeAuthRequired {
		t.Errorf("outcome %s, want auth_required", got)
	}
	if d.calls != 0 {
		t.Errorf("driver called %d times without a stored credential, want 0", d.calls)
	}
}

func TestPublishSelfAuthenticatedDriverSkipsStore(t *testing.T) {
	pub := newTestPublisher(t)
	d := &fakeDriver{platform: model.PlatformX, remoteID: "tweet1", selfAuth: true}
	pub.RegisterDriver(d)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformX})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformX]; got.Outcome != model.OutcomeSuccess || got.RemoteID != "tweet1" {
		t.Errorf("got %+v", got)
	}
	if d.calls != 1 {
		t.Errorf("driver called %d times, want 1", d.calls)
	}
}

func TestPublishRetriesOnceAfterReauth(t *testing.T) {
	pub := newTestPublisher(t)
	d := &fakeDriver{platform: model.PlatformInstagram, errs: []error{model.ErrAuthRequired}}
	fresh := model.CookieCredential([]model.Cookie{{Name: "sid", Value: "fresh"}})
	a := &fakeAuth{platform: model.PlatformInstagram, cred: fresh}
	pub.RegisterDriver(d)
	pub.RegisterAuthenticator(a)
	storeCookies(t, pub, model.PlatformInstagram)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformInstagram})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformInstagram].Outcome; got != model.OutcomeSuccess {
		t.Errorf("outcome %s, want success after retry", got)
	}
	if a.calls != 1 {
		t.Errorf("authenticated %d times, want 1", a.calls)
	}
	if d.calls != 2 {
		t.Errorf("driver called %d times, want initial + one retry", d.calls)
	}
	if got := d.creds[1].Cookies[0].Value; got != "fresh" {
		t.Errorf("retry used cookie %q, want the fresh credential", got)
	}

	// The fresh credential is persisted for later operations.
	stored, found, err := pub.Store().Get(context.Background(), model.PlatformInstagram)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if stored.Cookies[0].Value != "fresh" {
		t.Errorf("store kept %q, want the fresh credential", stored.Cookies[0].Value)
	}
}

func TestPublishSecondRejectionIsTerminal(t *testing.T) {
	pub := newTestPublisher(t)
	d := &fakeDriver{platform: model.PlatformInstagram, errs: []error{model.ErrAuthRequired, model.ErrAuthRequired}}
	a := &fakeAuth{platform: model.PlatformInstagram, cred: model.CookieCredential([]model.Cookie{{Name: "sid", Value: "fresh"}})}
	pub.RegisterDriver(d)
	pub.RegisterAuthenticator(a)
	storeCookies(t, pub, model.PlatformInstagram)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformInstagram})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformInstagram].Outcome; got != model.OutcomeFailure {
		t.Errorf("outcome %s, want failure after second rejection", got)
	}
	if a.calls != 1 {
		t.Errorf("authenticated %d times, want exactly 1", a.calls)
	}
	if d.calls != 2 {
		t.Errorf("driver called %d times, want exactly 2", d.calls)
	}
}

func TestPublishReauthFailure(t *testing.T) {
	pub := newTestPublisher(t)
	d := &fakeDriver{platform: model.PlatformTikTok, errs: []error{model.ErrAuthRequired}}
	a := &fakeAuth{platform: model.PlatformTikTok, err: errors.New("login window closed")}
	pub.RegisterDriver(d)
	pub.RegisterAuthenticator(a)
	storeCookies(t, pub, model.PlatformTikTok)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformTikTok})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformTikTok].Outcome; got != model.OutcomeFailure {
		t.Errorf("outcome %s, want failure", got)
	}
	if d.calls != 1 {
		t.Errorf("driver called %d times after failed re-auth, want 1", d.calls)
	}
}

func TestPublishFailureIsolation(t *testing.T) {
	pub := newTestPublisher(t)
	pub.RegisterDriver(&fakeDriver{platform: model.PlatformInstagram, errs: []error{fmt.Errorf("%w: share button missing", model.ErrUpload)}})
	pub.RegisterDriver(&fakeDriver{platform: model.PlatformTikTok})
	storeCookies(t, pub, model.PlatformInstagram)
	storeCookies(t, pub, model.PlatformTikTok)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformInstagram, model.PlatformTikTok})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformInstagram].Outcome; got != model.OutcomeFailure {
		t.Errorf("instagram outcome %s, want failure", got)
	}
	if got := results[model.PlatformTikTok].Outcome; got != model.OutcomeSuccess {
		t.Errorf("tiktok outcome %s, want success despite instagram failing", got)
	}
}

// One video to YouTube and TikTok: YouTube has a valid token and
// succeeds with a remote id, TikTok has no stored cookies and reports
// auth_required without any upload attempt.
func TestPublishMixedOutcomes(t *testing.T) {
	pub := newTestPublisher(t)
	yt := &fakeDriver{platform: model.PlatformYouTube, remoteID: "vid42"}
	tk := &fakeDriver{platform: model.PlatformTikTok}
	pub.RegisterDriver(yt)
	pub.RegisterDriver(tk)
	if err := pub.Store().Put(context.Background(), model.PlatformYouTube,
		model.OAuthCredential(&oauth2.Token{AccessToken: "at"})); err != nil {
		t.Fatal(err)
	}

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformYouTube, model.PlatformTikTok})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformYouTube]; got.Outcome != model.OutcomeSuccess || got.RemoteID != "vid42" {
		t.Errorf("youtube result %+v", got)
	}
	if got := results[model.PlatformTikTok].Outcome; got != model.OutcomeAuthRequired {
		t.Errorf("tiktok outcome %s, want auth_required", got)
	}
	if tk.calls != 0 {
		t.Errorf("tiktok driver called %d times, want 0", tk.calls)
	}
}

func TestPublishUnregisteredPlatform(t *testing.T) {
	pub := newTestPublisher(t)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformX})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[model.PlatformX].Outcome; got != model.OutcomeFailure {
		t.Errorf("outcome %s, want failure for an unregistered platform", got)
	}
}

func TestPublishNotifiesOnce(t *testing.T) {
	pub := newTestPublisher(t)
	pub.RegisterDriver(&fakeDriver{platform: model.PlatformTikTok})
	storeCookies(t, pub, model.PlatformTikTok)
	n := &fakeNotifier{}
	pub.SetNotifier(n)

	results, err := pub.Publish(context.Background(), testVideo(t), testMeta,
		[]model.Platform{model.PlatformTikTok})
	if err != nil {
		t.Fatal(err)
	}
	if n.calls != 1 {
		t.Errorf("notified %d times, want 1", n.calls)
	}
	if len(n.results) != len(results) {
		t.Errorf("notifier saw %d results, want %d", len(n.results), len(results))
	}
}
