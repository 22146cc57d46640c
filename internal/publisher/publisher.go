// Package publisher sequences authentication and upload across all
// requested platforms and aggregates the per-platform outcomes.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"crosspost/internal/credstore"
	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// Driver performs the remote publish for one platform.
type Driver interface {
	Platform() model.Platform
	Upload(ctx context.Context, cred model.Credential, video *model.VideoAsset, meta model.PublishMetadata) (string, error)
}

// Authenticator obtains or refreshes a credential for one platform.
type Authenticator interface {
	Platform() model.Platform
	Authenticate(ctx context.Context, prior model.Credential) (model.Credential, error)
}

// selfAuthenticating is implemented by drivers that carry their own
// credentials and never read the store.
type selfAuthenticating interface {
	SelfAuthenticated() bool
}

// Notifier receives the aggregate result set after every platform has
// reached a terminal outcome.
type Notifier interface {
	NotifyResults(ctx context.Context, meta model.PublishMetadata, results map[model.Platform]model.PublishResult)
}

// Publisher drives one publish operation across a set of platforms.
// Platforms are processed one at a time; nothing failing in one
// platform's pipeline aborts another's.
type Publisher struct {
	store    credstore.Store
	drivers  map[model.Platform]Driver
	auths    map[model.Platform]Authenticator
	notifier Notifier
	log      *logging.Logger
}

func New(store credstore.Store, log *logging.Logger) *Publisher {
	return &Publisher{
		store:   store,
		drivers: make(map[model.Platform]Driver),
		auths:   make(map[model.Platform]Authenticator),
		log:     log,
	}
}

func (p *Publisher) RegisterDriver(d Driver) {
	p.drivers[d.Platform()] = d
}

func (p *Publisher) RegisterAuthenticator(a Authenticator) {
	p.auths[a.Platform()] = a
}

func (p *Publisher) SetNotifier(n Notifier) {
	p.notifier = n
}

// Driver returns the registered driver for a platform.
func (p *Publisher) Driver(target model.Platform) (Driver, bool) {
	d, ok := p.drivers[target]
	return d, ok
}

// Store exposes the credential store backing this publisher.
func (p *Publisher) Store() credstore.Store {
	return p.store
}

// Publish uploads one video with shared metadata to every requested
// platform and returns exactly one terminal result per target. The
// result map is complete before it is returned; there is no partial
// streaming.
func (p *Publisher) Publish(ctx context.Context, video *model.VideoAsset, meta model.PublishMetadata, targets []model.Platform) (map[model.Platform]model.PublishResult, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	results := make(map[model.Platform]model.PublishResult, len(targets))
	for _, target := range lo.Uniq(targets) {
		results[target] = p.publishOne(ctx, target, video, meta)
	}

	if p.notifier != nil {
		p.notifier.NotifyResults(ctx, meta, results)
	}
	return results, nil
}

func (p *Publisher) publishOne(ctx context.Context, target model.Platform, video *model.VideoAsset, meta model.PublishMetadata) model.PublishResult {
	driver, ok := p.drivers[target]
	if !ok {
		return model.Failed(target, fmt.Sprintf("no driver registered for %s", target))
	}

	cred, found, err := p.store.Get(ctx, target)
	if err != nil {
		return model.Failed(target, fmt.Sprintf("read credential: %v", err))
	}
	if !found && !carriesOwnCredentials(driver) {
		// No stored credential: report without touching the network.
		return model.NeedsAuth(target)
	}

	remoteID, err := driver.Upload(ctx, cred, video, meta)
	if err == nil {
		p.log.Infof("[%s] published, remote id %q", target, remoteID)
		return model.Success(target, remoteID)
	}
	if !errors.Is(err, model.ErrAuthRequired) {
		p.log.Errorf("[%s] upload failed: %v", target, err)
		return model.Failed(target, err.Error())
	}

	// The remote rejected the credential: re-authenticate once and
	// retry exactly once. A second rejection is terminal.
	auth, ok := p.auths[target]
	if !ok {
		return model.Failed(target, "credential rejected and no authenticator registered")
	}

	p.log.Infof("[%s] credential rejected, re-authenticating", target)
	fresh, err := auth.Authenticate(ctx, cred)
	if err != nil {
		p.log.Errorf("[%s] re-authentication failed: %v", target, err)
		return model.Failed(target, fmt.Sprintf("re-authentication failed: %v", err))
	}
	if err := p.store.Put(ctx, target, fresh); err != nil {
		// The retry can still use the fresh credential in hand.
		p.log.Errorf("[%s] persist refreshed credential: %v", target, err)
	}

	remoteID, err = driver.Upload(ctx, fresh, video, meta)
	if err != nil {
		p.log.Errorf("[%s] retry failed: %v", target, err)
		return model.Failed(target, err.Error())
	}
	p.log.Infof("[%s] published after re-authentication, remote id %q", target, remoteID)
	return model.Success(target, remoteID)
}

func carriesOwnCredentials(d Driver) bool {
	s, ok := d.(selfAuthenticating)
	return ok && s.SelfAuthenticated()
}
