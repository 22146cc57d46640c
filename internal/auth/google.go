package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"crosspost/internal/model"
)

// GoogleAuthenticator owns the YouTube OAuth client. The client
// settings are validated once at construction; a missing setting
// disables every YouTube flow until the environment is fixed.
type GoogleAuthenticator struct {
	cfg *oauth2.Config

	mu      sync.Mutex
	pending *PendingExchange
}

func NewGoogle(clientID, clientSecret, redirectURI string) (*GoogleAuthenticator, error) {
	if clientID == "" || clientSecret == "" || redirectURI == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URI must be set", model.ErrAuthConfig)
	}
	return &GoogleAuthenticator{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{youtube.YoutubeUploadScope},
			Endpoint:     google.Endpoint,
		},
	}, nil
}

func (g *GoogleAuthenticator) Platform() model.Platform {
	return model.PlatformYouTube
}

// OAuthConfig exposes the client config for building authenticated
// YouTube API clients.
func (g *GoogleAuthenticator) OAuthConfig() *oauth2.Config {
	return g.cfg
}

// AuthCodeURL builds the consent URL scoped to the upload capability.
func (g *GoogleAuthenticator) AuthCodeURL() string {
	return g.cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange swaps an authorization code for a token set. The client
// secret stays server-side; callers only ever see the resulting
// tokens.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAuthExchange, err)
	}
	return tok, nil
}

// Begin arms a fresh pending-exchange handle for an interactive
// consent flow. Any previously armed handle is replaced.
func (g *GoogleAuthenticator) Begin() *PendingExchange {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = NewPendingExchange()
	return g.pending
}

// DeliverCode resolves the armed pending exchange, if any. Returns
// false when no flow is waiting.
func (g *GoogleAuthenticator) DeliverCode(code string) bool {
	g.mu.Lock()
	p := g.pending
	g.mu.Unlock()
	if p == nil {
		return false
	}
	return p.Resolve(code) == nil
}

// Authenticate refreshes the stored token set. Interactive consent is
// not possible here, so a credential without a refresh token fails
// with an exchange error and the user has to log in again.
func (g *GoogleAuthenticator) Authenticate(ctx context.Context, prior model.Credential) (model.Credential, error) {
	if prior.Token == nil || prior.Token.RefreshToken == "" {
		return model.Credential{}, fmt.Errorf("%w: no refresh token on file", model.ErrAuthExchange)
	}

	// Drop the access token so the token source performs a real
	// refresh instead of handing the stale token back.
	stale := *prior.Token
	stale.AccessToken = ""

	tok, err := g.cfg.TokenSource(ctx, &stale).Token()
	if err != nil {
		return model.Credential{}, fmt.Errorf("%w: %v", model.ErrAuthExchange, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = prior.Token.RefreshToken
	}
	return model.OAuthCredential(tok), nil
}
