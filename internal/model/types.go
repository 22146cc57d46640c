package model

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Platform is one of the supported publish targets.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformX         Platform = "x"
	PlatformTikTok    Platform = "tiktok"
)

// Platforms returns all supported platforms in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformYouTube, PlatformInstagram, PlatformX, PlatformTikTok}
}

// ParsePlatform maps a user-supplied platform name to a Platform.
// Names are matched case-insensitively; "twitter" is accepted as an
// alias for X.
func ParsePlatform(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "youtube":
		return PlatformYouTube, nil
	case "instagram":
		return PlatformInstagram, nil
	case "x", "twitter":
		return PlatformX, nil
	case "tiktok":
		return PlatformTikTok, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, name)
	}
}

// UsesOAuth reports whether the platform authenticates with an OAuth
// token set rather than harvested session cookies.
func (p Platform) UsesOAuth() bool {
	return p == PlatformYouTube
}

// VideoAsset is the binary video content for one publish operation.
type VideoAsset struct {
	Name     string
	MimeType string
	Data     []byte
}

// Allowed upload MIME types (.mp4 and .mov).
const (
	MimeMP4       = "video/mp4"
	MimeQuicktime = "video/quicktime"
)

// NewVideoAsset validates the MIME type and wraps the content.
func NewVideoAsset(name, mimeType string, data []byte) (*VideoAsset, error) {
	if mimeType != MimeMP4 && mimeType != MimeQuicktime {
		return nil, fmt.Errorf("unsupported video type %q (want %s or %s)", mimeType, MimeMP4, MimeQuicktime)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty video content")
	}
	if name == "" {
		name = "video"
	}
	return &VideoAsset{Name: name, MimeType: mimeType, Data: data}, nil
}

// MimeForExt maps an upload file extension to its MIME type, or ""
// when the extension is not an accepted video type.
func MimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp4":
		return MimeMP4
	case ".mov":
		return MimeQuicktime
	default:
		return ""
	}
}

// Ext returns the file extension matching the declared MIME type.
func (v *VideoAsset) Ext() string {
	if v.MimeType == MimeQuicktime {
		return ".mov"
	}
	return ".mp4"
}

// PublishMetadata is the shared title/description/tags for one publish
// operation. It is immutable once a publish starts.
type PublishMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ParseTags splits a comma-separated tag string into trimmed,
// non-empty tags, preserving order.
func ParseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Validate checks the metadata invariants.
func (m PublishMetadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Caption composes the text posted by the UI automation platforms:
// title, description and "#tag" tokens separated by blank lines.
func (m PublishMetadata) Caption() string {
	hashtags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		hashtags = append(hashtags, "#"+t)
	}
	return m.Title + "\n\n" + m.Description + "\n\n" + strings.Join(hashtags, " ")
}

// CredentialKind tags the two credential shapes.
type CredentialKind string

const (
	CredentialOAuth   CredentialKind = "oauth"
	CredentialCookies CredentialKind = "cookies"
)

// Cookie is one harvested browser session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// Credential is the tagged union of an OAuth token set (YouTube) and a
// session cookie jar (the other platforms). A credential whose shape
// does not match its platform is a programming error, rejected at the
// store boundary.
type Credential struct {
	Kind    CredentialKind `json:"kind"`
	Token   *oauth2.Token  `json:"token,omitempty"`
	Cookies []Cookie       `json:"cookies,omitempty"`
}

// OAuthCredential wraps a token set.
func OAuthCredential(tok *oauth2.Token) Credential {
	return Credential{Kind: CredentialOAuth, Token: tok}
}

// CookieCredential wraps a harvested cookie jar.
func CookieCredential(cookies []Cookie) Credential {
	return Credential{Kind: CredentialCookies, Cookies: cookies}
}

// Empty reports whether the credential carries nothing usable.
func (c Credential) Empty() bool {
	return c.Token == nil && len(c.Cookies) == 0
}

// Matches reports whether the credential shape fits the platform.
func (c Credential) Matches(p Platform) bool {
	if p.UsesOAuth() {
		return c.Kind == CredentialOAuth
	}
	return c.Kind == CredentialCookies
}

// Outcome classifies one platform's terminal publish result.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeAuthRequired Outcome = "auth_required"
	OutcomeFailure      Outcome = "failure"
)

// PublishResult is the terminal result for one requested platform.
type PublishResult struct {
	Platform Platform `json:"platform"`
	Outcome  Outcome  `json:"outcome"`
	RemoteID string   `json:"remote_id,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

func Success(p Platform, remoteID string) PublishResult {
	return PublishResult{Platform: p, Outcome: OutcomeSuccess, RemoteID: remoteID}
}

func NeedsAuth(p Platform) PublishResult {
	return PublishResult{Platform: p, Outcome: OutcomeAuthRequired}
}

func Failed(p Platform, reason string) PublishResult {
	return PublishResult{Platform: p, Outcome: OutcomeFailure, Reason: reason}
}
