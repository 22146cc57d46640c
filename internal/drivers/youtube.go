package drivers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// YouTubeDriver uploads through the YouTube Data API with a single
// videos.insert call carrying snippet and status, the content
// streamed from a scoped temporary file.
type YouTubeDriver struct {
	// oauthCfg refreshes expired tokens during the call when the
	// OAuth client is configured; otherwise the stored token is used
	// as-is.
	oauthCfg *oauth2.Config
	log      *logging.Logger
	opts     []option.ClientOption
}

func NewYouTube(oauthCfg *oauth2.Config, log *logging.Logger, opts ...option.ClientOption) *YouTubeDriver {
	return &YouTubeDriver{oauthCfg: oauthCfg, log: log, opts: opts}
}

func (d *YouTubeDriver) Platform() model.Platform {
	return model.PlatformYouTube
}

func (d *YouTubeDriver) Upload(ctx context.Context, cred model.Credential, video *model.VideoAsset, meta model.PublishMetadata) (string, error) {
	if cred.Token == nil || cred.Token.AccessToken == "" {
		return "", fmt.Errorf("%w: no YouTube token on file", model.ErrAuthRequired)
	}

	var src oauth2.TokenSource
	if d.oauthCfg != nil {
		src = d.oauthCfg.TokenSource(ctx, cred.Token)
	} else {
		src = oauth2.StaticTokenSource(cred.Token)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(src)}, d.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create youtube client: %w", err)
	}

	videoPath, cleanup, err := writeTempVideo(video)
	if err != nil {
		return "", fmt.Errorf("spool video: %w", err)
	}
	defer cleanup()

	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open spooled video: %w", err)
	}
	defer f.Close()

	resource := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	d.log.Infof("[youtube] inserting video %q", meta.Title)
	res, err := svc.Videos.Insert([]string{"snippet", "status"}, resource).Media(f).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: youtube rejected the token: %v", model.ErrAuthRequired, err)
		}
		return "", fmt.Errorf("%w: youtube insert: %v", model.ErrUpload, err)
	}
	return res.Id, nil
}
