// Package drivers contains one upload driver per platform family: a
// typed YouTube API driver and scripted browser-automation drivers
// for the platforms without a usable upload API.
package drivers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"crosspost/internal/model"
)

// Driver performs the actual remote publish for one platform.
type Driver interface {
	Platform() model.Platform
	// Upload publishes the video and returns the remote identifier
	// when the platform exposes one. A rejected or missing credential
	// fails with model.ErrAuthRequired.
	Upload(ctx context.Context, cred model.Credential, video *model.VideoAsset, meta model.PublishMetadata) (string, error)
}

// writeTempVideo spills the video payload to a scoped temporary file.
// The returned cleanup must run on every exit path.
func writeTempVideo(v *model.VideoAsset) (string, func(), error) {
	path := filepath.Join(os.TempDir(), "crosspost-"+uuid.NewString()+v.Ext())
	if err := os.WriteFile(path, v.Data, 0o600); err != nil {
		return "", nil, err
	}
	return path, func() { _ = os.Remove(path) }, nil
}
