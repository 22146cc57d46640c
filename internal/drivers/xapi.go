package drivers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/tidwall/gjson"

	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// XAPIDriver posts through the X API v2 chunked media upload instead
// of the UI script. Selected when X API keys are configured; it signs
// requests itself, so it ignores the stored cookie jar.
type XAPIDriver struct {
	httpClient *http.Client
	apiBase    string
	log        *logging.Logger
}

func NewXAPI(consumerKey, consumerSecret, accessToken, accessTokenSecret string, log *logging.Logger) *XAPIDriver {
	config := oauth1.NewConfig(consumerKey, consumerSecret)
	token := oauth1.NewToken(accessToken, accessTokenSecret)
	return &XAPIDriver{
		httpClient: config.Client(context.Background(), token),
		apiBase:    "https://api.x.com/2",
		log:        log,
	}
}

func (d *XAPIDriver) Platform() model.Platform {
	return model.PlatformX
}

// SelfAuthenticated marks the driver as carrying its own credentials,
// so the publisher skips the stored-credential check.
func (d *XAPIDriver) SelfAuthenticated() bool { return true }

func (d *XAPIDriver) Upload(ctx context.Context, _ model.Credential, video *model.VideoAsset, meta model.PublishMetadata) (string, error) {
	mediaID, err := d.uploadMedia(ctx, video)
	if err != nil {
		return "", err
	}

	body, _ := json.Marshal(map[string]any{
		"text": meta.Caption(),
		"media": map[string]any{
			"media_ids": []string{mediaID},
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBase+"/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create post: %v", model.ErrUpload, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: x rejected the api credentials", model.ErrAuthRequired)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: create post: status %d: %s", model.ErrUpload, resp.StatusCode, truncate(respBody, 200))
	}
	return gjson.GetBytes(respBody, "data.id").String(), nil
}

// uploadMedia runs the v2 initialize / append / finalize sequence and
// polls processing until the media is ready.
func (d *XAPIDriver) uploadMedia(ctx context.Context, video *model.VideoAsset) (string, error) {
	initBody, _ := json.Marshal(map[string]any{
		"media_type":     video.MimeType,
		"total_bytes":    len(video.Data),
		"media_category": "tweet_video",
	})
	b, status, err := d.post(ctx, d.apiBase+"/media/upload/initialize", "application/json", bytes.NewReader(initBody))
	if err != nil {
		return "", fmt.Errorf("%w: media initialize: %v", model.ErrUpload, err)
	}
	if status == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: x rejected the api credentials", model.ErrAuthRequired)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: media initialize: status %d: %s", model.ErrUpload, status, truncate(b, 200))
	}
	mediaID := gjson.GetBytes(b, "data.id").String()

	const chunkSize = 5 * 1024 * 1024
	for i := 0; i < len(video.Data); i += chunkSize {
		end := min(i+chunkSize, len(video.Data))

		var form bytes.Buffer
		writer := multipart.NewWriter(&form)
		_ = writer.WriteField("segment_index", strconv.Itoa(i/chunkSize))
		part, _ := writer.CreateFormFile("media", video.Name)
		_, _ = part.Write(video.Data[i:end])
		_ = writer.Close()

		b, status, err = d.post(ctx, fmt.Sprintf("%s/media/upload/%s/append", d.apiBase, mediaID), writer.FormDataContentType(), &form)
		if err != nil {
			return "", fmt.Errorf("%w: media append: %v", model.ErrUpload, err)
		}
		if status != http.StatusOK {
			return "", fmt.Errorf("%w: media append: status %d: %s", model.ErrUpload, status, truncate(b, 200))
		}
	}

	b, status, err = d.post(ctx, fmt.Sprintf("%s/media/upload/%s/finalize", d.apiBase, mediaID), "", nil)
	if err != nil {
		return "", fmt.Errorf("%w: media finalize: %v", model.ErrUpload, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: media finalize: status %d: %s", model.ErrUpload, status, truncate(b, 200))
	}

	// Video media is usually processed asynchronously.
	state := gjson.GetBytes(b, "data.processing_info.state")
	for attempt := 0; state.Exists() && state.String() != "succeeded" && attempt < 60; attempt++ {
		if state.String() == "failed" {
			return "", fmt.Errorf("%w: media processing failed", model.ErrUpload)
		}
		wait := gjson.GetBytes(b, "data.processing_info.check_after_secs").Int()
		if wait == 0 {
			wait = 1
		}
		select {
		case <-time.After(time.Duration(wait) * time.Second):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/media/upload?command=STATUS&media_id=%s", d.apiBase, mediaID), nil)
		if err != nil {
			return "", err
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: media status: %v", model.ErrUpload, err)
		}
		b, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: media status: status %d: %s", model.ErrUpload, resp.StatusCode, truncate(b, 200))
		}
		state = gjson.GetBytes(b, "data.processing_info.state")
	}

	return mediaID, nil
}

func (d *XAPIDriver) post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return b, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
