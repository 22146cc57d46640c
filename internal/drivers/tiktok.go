package drivers

import (
	"time"

	"github.com/chromedp/chromedp"
)

// TikTokScript posts the video through the upload page.
func TikTokScript(settle time.Duration) Script {
	return func(videoPath, caption string) []Step {
		return []Step{
			{"open-upload", stepWait, chromedp.Navigate("https://www.tiktok.com/upload?lang=en")},
			{"attach-video", stepWait, chromedp.SetUploadFiles(`input[type="file"]`, []string{videoPath}, chromedp.ByQuery)},
			{"write-caption", stepWait, chromedp.SendKeys(`div[data-text="true"]`, caption, chromedp.ByQuery)},
			{"post", stepWait, chromedp.Click(`button[data-e2e="upload-button"]`, chromedp.ByQuery)},
			{"await-post", settle + stepWait, chromedp.Sleep(settle)},
		}
	}
}
