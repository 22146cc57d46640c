package drivers

import (
	"time"

	"github.com/chromedp/chromedp"
)

// InstagramScript posts the video as a new Instagram post: open the
// composer from the home page, attach the file, advance to the
// caption screen, write the caption and share.
func InstagramScript(settle time.Duration) Script {
	return func(videoPath, caption string) []Step {
		return []Step{
			{"open-home", stepWait, chromedp.Navigate("https://www.instagram.com")},
			{"open-composer", stepWait, chromedp.Click(`svg[aria-label="New post"]`, chromedp.ByQuery)},
			{"attach-video", stepWait, chromedp.SetUploadFiles(`input[type="file"]`, []string{videoPath}, chromedp.ByQuery)},
			{"next", stepWait, chromedp.Click(`//button[contains(., "Next")]`)},
			{"write-caption", stepWait, chromedp.SendKeys(`textarea[aria-label="Write a caption..."]`, caption, chromedp.ByQuery)},
			{"share", stepWait, chromedp.Click(`//button[contains(., "Share")]`)},
			{"await-post", settle + stepWait, chromedp.Sleep(settle)},
		}
	}
}
