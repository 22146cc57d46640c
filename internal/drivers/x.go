package drivers

import (
	"time"

	"github.com/chromedp/chromedp"
)

// XScript posts the video through the tweet composer.
func XScript(settle time.Duration) Script {
	return func(videoPath, caption string) []Step {
		return []Step{
			{"open-composer", stepWait, chromedp.Navigate("https://twitter.com/compose/tweet")},
			{"attach-video", stepWait, chromedp.SetUploadFiles(`input[type="file"][multiple]`, []string{videoPath}, chromedp.ByQuery)},
			{"write-post", stepWait, chromedp.SendKeys(`div[data-testid="tweetTextarea_0"]`, caption, chromedp.ByQuery)},
			{"post", stepWait, chromedp.Click(`div[data-testid="tweetButtonInline"]`, chromedp.ByQuery)},
			{"await-post", settle + stepWait, chromedp.Sleep(settle)},
		}
	}
}
