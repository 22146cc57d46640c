package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly"

	"crosspost/internal/model"
)

// probeURLs are signed-in surfaces that bounce anonymous visitors to
// a login page.
var probeURLs = map[model.Platform]string{
	model.PlatformYouTube:   "https://studio.youtube.com/",
	model.PlatformInstagram: "https://www.instagram.com/",
	model.PlatformX:         "https://x.com/home",
	model.PlatformTikTok:    "https://www.tiktok.com/foryou",
}

// ProbeSession replays a stored cookie jar against the platform's
// signed-in surface and reports whether the session still looks
// alive. It is a cheap hint only; real staleness is detected when an
// upload is rejected.
func ProbeSession(p model.Platform, cookies []model.Cookie) (bool, error) {
	target, ok := probeURLs[p]
	if !ok {
		return false, fmt.Errorf("%w: %q", model.ErrUnsupportedPlatform, p)
	}
	if len(cookies) == 0 {
		return false, nil
	}

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
	)
	c.SetRequestTimeout(20 * time.Second)

	jar := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		jar = append(jar, &http.Cookie{Name: ck.Name, Value: ck.Value, Domain: ck.Domain, Path: ck.Path})
	}
	if err := c.SetCookies(target, jar); err != nil {
		return false, err
	}

	alive := false
	c.OnResponse(func(r *colly.Response) {
		// A dead session gets redirected to a login page.
		alive = r.StatusCode == http.StatusOK && !strings.Contains(strings.ToLower(r.Request.URL.Path), "login")
	})

	if err := c.Visit(target); err != nil {
		return false, err
	}
	return alive, nil
}
