package internal

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string

	// Google OAuth client settings. Their absence disables every
	// YouTube flow but is not fatal for the rest of the app.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// Credential store backend: "file" (default) or "s3".
	StoreBackend   string
	CredentialsDir string

	S3Endpoint   string
	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	TokensPrefix string

	// Browser automation. Login harvesting always runs headful so the
	// user can complete the manual steps; Headless only affects the
	// upload scripts.
	Headless    bool
	SettleDelay time.Duration

	// Bound on waiting for the OAuth authorization code to come back
	// from the consent window.
	OAuthWaitTimeout time.Duration

	// Optional API-based X publishing. When all four are set the X
	// target posts through the API instead of the UI script.
	XConsumerKey       string
	XConsumerSecret    string
	XAccessToken       string
	XAccessTokenSecret string

	// Optional Telegram notification of publish results.
	TelegramToken string
	NotifyChatID  int64
}

func LoadConfig() (Config, error) {
	cfg := Config{
		ListenAddr: ":8787",

		GoogleClientID:     firstNonEmpty(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_OAUTH_CLIENT_ID")),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),

		StoreBackend:   "file",
		CredentialsDir: ".credentials",

		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Region:     os.Getenv("S3_REGION"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3AccessKey:  firstNonEmpty(os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_ACCESS_KEY_ID")),
		S3SecretKey:  firstNonEmpty(os.Getenv("S3_SECRET_ACCESS_KEY"), os.Getenv("S3_SECRET_ACCESS_KEY_ID")),
		TokensPrefix: "tokens/",

		Headless:         false,
		SettleDelay:      8 * time.Second,
		OAuthWaitTimeout: 5 * time.Minute,

		XConsumerKey:       os.Getenv("X_CONSUMER_KEY"),
		XConsumerSecret:    os.Getenv("X_CONSUMER_SECRET"),
		XAccessToken:       os.Getenv("X_ACCESS_TOKEN"),
		XAccessTokenSecret: os.Getenv("X_ACCESS_TOKEN_SECRET"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CREDENTIALS_DIR"); v != "" {
		cfg.CredentialsDir = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		cfg.Headless = v != "false" && v != "0"
	}
	if v := os.Getenv("SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SettleDelay = d
		}
	}
	if v := os.Getenv("OAUTH_WAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OAuthWaitTimeout = d
		}
	}
	if v := os.Getenv("NOTIFY_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NotifyChatID = n
		}
	}

	return cfg, nil
}

// HasGoogleOAuth reports whether the YouTube OAuth client is usable.
func (c Config) HasGoogleOAuth() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

// HasXAPI reports whether the API-based X driver can be used.
func (c Config) HasXAPI() bool {
	return c.XConsumerKey != "" && c.XConsumerSecret != "" && c.XAccessToken != "" && c.XAccessTokenSecret != ""
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
