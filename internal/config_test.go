package internal

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8787" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.StoreBackend != "file" || cfg.CredentialsDir != ".credentials" {
		t.Errorf("store defaults: %q %q", cfg.StoreBackend, cfg.CredentialsDir)
	}
	if cfg.OAuthWaitTimeout != 5*time.Minute {
		t.Errorf("OAuthWaitTimeout = %s", cfg.OAuthWaitTimeout)
	}
	if cfg.SettleDelay != 8*time.Second {
		t.Errorf("SettleDelay = %s", cfg.SettleDelay)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("STORE_BACKEND", "s3")
	t.Setenv("HEADLESS", "true")
	t.Setenv("OAUTH_WAIT_TIMEOUT", "90s")
	t.Setenv("NOTIFY_CHAT_ID", "12345")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9000" || cfg.StoreBackend != "s3" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.Headless {
		t.Error("HEADLESS=true not applied")
	}
	if cfg.OAuthWaitTimeout != 90*time.Second {
		t.Errorf("OAuthWaitTimeout = %s", cfg.OAuthWaitTimeout)
	}
	if cfg.NotifyChatID != 12345 {
		t.Errorf("NotifyChatID = %d", cfg.NotifyChatID)
	}
}

func TestConfigFeatureChecks(t *testing.T) {
	var cfg Config
	if cfg.HasGoogleOAuth() || cfg.HasXAPI() {
		t.Error("empty config should disable optional integrations")
	}

	cfg.GoogleClientID = "id"
	cfg.GoogleClientSecret = "secret"
	if cfg.HasGoogleOAuth() {
		t.Error("partial oauth config should not count")
	}
	cfg.GoogleRedirectURI = "http://localhost/cb"
	if !cfg.HasGoogleOAuth() {
		t.Error("complete oauth config not detected")
	}

	cfg.XConsumerKey, cfg.XConsumerSecret = "ck", "cs"
	if cfg.HasXAPI() {
		t.Error("partial x api config should not count")
	}
	cfg.XAccessToken, cfg.XAccessTokenSecret = "at", "ats"
	if !cfg.HasXAPI() {
		t.Error("complete x api config not detected")
	}
}
