// Package main provides the crosspost CLI: serve the HTTP API, log in
// to platforms, and publish a video to several of them at once.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crosspost/internal"
	"crosspost/internal/auth"
	"crosspost/internal/browser"
	"crosspost/internal/credstore"
	"crosspost/internal/drivers"
	"crosspost/internal/logging"
	"crosspost/internal/model"
	"crosspost/internal/notify"
	"crosspost/internal/publisher"
	"crosspost/internal/server"
)

func main() {
	// Load .env file if it exists (try multiple paths)
	for _, path := range []string{".env", "../.env"} {
		_ = godotenv.Load(path)
	}

	log, err := logging.New("errors.log")
	if err != nil {
		panic(err)
	}
	defer log.Close()

	if err := newRootCmd(log).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(log *logging.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "crosspost",
		Short: "Publish one video to YouTube, Instagram, X and TikTok",
	}
	root.AddCommand(newServeCmd(log))
	root.AddCommand(newLoginCmd(log))
	root.AddCommand(newPublishCmd(log))
	return root
}

// app bundles everything a command needs.
type app struct {
	cfg    internal.Config
	store  credstore.Store
	google *auth.GoogleAuthenticator // nil when OAuth config is missing
	pub    *publisher.Publisher
	// headful sessions for interactive logins, scripted sessions for
	// uploads.
	headful  browser.Factory
	scripted browser.Factory
	log      *logging.Logger
}

func buildApp(log *logging.Logger) (*app, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return nil, err
	}

	var store credstore.Store
	if cfg.StoreBackend == "s3" {
		store, err = credstore.NewS3(cfg)
	} else {
		store, err = credstore.NewFile(cfg.CredentialsDir)
	}
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		pub:      publisher.New(store, log),
		headful:  browser.NewFactory(browser.Options{Headless: false}),
		scripted: browser.NewFactory(browser.Options{Headless: cfg.Headless}),
		log:      log,
	}

	a.google, err = auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	if err != nil {
		// YouTube stays disabled until the environment is fixed; the
		// other platforms keep working.
		log.Errorf("youtube disabled: %v", err)
		a.google = nil
	}

	if a.google != nil {
		a.pub.RegisterAuthenticator(a.google)
		a.pub.RegisterDriver(drivers.NewYouTube(a.google.OAuthConfig(), log))
	} else {
		a.pub.RegisterDriver(drivers.NewYouTube(nil, log))
	}

	for _, p := range []model.Platform{model.PlatformInstagram, model.PlatformX, model.PlatformTikTok} {
		ca, err := auth.NewCookieAuthenticator(p, a.headful, log)
		if err != nil {
			return nil, err
		}
		a.pub.RegisterAuthenticator(ca)
	}

	a.pub.RegisterDriver(drivers.NewScripted(model.PlatformInstagram, drivers.InstagramScript(cfg.SettleDelay), a.scripted, log))
	a.pub.RegisterDriver(drivers.NewScripted(model.PlatformTikTok, drivers.TikTokScript(cfg.SettleDelay), a.scripted, log))
	if cfg.HasXAPI() {
		a.pub.RegisterDriver(drivers.NewXAPI(cfg.XConsumerKey, cfg.XConsumerSecret, cfg.XAccessToken, cfg.XAccessTokenSecret, log))
	} else {
		a.pub.RegisterDriver(drivers.NewScripted(model.PlatformX, drivers.XScript(cfg.SettleDelay), a.scripted, log))
	}

	if cfg.TelegramToken != "" && cfg.NotifyChatID != 0 {
		n, err := notify.NewTelegram(cfg.TelegramToken, cfg.NotifyChatID, log)
		if err != nil {
			log.Errorf("telegram notifier disabled: %v", err)
		} else {
			a.pub.SetNotifier(n)
		}
	}

	return a, nil
}

// loginFunc runs the interactive cookie harvest for the HTTP login
// endpoint.
func (a *app) loginFunc() server.LoginFunc {
	return func(ctx context.Context, p model.Platform) (model.Credential, error) {
		ca, err := auth.NewCookieAuthenticator(p, a.headful, a.log)
		if err != nil {
			return model.Credential{}, err
		}
		return ca.Authenticate(ctx, model.Credential{})
	}
}

func newServeCmd(log *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the auth and publish HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Infof("shutdown signal received")
				cancel()
			}()

			srv := server.New(a.cfg, log, a.store, a.google, a.loginFunc(), a.pub)
			for _, p := range model.Platforms() {
				if d, ok := a.pub.Driver(p); ok {
					srv.RegisterDriver(d)
				}
			}
			return srv.Run(ctx)
		},
	}
}

func newLoginCmd(log *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "login <platform>",
		Short: "Log in to a platform and store the credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := model.ParsePlatform(args[0])
			if err != nil {
				return err
			}
			a, err := buildApp(log)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if platform.UsesOAuth() {
				return a.oauthLogin(ctx, cmd)
			}

			ca, err := auth.NewCookieAuthenticator(platform, a.headful, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "A browser window will open for %s. Log in manually and wait.\n", platform)
			cred, err := ca.Authenticate(ctx, model.Credential{})
			if err != nil {
				return err
			}
			if err := a.store.Put(ctx, platform, cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s (%d cookies stored).\n", platform, len(cred.Cookies))
			return nil
		},
	}
}

func (a *app) oauthLogin(ctx context.Context, cmd *cobra.Command) error {
	if a.google == nil {
		return fmt.Errorf("google oauth is not configured")
	}

	authURL := a.google.AuthCodeURL()
	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser:\n  %s\n", authURL)
	if err := openURL(authURL); err != nil {
		a.log.Infof("could not open browser: %v", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), "Paste the authorization code: ")

	pending := a.google.Begin()
	go func() {
		var code string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &code); err == nil && code != "" {
			_ = pending.Resolve(code)
		}
	}()

	code, err := pending.Await(ctx, a.cfg.OAuthWaitTimeout)
	if err != nil {
		return err
	}
	tok, err := a.google.Exchange(ctx, code)
	if err != nil {
		return err
	}
	if err := a.store.Put(ctx, model.PlatformYouTube, model.OAuthCredential(tok)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "YouTube token stored.")
	return nil
}

func newPublishCmd(log *logging.Logger) *cobra.Command {
	var (
		file        string
		title       string
		description string
		tags        string
		platforms   string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a video to the selected platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(log)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			mimeType := model.MimeForExt(filepath.Ext(file))
			video, err := model.NewVideoAsset(filepath.Base(file), mimeType, data)
			if err != nil {
				return err
			}

			var targets []model.Platform
			for _, name := range strings.Split(platforms, ",") {
				p, err := model.ParsePlatform(name)
				if err != nil {
					return err
				}
				targets = append(targets, p)
			}

			meta := model.PublishMetadata{
				Title:       title,
				Description: description,
				Tags:        model.ParseTags(tags),
			}

			results, err := a.pub.Publish(ctx, video, meta, targets)
			if err != nil {
				return err
			}

			failed := false
			for _, p := range model.Platforms() {
				r, ok := results[p]
				if !ok {
					continue
				}
				switch r.Outcome {
				case model.OutcomeSuccess:
					if r.RemoteID != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: published (%s)\n", p, r.RemoteID)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: published\n", p)
					}
				case model.OutcomeAuthRequired:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: login required (run `crosspost login %s`)\n", p, p)
					failed = true
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %s\n", p, r.Reason)
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("some platforms did not publish")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "video file (.mp4 or .mov)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "video title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "video description")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVarP(&platforms, "platforms", "p", "", "comma-separated target platforms")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("platforms")
	return cmd
}

// openURL opens the URL in the default browser.
func openURL(url string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}
