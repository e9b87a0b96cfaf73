// Package main implements the ic19 commute client CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeGROOVE-dev/ic19/pkg/api"
	"github.com/codeGROOVE-dev/ic19/pkg/googlemaps"
	"github.com/codeGROOVE-dev/ic19/pkg/identity"
	"github.com/codeGROOVE-dev/ic19/pkg/location"
	"github.com/codeGROOVE-dev/ic19/pkg/onboarding"
	"github.com/codeGROOVE-dev/ic19/pkg/session"
	"github.com/codeGROOVE-dev/ic19/pkg/terminal"
)

var (
	apiURL     = flag.String("api", "", "Backend base URL (or set IC19_API_URL)")
	mapsAPIKey = flag.String("maps-key", "", "Google Maps API key, enables map capture (or set GOOGLE_MAPS_API_KEY)")
	stateDir   = flag.String("state-dir", "", "Directory for the stored identity and caches (or set IC19_STATE_DIR)")
	timeout    = flag.Duration("timeout", 30*time.Second, "HTTP request timeout")
	signOut    = flag.Bool("signout", false, "Forget the stored identity and exit")
	noColor    = flag.Bool("no-color", false, "Disable colored output")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	// A missing .env file is fine.
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Println("ic19 CLI v0.1.0")
		return
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}

	if *apiURL == "" {
		*apiURL = os.Getenv("IC19_API_URL")
	}
	if *mapsAPIKey == "" {
		*mapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	if *stateDir == "" {
		*stateDir = os.Getenv("IC19_STATE_DIR")
	}
	if *stateDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			*stateDir = filepath.Join(dir, "ic19")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, logger)
	switch {
	case err == nil, errors.Is(err, terminal.ErrQuit), errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		return
	default:
		stop()
		logger.Error("ic19 failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	store := identity.NewStore(openBackend(logger), logger)
	if *signOut {
		store.Clear()
		fmt.Println("Signed out.")
		return nil
	}

	consoleOpts := []terminal.Option{terminal.WithLogger(logger)}
	if *noColor {
		consoleOpts = append(consoleOpts, terminal.WithoutColor())
	}
	console := terminal.New(os.Stdin, os.Stdout, consoleOpts...)

	httpClient := &http.Client{Timeout: *timeout}
	client := api.NewClient(*apiURL, httpClient, logger)

	platform := location.Platform{Form: console.Form(), Logger: logger}
	if *mapsAPIKey != "" {
		var mapsOpts []googlemaps.Option
		if *stateDir != "" {
			mapsOpts = append(mapsOpts, googlemaps.WithCacheDir(*stateDir))
		}
		maps := googlemaps.NewClient(*mapsAPIKey, httpClient, logger, mapsOpts...)
		defer func() {
			if err := maps.Close(); err != nil {
				logger.Warn("failed to save label cache", "error", err)
			}
		}()
		platform.Surface = console.Surface()
		platform.Labeler = maps
		platform.Locator = location.Device{
			Permission: console.Permission,
			Position: func(ctx context.Context) (location.Coordinates, error) {
				loc, err := maps.CurrentPosition(ctx)
				return location.Coordinates(loc), err
			},
		}
	}
	capturer := location.Select(platform)
	logger.Debug("location capture selected", "map", platform.HasMap())

	sess := session.New(client, store, console, session.WithLogger(logger))
	state := sess.Boot(ctx)
	for {
		if state == session.StateNeedsOnboarding {
			flow := onboarding.New(capturer, client, store, console, logger)
			if err := console.Onboard(ctx, flow); err != nil {
				return err
			}
			<-flow.Done()
			id, _ := flow.UserID()
			state = sess.Adopt(ctx, id)
			continue
		}

		err := console.Recommend(ctx, sess)
		if errors.Is(err, terminal.ErrSignOut) {
			sess.SignOut()
			console.Success("Signed out", "Your stored identity was removed.")
			state = sess.State()
			continue
		}
		return err
	}
}

// openBackend prefers the on-disk store and falls back to memory, which
// means the identity only lasts for this run.
func openBackend(logger *slog.Logger) identity.Backend {
	if *stateDir != "" {
		backend, err := identity.NewFileBackend(*stateDir, logger)
		if err == nil {
			return backend
		}
		logger.Warn("identity storage unavailable, using memory", "dir", *stateDir, "error", err)
	}
	return identity.NewMemoryBackend()
}
