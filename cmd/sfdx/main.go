// Command sfdx manages org credentials, layered config and aliases, and
// listens for streaming events.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/config/file"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/crypto"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/oauth"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/platform"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/adapters/driving/cli"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/core/services"
	"github.com/catalandres/sfdx-core/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// keyringPasswordEnv unlocks the file keyring backend.
const keyringPasswordEnv = "SFDX_KEYRING_PASSWORD"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loc, err := project.DefaultLocations()
	if err != nil {
		return err
	}
	files := file.NewStateFiles(loc)

	store, err := file.NewSettingsStore(files.GlobalStateDir())
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	settingsService := services.NewSettingsService(store)
	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	logger.SetVerbose(settings.Log.Verbose)

	cipher := crypto.NewLazy(func() (*crypto.Crypto, error) {
		repo, err := crypto.OpenKeyring(crypto.KeyringConfig{
			Backend:      string(settings.Keyring.Backend),
			FileDir:      settings.Keyring.FileDir,
			FilePassword: os.Getenv(keyringPasswordEnv),
		})
		if err != nil {
			return nil, err
		}
		return crypto.Shared(repo)
	})

	aggregator, err := services.NewConfigAggregator(files)
	if err != nil {
		return err
	}
	go func() {
		err := file.Watch(ctx, aggregator.Paths(), func(path string) {
			if err := aggregator.Reload(); err != nil {
				logger.Warn("reloading config after change to %s: %v", path, err)
			}
		})
		if err != nil {
			logger.Warn("config watch: %v", err)
		}
	}()

	aliases := services.NewAliases(files)
	auths := services.NewAuthInfoService(files, cipher, oauth.NewClient(nil), aliases)
	connect := func(_ context.Context, auth *services.AuthInfo) (driven.Connection, error) {
		conn, err := platform.NewConnection(platform.Options{
			Credential: auth,
			APIVersion: aggregator.GetString(domain.ConfigKeyAPIVersion),
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	cli.SetVersion(version)
	cli.Configure(cli.Services{
		Locations:  loc,
		Files:      files,
		Aliases:    aliases,
		Aggregator: aggregator,
		Auths:      auths,
		Orgs:       services.NewOrgService(files, auths, aliases, connect),
		Settings:   settingsService,
	})
	return cli.Execute(ctx)
}
