// Package cli is the cobra command tree of the sfdx tool.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/core/ports/driving"
	"github.com/catalandres/sfdx-core/internal/core/services"
	"github.com/catalandres/sfdx-core/internal/logger"
)

var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sfdx",
	Short: "Manage org credentials, config and streaming events",
	Long: `sfdx keeps the local state of authorized orgs: encrypted credential
records, layered config, aliases and org membership. It can also wait for
platform events over the streaming API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

// Services wired by main. Commands refuse to run when theirs is nil.
var (
	locations        project.Locations
	stateFiles       driven.StateFiles
	aliasService     *services.Aliases
	configAggregator *services.ConfigAggregator
	authService      *services.AuthInfoService
	orgService       *services.OrgService
	settingsService  driving.SettingsService
)

// Services are the collaborators the commands run against.
type Services struct {
	Locations  project.Locations
	Files      driven.StateFiles
	Aliases    *services.Aliases
	Aggregator *services.ConfigAggregator
	Auths      *services.AuthInfoService
	Orgs       *services.OrgService
	Settings   driving.SettingsService
}

// Configure installs the services used by every command.
func Configure(s Services) {
	locations = s.Locations
	stateFiles = s.Files
	aliasService = s.Aliases
	configAggregator = s.Aggregator
	authService = s.Auths
	orgService = s.Orgs
	settingsService = s.Settings
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the command named by the process arguments.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to stderr")
}

// commandContext returns the context the command was executed with.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
