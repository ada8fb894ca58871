package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage config values",
	Long: `Read and write the sfdx-config.json documents.

Values resolve with environment variables first (SFDX_ prefix), then the
project's .sfdx/sfdx-config.json, then ~/.sfdx/sfdx-config.json.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key...]",
	Short: "Show the resolved value of config keys",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key=value...]",
	Short: "Set config values",
	Long: `Set one or more config values in the local document, or the global
one with --global.

Recognised keys: ` + strings.Join(services.ConfigKeys(), ", "),
	Args: cobra.MinimumNArgs(1),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key...]",
	Short: "Remove config values",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConfigUnset,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every resolved config value",
	RunE:  runConfigList,
}

var configGlobal bool

func init() {
	configSetCmd.Flags().BoolVarP(&configGlobal, "global", "g", false, "Write the global config document")
	configUnsetCmd.Flags().BoolVarP(&configGlobal, "global", "g", false, "Write the global config document")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configAggregator == nil {
		return errors.New("config aggregator not configured")
	}

	for _, key := range args {
		printConfigInfo(cmd, configAggregator.GetInfo(key))
	}
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if configAggregator == nil {
		return errors.New("config aggregator not configured")
	}

	infos := configAggregator.List()
	if len(infos) == 0 {
		cmd.Println("No config values set.")
		return nil
	}
	for _, info := range infos {
		printConfigInfo(cmd, info)
	}
	return nil
}

func printConfigInfo(cmd *cobra.Command, info domain.ConfigInfo) {
	if !info.IsFound() {
		cmd.Printf("%s: (not set)\n", info.Key)
		return
	}
	cmd.Printf("%s: %v [%s]\n", info.Key, info.Value, info.Location)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := openConfig()
	if err != nil {
		return err
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%w: %q is not of the form key=value", domain.ErrInvalidInput, arg)
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
	}
	if err := cfg.Write(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := configAggregator.Reload(); err != nil {
		return err
	}

	for _, arg := range args {
		key, _, _ := strings.Cut(arg, "=")
		cmd.Printf("Set %s in %s\n", key, cfg.Path())
	}
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	cfg, err := openConfig()
	if err != nil {
		return err
	}

	for _, key := range args {
		if !cfg.Unset(key) {
			cmd.Printf("%s was not set\n", key)
			continue
		}
		cmd.Printf("Unset %s\n", key)
	}
	if err := cfg.Write(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return configAggregator.Reload()
}

func openConfig() (*services.SfdxConfig, error) {
	if stateFiles == nil || configAggregator == nil {
		return nil, errors.New("config service not configured")
	}
	return services.NewSfdxConfig(stateFiles, configGlobal)
}
