package cli

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage username aliases",
}

var aliasSetCmd = &cobra.Command{
	Use:   "set [name=username...]",
	Short: "Set aliases",
	Long: `Set one or more aliases in a single write. A pair with an empty value,
such as "dev=", removes the alias.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAliasSet,
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List aliases",
	RunE:  runAliasList,
}

var aliasUnsetCmd = &cobra.Command{
	Use:   "unset [name...]",
	Short: "Remove aliases",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAliasUnset,
}

func init() {
	aliasCmd.AddCommand(aliasSetCmd)
	aliasCmd.AddCommand(aliasListCmd)
	aliasCmd.AddCommand(aliasUnsetCmd)
	rootCmd.AddCommand(aliasCmd)
}

func runAliasSet(cmd *cobra.Command, args []string) error {
	if aliasService == nil {
		return errors.New("alias service not configured")
	}

	applied, err := aliasService.ParseAndUpdate(args)
	if err != nil {
		return err
	}
	for _, name := range sortedNames(applied) {
		if applied[name] == "" {
			cmd.Printf("Removed alias %s\n", name)
			continue
		}
		cmd.Printf("Set alias %s=%s\n", name, applied[name])
	}
	return nil
}

func runAliasList(cmd *cobra.Command, _ []string) error {
	if aliasService == nil {
		return errors.New("alias service not configured")
	}

	aliases, err := aliasService.List()
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		cmd.Println("No aliases set.")
		return nil
	}
	for _, name := range sortedNames(aliases) {
		cmd.Printf("%s\t%s\n", name, aliases[name])
	}
	return nil
}

func runAliasUnset(cmd *cobra.Command, args []string) error {
	if aliasService == nil {
		return errors.New("alias service not configured")
	}

	for _, name := range args {
		if err := aliasService.Unset(name); err != nil {
			return err
		}
		cmd.Printf("Removed alias %s\n", name)
	}
	return nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
