package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/services"
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Inspect and remove authorized orgs",
}

var orgDisplayCmd = &cobra.Command{
	Use:   "display",
	Short: "Show the details of an org",
	Long: `Show the stored details of an org. Without --target-org the configured
defaultusername is used.`,
	RunE: runOrgDisplay,
}

var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorized orgs",
	RunE:  runOrgList,
}

var orgRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove an org's credentials and local state",
	Long: `Remove the credential record of an org, its membership record and
local org data, then clear every default username and alias that points
at it.`,
	RunE: runOrgRemove,
}

// Flags for org commands.
var (
	orgTarget         string
	orgShowToken      bool
	orgRemoveNoPrompt bool
)

// displayFields are printed by org display, in order.
var displayFields = []domain.OrgField{
	domain.OrgFieldUsername,
	domain.OrgFieldAlias,
	domain.OrgFieldOrgID,
	domain.OrgFieldInstanceURL,
	domain.OrgFieldLoginURL,
	domain.OrgFieldDevHubUsername,
	domain.OrgFieldIsDevHub,
	domain.OrgFieldEdition,
	domain.OrgFieldExpirationDate,
	domain.OrgFieldStatus,
}

func init() {
	orgDisplayCmd.Flags().StringVarP(&orgTarget, "target-org", "u", "", "Username or alias of the org")
	orgDisplayCmd.Flags().BoolVar(&orgShowToken, "show-token", false, "Print the access token unmasked")
	orgRemoveCmd.Flags().StringVarP(&orgTarget, "target-org", "u", "", "Username or alias of the org")
	orgRemoveCmd.Flags().BoolVarP(&orgRemoveNoPrompt, "no-prompt", "p", false, "Do not ask for confirmation")

	orgCmd.AddCommand(orgDisplayCmd)
	orgCmd.AddCommand(orgListCmd)
	orgCmd.AddCommand(orgRemoveCmd)
	rootCmd.AddCommand(orgCmd)
}

func openOrg(cmd *cobra.Command) (*services.Org, error) {
	if orgService == nil {
		return nil, errors.New("org service not configured")
	}
	return orgService.Create(commandContext(cmd), orgTarget, services.OrgOptions{Aggregator: configAggregator})
}

func runOrgDisplay(cmd *cobra.Command, _ []string) error {
	org, err := openOrg(cmd)
	if err != nil {
		return err
	}

	fields := org.GetFields(displayFields...)
	for _, name := range displayFields {
		value := fields[name]
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		cmd.Printf("%-16s %v\n", name, value)
	}

	token := org.AuthInfo().ConnectionOptions().AccessToken
	if !orgShowToken {
		token = maskToken(token)
	}
	cmd.Printf("%-16s %s\n", "accessToken", token)
	return nil
}

func runOrgList(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	usernames, err := authService.ListAllUsernames()
	if err != nil {
		return fmt.Errorf("failed to list orgs: %w", err)
	}
	if len(usernames) == 0 {
		cmd.Println("No authorized orgs.")
		cmd.Println("Authorize one with: sfdx auth web login")
		return nil
	}

	var defaultUser, defaultHub string
	if configAggregator != nil {
		defaultUser = resolveTarget(configAggregator.GetString(domain.ConfigKeyDefaultUsername))
		defaultHub = resolveTarget(configAggregator.GetString(domain.ConfigKeyDefaultDevHubUsername))
	}

	ctx := commandContext(cmd)
	for _, username := range usernames {
		marker := "   "
		switch username {
		case defaultHub:
			marker = "(D)"
		case defaultUser:
			marker = "(U)"
		}

		info, err := authService.Create(ctx, username, nil)
		if err != nil {
			cmd.Printf("%s %s  (unreadable: %v)\n", marker, username, err)
			continue
		}
		fields := info.Fields()

		alias := ""
		if aliasService != nil {
			alias, _ = aliasService.ByValue(username) //nolint:errcheck // Alias is decoration only
		}
		cmd.Printf("%s %-12s %-40s %-18s %s\n", marker, alias, username, fields.OrgID, fields.InstanceURL)
	}
	return nil
}

func runOrgRemove(cmd *cobra.Command, _ []string) error {
	org, err := openOrg(cmd)
	if err != nil {
		return err
	}

	if !orgRemoveNoPrompt {
		cmd.Printf("Remove %s and all its local state? [y/N]: ", org.Username())
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := org.Remove(commandContext(cmd)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", org.Username(), err)
	}
	cmd.Printf("Removed %s\n", org.Username())
	return nil
}

// resolveTarget maps an alias to its username, or returns value as is.
func resolveTarget(value string) string {
	if value == "" || aliasService == nil {
		return value
	}
	resolved, err := aliasService.Resolve(value)
	if err != nil {
		return value
	}
	return resolved
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
