package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/config/file"
	"github.com/catalandres/sfdx-core/internal/adapters/driving/oauth"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/services"
	"github.com/catalandres/sfdx-core/internal/logger"
)

// accessTokenEnv supplies the token for auth accesstoken store.
const accessTokenEnv = "SFDX_ACCESS_TOKEN"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize orgs",
	Long: `Authorize an org and store its encrypted credential record.

Examples:
  # Log in through the browser
  sfdx auth web login --set-alias dev --set-default-username

  # Store an access token obtained elsewhere
  SFDX_ACCESS_TOKEN=00D... sfdx auth accesstoken store --instance-url https://na1.example.com`,
}

var authWebCmd = &cobra.Command{
	Use:   "web",
	Short: "Authorize through a web browser",
}

var authWebLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to an org through the browser",
	Long: `Open the login page in a browser and wait for the OAuth redirect on
the loopback callback. The authorization code is exchanged with a PKCE
verifier and the resulting tokens are stored encrypted.`,
	RunE: runAuthWebLogin,
}

var authAccessTokenCmd = &cobra.Command{
	Use:   "accesstoken",
	Short: "Authorize with an existing access token",
}

var authAccessTokenStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Store an access token",
	Long: `Store an access token for an org. The token is read from the
SFDX_ACCESS_TOKEN environment variable, or prompted for. Records created
this way cannot be refreshed.`,
	RunE: runAuthAccessTokenStore,
}

// Flags for auth commands.
var (
	authClientID         string
	authInstanceURL      string
	authRedirectURI      string
	authAlias            string
	authSetDefault       bool
	authSetDefaultDevHub bool
	authCallbackTimeout  time.Duration
	authNoBrowser        bool
	authAskClientSecret  bool
)

func init() {
	flags := authWebLoginCmd.Flags()
	flags.StringVarP(&authClientID, "client-id", "i", domain.DefaultClientID, "OAuth client id of the connected app")
	flags.StringVarP(&authInstanceURL, "instance-url", "r", "", "Login URL (defaults to instanceUrl config or the production login host)")
	flags.StringVar(&authRedirectURI, "redirect-uri", domain.DefaultRedirectURI, "Loopback redirect registered for the client")
	flags.BoolVar(&authAskClientSecret, "client-secret", false, "Prompt for the client secret")
	flags.DurationVar(&authCallbackTimeout, "timeout", 5*time.Minute, "How long to wait for the browser redirect")
	flags.BoolVar(&authNoBrowser, "no-browser", false, "Print the login URL instead of opening a browser")
	addAuthSideEffectFlags(authWebLoginCmd)

	authAccessTokenStoreCmd.Flags().StringVarP(&authInstanceURL, "instance-url", "r", "", "Instance URL of the org")
	addAuthSideEffectFlags(authAccessTokenStoreCmd)

	authWebCmd.AddCommand(authWebLoginCmd)
	authAccessTokenCmd.AddCommand(authAccessTokenStoreCmd)
	authCmd.AddCommand(authWebCmd)
	authCmd.AddCommand(authAccessTokenCmd)
	rootCmd.AddCommand(authCmd)
}

func addAuthSideEffectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&authAlias, "set-alias", "a", "", "Alias to set for the authorized username")
	cmd.Flags().BoolVarP(&authSetDefault, "set-default-username", "s", false, "Make the org the default username")
	cmd.Flags().BoolVarP(&authSetDefaultDevHub, "set-default-dev-hub", "d", false, "Make the org the default dev hub")
}

func runAuthWebLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	opts := services.AuthOptions{
		ClientID:    authClientID,
		LoginURL:    loginURL(),
		RedirectURI: authRedirectURI,
	}
	if authAskClientSecret {
		cmd.Print("Enter client secret: ")
		opts.ClientSecret = readPassword()
		cmd.Println()
	}

	if _, err := services.CallbackPort(opts.RedirectURI); err != nil {
		return err
	}

	logger.Section("Web Login")
	login, err := authService.StartWebLogin(opts)
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}
	logger.Info("login host %s, callback %s", opts.LoginURL, login.RedirectURI())

	server, err := oauth.NewCallbackServer(login.RedirectURI(), login.State)
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	defer server.Stop() //nolint:errcheck // Best-effort shutdown

	logger.Debug("login URL %s", login.URL)
	if authNoBrowser {
		cmd.Printf("Open this URL to log in:\n%s\n", login.URL)
	} else if err := oauth.OpenBrowser(login.URL); err != nil {
		cmd.Printf("Could not open a browser (%v). Open this URL to log in:\n%s\n", err, login.URL)
	} else {
		cmd.Println("Waiting for the browser login to complete...")
	}

	ctx := commandContext(cmd)
	code, err := server.WaitForCode(ctx, authCallbackTimeout)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	info, err := authService.CompleteWebLogin(ctx, login, code, login.State)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := applyAuthSideEffects(info.Username()); err != nil {
		return err
	}
	cmd.Printf("Successfully authorized %s with org ID %s\n", info.Username(), info.Fields().OrgID)
	return nil
}

func runAuthAccessTokenStore(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	if authInstanceURL == "" {
		return &domain.MissingArgError{Which: "instance-url"}
	}

	token := strings.TrimSpace(os.Getenv(accessTokenEnv))
	if token == "" {
		cmd.Print("Enter access token: ")
		token = readPassword()
		cmd.Println()
	}
	if token == "" {
		return domain.ErrMissingOrInvalidAccessToken
	}

	info, err := authService.Create(commandContext(cmd), "", &services.AuthOptions{
		AccessToken: token,
		InstanceURL: authInstanceURL,
	})
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	if err := applyAuthSideEffects(info.Username()); err != nil {
		return err
	}
	cmd.Printf("Successfully authorized %s with org ID %s\n", info.Username(), info.Fields().OrgID)
	return nil
}

// loginURL picks the --instance-url flag, then the instanceUrl config
// value, then the project's sfdcLoginUrl, then the production login host.
func loginURL() string {
	if authInstanceURL != "" {
		return authInstanceURL
	}
	if configAggregator != nil {
		if v := configAggregator.GetString(domain.ConfigKeyInstanceURL); v != "" {
			return v
		}
	}
	if proj, err := file.LoadProject(locations); err == nil && proj.LoginURL != "" {
		return proj.LoginURL
	}
	return domain.DefaultLoginURL
}

// applyAuthSideEffects sets the alias and default usernames requested by
// flags. Defaults go to the local config inside a project and to the
// global config otherwise.
func applyAuthSideEffects(username string) error {
	if authAlias != "" {
		if aliasService == nil {
			return errors.New("alias service not configured")
		}
		if err := aliasService.Set(authAlias, username); err != nil {
			return fmt.Errorf("failed to set alias: %w", err)
		}
	}

	if !authSetDefault && !authSetDefaultDevHub {
		return nil
	}
	if stateFiles == nil {
		return errors.New("config service not configured")
	}

	global := false
	if _, err := stateFiles.LocalStateDir(); err != nil {
		global = true
	}
	cfg, err := services.NewSfdxConfig(stateFiles, global)
	if err != nil {
		return err
	}

	value := username
	if authAlias != "" {
		value = authAlias
	}
	if authSetDefault {
		if err := cfg.Set(domain.ConfigKeyDefaultUsername, value); err != nil {
			return err
		}
	}
	if authSetDefaultDevHub {
		if err := cfg.Set(domain.ConfigKeyDefaultDevHubUsername, value); err != nil {
			return err
		}
	}
	if err := cfg.Write(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if configAggregator != nil {
		return configAggregator.Reload()
	}
	return nil
}
