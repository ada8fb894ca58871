package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage tool settings",
	Long: `View and change the tool's runtime settings kept in
~/.sfdx/settings.toml: streaming timeouts, verbose logging and the
keyring that holds the encryption key.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [name] [value]",
	Short: "Change one setting",
	Long: `Change one setting.

Available settings:
  handshake-timeout  - Streaming handshake timeout, e.g. 1m
  subscribe-timeout  - Streaming subscribe timeout, e.g. 3m
  verbose            - true to always print debug logs
  keyring-file-dir   - Directory of the file keyring backend`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Select the keyring backend",
	Long: `Select where the encryption key of credential records is kept.
Changing the backend after records were written makes them unreadable
unless the key is moved as well.`,
	RunE: runSettingsKeyring,
}

// keyringBackends are offered by settings keyring, in order.
var keyringBackends = []domain.KeyringBackend{
	domain.KeyringBackendAuto,
	domain.KeyringBackendKeychain,
	domain.KeyringBackendSecretService,
	domain.KeyringBackendWinCred,
	domain.KeyringBackendKWallet,
	domain.KeyringBackendPass,
	domain.KeyringBackendKeyCtl,
	domain.KeyringBackendFile,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeyringCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Streaming]")
	cmd.Printf("  Handshake timeout: %s\n", settings.Streaming.HandshakeTimeout)
	cmd.Printf("  Subscribe timeout: %s\n", settings.Streaming.SubscribeTimeout)
	cmd.Println()

	cmd.Println("[Log]")
	cmd.Printf("  Verbose: %t\n", settings.Log.Verbose)
	cmd.Println()

	cmd.Println("[Keyring]")
	cmd.Printf("  Backend: %s\n", settings.Keyring.Backend)
	if settings.Keyring.Backend == domain.KeyringBackendFile {
		dir := settings.Keyring.FileDir
		if dir == "" {
			dir = "(default)"
		}
		cmd.Printf("  File directory: %s\n", dir)
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	name, value := args[0], args[1]
	switch name {
	case "handshake-timeout", "subscribe-timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d < time.Second {
			return fmt.Errorf("%w: %s must be a duration of at least 1s", domain.ErrInvalidInput, name)
		}
		if name == "handshake-timeout" {
			settings.Streaming.HandshakeTimeout = d
		} else {
			settings.Streaming.SubscribeTimeout = d
		}
	case "verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: verbose must be true or false", domain.ErrInvalidInput)
		}
		settings.Log.Verbose = b
	case "keyring-file-dir":
		settings.Keyring.FileDir = value
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, name)
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Set %s to %s\n", name, value)
	return nil
}

func runSettingsKeyring(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Select Keyring Backend")
	cmd.Println("----------------------")
	current := 1
	for i, backend := range keyringBackends {
		if backend == settings.Keyring.Backend {
			current = i + 1
		}
		cmd.Printf("  %d. %s\n", i+1, backend)
	}
	cmd.Printf("\nEnter choice [%d]: ", current)

	reader := bufio.NewReader(cmd.InOrStdin())
	idx := parseChoice(readLine(reader), len(keyringBackends), current)
	settings.Keyring.Backend = keyringBackends[idx-1]

	if settings.Keyring.Backend == domain.KeyringBackendFile {
		cmd.Printf("Enter directory for the file keyring [%s]: ", settings.Keyring.FileDir)
		if dir := readLine(reader); dir != "" {
			settings.Keyring.FileDir = dir
		}
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Keyring backend set to: %s\n", settings.Keyring.Backend)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// passwordInput is where readPassword reads from.
var passwordInput io.Reader = os.Stdin

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if f, ok := passwordInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(passwordInput)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
