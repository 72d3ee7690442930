package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
	"golang.org/x/term"

	"pinvault/internal/config"
	"pinvault/internal/remote"
	syncpkg "pinvault/internal/sync"
	"pinvault/internal/utils/logger"
	"pinvault/internal/vault"
	"pinvault/internal/vault/authgate"
	"pinvault/internal/vault/store"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	st        *store.Store
	gate      *authgate.Gate
	engine    *syncpkg.Engine
	svc       *vault.Service
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "pinvault - a PIN-protected encrypted vault on your machine",
	Long: `pinvault keeps payment cards, banking details, logins and notes
in an encrypted local store. Records are sealed with a master key that
only a correct PIN (or an enrolled biometric credential) can unwrap,
and they sync as ciphertext to a remote document store.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	defer teardownApp()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	log = logger.New(cfg.Env)

	st, err = store.New(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("failed to open vault storage: %w", err)
	}

	gate = authgate.New(st, log)
	engine = syncpkg.NewEngine(st, remote.NewHTTPStore(cfg, log), cfg.DeviceID, log)
	svc = vault.New(st, gate, engine, log)

	return nil
}

func teardownApp() {
	if svc != nil {
		svc.Wait()
	}
	if gate != nil {
		gate.Lock()
	}
	if st != nil {
		_ = st.Close()
	}
}

// promptPIN reads a PIN without echo.
func promptPIN(label string) (string, error) {
	fmt.Print(label)
	pin, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	return string(pin), nil
}

// ensureUnlocked prompts for the PIN unless a key is already held.
func ensureUnlocked(cmd *cobra.Command) error {
	if gate.IsUnlocked() {
		return nil
	}

	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	ok, err := gate.Authenticate(cmd.Context(), pin)
	if err != nil {
		return err
	}
	if !ok {
		failed, _ := gate.FailedAttempts(cmd.Context())
		return fmt.Errorf("wrong PIN (%d failed attempts)", failed)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "remote store address")
}
