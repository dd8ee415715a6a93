// Hassio-snap manages Home Assistant snapshots through the Supervisor API.
//
// It lists, creates, deletes, restores, uploads and downloads snapshots,
// publishes the snapshot sensors to Home Assistant, and keeps a small local
// registry of settings and retained snapshots.
//
// Usage:
//
//	hassio-snap [command] [flags]
//
// Inside an add-on the Supervisor token is read from HASSIO_TOKEN. A .env
// file in the working directory is loaded first when present.
// See 'hassio-snap --help' for available commands.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/config"
	"github.com/muurk/hassio-snapshots/internal/hassio"
	"github.com/muurk/hassio-snapshots/internal/logging"
	"github.com/muurk/hassio-snapshots/internal/version"
)

// requestTimeout bounds ordinary API calls; archive transfers are unbounded
const requestTimeout = 30 * time.Second

var (
	registry *config.Registry
	gateway  *hassio.Gateway

	supervisorURLFlag string
	haURLFlag         string
	tokenFlag         string
	logLevelFlag      string
)

func main() {
	_ = godotenv.Load()

	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", hassio.ShortMessage(err))
		logging.Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hassio-snap",
	Short: "Home Assistant snapshot manager",
	Long: `Manage Home Assistant snapshots through the Supervisor API.

Settings are read from the config file (see 'hassio-snap config show') and
may be overridden per invocation with the persistent flags below.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&supervisorURLFlag, "supervisor-url", "", "Supervisor API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&haURLFlag, "ha-url", "", "Home Assistant API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Supervisor token (overrides config and HASSIO_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the registry, applies flag overrides in memory only, starts
// logging and builds the gateway.
func setup(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	registry = reg

	level := logLevelFlag
	if level == "" {
		level = reg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	gateway = hassio.NewGateway(overrides{Registry: reg}, &http.Client{Timeout: requestTimeout})
	return nil
}

// overrides layers command-line flags over the saved registry without
// writing them back
type overrides struct {
	*config.Registry
}

func (o overrides) SupervisorURL() string {
	if supervisorURLFlag != "" {
		return withSlash(supervisorURLFlag)
	}
	return o.Registry.SupervisorURL()
}

func (o overrides) HomeAssistantURL() string {
	if haURLFlag != "" {
		return withSlash(haURLFlag)
	}
	return o.Registry.HomeAssistantURL()
}

func (o overrides) Token() string {
	if tokenFlag != "" {
		return tokenFlag
	}
	return o.Registry.Token()
}

func withSlash(u string) string {
	if u != "" && u[len(u)-1] != '/' {
		return u + "/"
	}
	return u
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hassio-snap %s\n", version.Full())
	},
}
