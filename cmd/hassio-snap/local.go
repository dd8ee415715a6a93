package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/hassio-snapshots/internal/discovery"
	"github.com/muurk/hassio-snapshots/internal/ui"
	"github.com/muurk/hassio-snapshots/internal/urls"
)

var (
	retainOff       bool
	discoverTimeout int
	discoverSave    bool
)

func init() {
	retainCmd.Flags().BoolVar(&retainOff, "off", false, "Stop retaining the snapshot")
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 5, "Scan timeout in seconds")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", false, "Save the discovered Home Assistant URL when exactly one is found")

	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(retainCmd, discoverCmd, configCmd)
}

var retainCmd = &cobra.Command{
	Use:   "retain <slug>",
	Short: "Mark a snapshot as retained",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry.SetRetained(args[0], !retainOff)
		if err := registry.Save(); err != nil {
			return err
		}
		state := "retained"
		if retainOff {
			state = "not retained"
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshot "+state, map[string]string{"Slug": args[0]}))
		return nil
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Home Assistant on the local network",
	Long: `Browse mDNS for _home-assistant._tcp and list every instance found.

With --save and exactly one result, its API URL becomes home_assistant_url.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scanning for Home Assistant (timeout: %ds)...\n\n", discoverTimeout)

		instances, err := discovery.ScanForInstances(time.Duration(discoverTimeout) * time.Second)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(instances) == 0 {
			fmt.Fprintln(out, ui.RenderWarning("No Home Assistant found", map[string]string{
				"Hint": "Multicast must reach this host; try a longer --timeout",
				"Docs": urls.Zeroconf,
			}))
			return nil
		}

		for i, inst := range instances {
			fmt.Fprintf(out, "%d. %s\n", i+1, inst)
			fmt.Fprintf(out, "   API:     %s\n", inst.APIURL())
			if inst.UUID != "" {
				fmt.Fprintf(out, "   UUID:    %s\n", inst.UUID)
			}
			fmt.Fprintln(out)
		}

		if !discoverSave {
			return nil
		}
		if len(instances) > 1 {
			return fmt.Errorf("found %d instances; set home_assistant_url with 'hassio-snap config set'", len(instances))
		}

		registry.HomeAssistantBaseURL = instances[0].APIURL()
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.RenderSuccess("Saved", map[string]string{"home_assistant_url": registry.HomeAssistantBaseURL}))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings (token masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *registry
		shown.ConfiguredToken = maskToken(shown.ConfiguredToken)

		data, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", registry.Path(), data)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change a saved setting",
	ValidArgs: []string{"supervisor_url", "home_assistant_url", "token", "client_identifier", "log_level"},
	Args:      cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registry.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		value := args[1]
		if args[0] == "token" {
			value = maskToken(value)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Setting saved", map[string]string{args[0]: value}))
		return nil
	},
}

// maskToken keeps the last four characters so the user can tell tokens apart
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

