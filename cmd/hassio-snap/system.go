package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/hassio-snapshots/internal/backup"
	"github.com/muurk/hassio-snapshots/internal/hassio"
	"github.com/muurk/hassio-snapshots/internal/ui"
)

var (
	notifyDismiss   bool
	sensorStaleOnly bool
	sensorStale     time.Duration
)

// infoTargets maps "info" arguments to gateway reads
var infoTargets = map[string]func(*hassio.Gateway) (map[string]any, error){
	"ha":         (*hassio.Gateway).HAInfo,
	"self":       (*hassio.Gateway).SelfInfo,
	"hassos":     (*hassio.Gateway).HassOSInfo,
	"host":       (*hassio.Gateway).Info,
	"supervisor": (*hassio.Gateway).SupervisorInfo,
}

func init() {
	infoCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	notifyCmd.Flags().BoolVar(&notifyDismiss, "dismiss", false, "Dismiss the snapshot notification")
	sensorCmd.Flags().BoolVar(&sensorStaleOnly, "stale", false, "Only report whether snapshots are stale; publish nothing")
	sensorCmd.Flags().DurationVar(&sensorStale, "stale-after", backup.DefaultStaleAfter, "Age after which the newest snapshot is stale")

	rootCmd.AddCommand(infoCmd, authCmd, notifyCmd, sensorCmd)
}

func infoTargetNames() []string {
	names := make([]string, 0, len(infoTargets))
	for name := range infoTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var infoCmd = &cobra.Command{
	Use:       "info [ha|self|hassos|host|supervisor]",
	Short:     "Show Supervisor information",
	ValidArgs: infoTargetNames(),
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "host"
		if len(args) == 1 {
			target = args[0]
		}

		data, err := infoTargets[target](gateway)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), data)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader(target+" info", "hassio-snap info "+target, nil).Render())
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderInfo(data))
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth <user>",
	Short: "Check a Home Assistant user's credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := ui.NewPrompter().Password("Password for " + args[0])
		if err != nil {
			return err
		}
		if err := gateway.Auth(args[0], password); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFailure("Authentication failed", err, nil))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Authenticated", map[string]string{"User": args[0]}))
		return nil
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify <title> <message...>",
	Short: "Raise or dismiss the snapshot notification in Home Assistant",
	Example: `  hassio-snap notify "Backup" "Snapshots are not being uploaded"
  hassio-snap notify --dismiss`,
	Args: func(cmd *cobra.Command, args []string) error {
		if notifyDismiss {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if notifyDismiss {
			return gateway.DismissNotification()
		}
		return gateway.SendNotification(args[0], strings.Join(args[1:], " "))
	},
}

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Publish the snapshot sensors to Home Assistant",
	Long: `Publish sensor.snapshot_backup and binary_sensor.snapshots_stale from the
Supervisor's current snapshot list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := backup.NewRunner(gateway, nil)
		runner.StaleAfter = sensorStale

		if !sensorStaleOnly {
			if err := runner.PublishState(); err != nil {
				return err
			}
		}

		list, err := gateway.SnapshotList()
		if err != nil {
			return err
		}
		views := make([]hassio.SensorSnapshot, 0, len(list))
		for _, s := range list {
			views = append(views, s)
		}

		if runner.IsStale(views) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWarning("Snapshots are stale", map[string]string{
				"Snapshots":   fmt.Sprint(len(views)),
				"Stale after": sensorStale.String(),
			}))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshots are current", map[string]string{
			"Snapshots": fmt.Sprint(len(views)),
		}))
		return nil
	},
}
