package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/backup"
	"github.com/muurk/hassio-snapshots/internal/hassio"
	"github.com/muurk/hassio-snapshots/internal/logging"
	"github.com/muurk/hassio-snapshots/internal/ui"
	"github.com/muurk/hassio-snapshots/internal/urls"
)

var (
	outputFormat string

	createName     string
	createFolders  []string
	createAddons   []string
	createPassword string

	restorePasswordPrompt bool
	restoreYes            bool

	downloadOutput string
	downloadResume bool
)

func init() {
	snapshotsCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	showCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")

	createCmd.Flags().StringVar(&createName, "name", "", "Snapshot name (default: timestamped)")
	createCmd.Flags().StringSliceVar(&createFolders, "folder", nil, "Folder to include; makes the snapshot partial (repeatable)")
	createCmd.Flags().StringSliceVar(&createAddons, "addon", nil, "Add-on slug to include; makes the snapshot partial (repeatable)")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Protect the snapshot with a password")

	restoreCmd.Flags().BoolVar(&restorePasswordPrompt, "password-prompt", false, "Prompt for the snapshot password")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Skip the confirmation prompt")

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output file (default: <slug>.tar)")
	downloadCmd.Flags().BoolVar(&downloadResume, "resume", false, "Continue a partial download")

	rootCmd.AddCommand(snapshotsCmd, showCmd, createCmd, deleteCmd, restoreCmd, downloadCmd, uploadCmd, reloadCmd)
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshots",
	Example: `  hassio-snap snapshots
  hassio-snap snapshots --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			data, err := gateway.Snapshots()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		}

		list, err := gateway.SnapshotList()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSnapshotTable(list))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := gateway.Snapshot(args[0])
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), snap.Info())
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSnapshotDetails(snap))
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a snapshot",
	Long: `Create a full snapshot, or a partial one when --folder or --addon is given.

The snapshot_started and snapshot_ended events are fired on the Home Assistant
bus and the snapshot sensors are republished afterwards. A failure raises a
persistent notification in Home Assistant.`,
	Example: `  hassio-snap create
  hassio-snap create --name "Before upgrade" --folder ssl --addon core_ssh`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := backup.NewRunner(gateway, nil)
		res, err := runner.Create(backup.Request{
			Name:     createName,
			Folders:  createFolders,
			Addons:   createAddons,
			Password: createPassword,
		})
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFailure("Snapshot failed", err, troubleshooting(err)))
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshot created", map[string]string{
			"Slug":     res.Slug,
			"Name":     res.Name,
			"Duration": res.Finished.Sub(res.Started).Round(time.Second).String(),
		}))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		if registry.IsRetained(slug) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWarning("Deleting a retained snapshot", map[string]string{"Slug": slug}))
		}

		if err := gateway.Delete(slug); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFailure("Delete failed", err, troubleshooting(err)))
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshot deleted", map[string]string{"Slug": slug}))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <slug>",
	Short: "Fully restore a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		prompter := ui.NewPrompter()

		if !restoreYes && !prompter.RestoreConfirmation(slug) {
			return nil
		}

		var password string
		if restorePasswordPrompt {
			p, err := prompter.Password("Snapshot password")
			if err != nil {
				return err
			}
			password = p
		}

		if err := gateway.Restore(slug, password); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFailure("Restore failed", err, troubleshooting(err)))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Restore started", map[string]string{"Slug": slug}))
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <slug>",
	Short: "Download a snapshot archive",
	Example: `  hassio-snap download 9c9b5ad6 -o weekly.tar
  hassio-snap download 9c9b5ad6 -o weekly.tar --resume`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		output := downloadOutput
		if output == "" {
			output = slug + ".tar"
		}
		n, err := downloadSnapshot(&http.Client{}, gateway.Download(slug), output, downloadResume)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshot downloaded", map[string]string{
			"File":  output,
			"Bytes": strconv.FormatInt(n, 10),
		}))
		return nil
	},
}

// downloadSnapshot writes the archive to path and returns the bytes written.
// With resume set, an existing file is extended with a range request.
func downloadSnapshot(client hassio.Doer, dl *hassio.DownloadRequest, path string, resume bool) (int64, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	var offset int64
	if resume {
		if st, err := os.Stat(path); err == nil {
			offset = st.Size()
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
	}

	var (
		req *http.Request
		err error
	)
	if offset > 0 {
		req, err = dl.PrepareRange(offset, 0)
	} else {
		req, err = dl.Prepare()
	}
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, hassio.NewTransportError(dl.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case offset > 0 && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		return 0, nil
	case offset > 0 && resp.StatusCode == http.StatusOK:
		// Server ignored the range; start over
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, hassio.NewHTTPError(dl.URL, resp.StatusCode)
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Info("Snapshot downloaded", zap.String("path", path), zap.Int64("bytes", n), zap.Int64("offset", offset))
	return n, nil
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a snapshot archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer func() { _ = f.Close() }()

		// Uploads can take longer than requestTimeout
		upload := hassio.NewGateway(overrides{Registry: registry}, &http.Client{})
		data, err := upload.Upload(f)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFailure("Upload failed", err, troubleshooting(err)))
			return err
		}

		slug, _ := data["slug"].(string)
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshot uploaded", map[string]string{"Slug": slug, "File": args[0]}))
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask the Supervisor to rescan its snapshot directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := gateway.RefreshSnapshots(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Snapshots reloaded", nil))
		return nil
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func troubleshooting(err error) []string {
	switch {
	case hassio.StatusCode(err) == http.StatusUnauthorized || hassio.StatusCode(err) == http.StatusForbidden:
		return []string{
			"Set the token with 'hassio-snap config set token <token>'",
			"Or export HASSIO_TOKEN (see " + urls.AddonAuth + ")",
			"Outside an add-on, use a long-lived token: " + urls.LongLivedTokens,
		}
	case hassio.IsDeletionRefused(err):
		return []string{"Check the slug with 'hassio-snap snapshots'"}
	case hassio.IsTransportError(err) && hassio.StatusCode(err) == 0:
		return []string{
			"Check supervisor_url with 'hassio-snap config show'",
			"Outside an add-on, point --supervisor-url at a reachable Supervisor",
		}
	case hassio.IsMalformedResponse(err):
		return []string{
			"Run with --log-level debug to see the request",
			"Expected reply format: " + urls.SupervisorAPI,
		}
	}
	return nil
}
