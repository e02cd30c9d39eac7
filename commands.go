package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mediakit/internal/app"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List media kits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			kits, err := a.ListKits(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range kits {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", k.ID, k.Name, k.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create an empty media kit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return withApp(cmd.Context(), func(a *app.App) error {
			kit, err := a.CreateKit(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), kit.ID)
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show [kit-id]",
	Short: "Print a kit's document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			doc, err := a.ShowKit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		})
	},
}

var applyFile string

var applyCmd = &cobra.Command{
	Use:   "apply [kit-id]",
	Short: "Apply a JSON array of actions to a kit as one change",
	Long: `Reads a JSON array of {"type": ..., "payload": ...} actions from --file
(or stdin) and dispatches them as a single batch, so one undo reverts all of them.

Example:
  echo '[{"type":"SET_THEME","payload":"dark"}]' | mediakit apply my-kit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readInput(cmd, applyFile)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			res, err := a.ApplyActions(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var importFile string

var importCmd = &cobra.Command{
	Use:   "import [kit-id]",
	Short: "Replace a kit's document with a JSON document, creating the kit if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readInput(cmd, importFile)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.ImportKit(cmd.Context(), args[0], body)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [kit-id]",
	Short: "Delete a kit and its snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.DeleteKit(cmd.Context(), args[0])
		})
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans [kit-id]",
	Short: "List components that nothing in the kit references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			ids, err := a.Orphans(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var snapshotLabel string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [kit-id]",
	Short: "Store a labelled copy of a kit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			snap, err := a.Snapshot(cmd.Context(), args[0], snapshotLabel)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.ID)
			return nil
		})
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots [kit-id]",
	Short: "List a kit's snapshots, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			views, err := a.Snapshots(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, v := range views {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", v.ID, v.Label, v.CreatedAt)
			}
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [kit-id] [snapshot-id]",
	Short: "Replace a kit's document with one of its snapshots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Restore(cmd.Context(), args[0], args[1])
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup [kit-id...]",
	Short: "Snapshot kits now and prune old backups",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Backup(cmd.Context(), args...)
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import kits dropped into the watch directory and run scheduled backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Watch(cmd.Context())
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP protocol on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.ServeMCP(cmd.Context(), version)
		})
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "read actions from a file instead of stdin")
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "read the document from a file instead of stdin")
	snapshotCmd.Flags().StringVarP(&snapshotLabel, "label", "l", "", "snapshot label")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
