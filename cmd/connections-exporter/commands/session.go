package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"connections-exporter/internal/storage"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "CSV file to write (defaults to export.path, '-' for stdout).")
	rootCmd.AddCommand(statusCmd, exportCmd, resetCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the saved extraction session.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()

		session, err := e.coordinator.Status(cmd.Context())
		if errors.Is(err, storage.ErrNoSession) {
			fmt.Println("No session")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("Session:     %s\n", session.ID)
		fmt.Printf("Target:      %s\n", session.TargetURL)
		fmt.Printf("Status:      %s\n", session.Status)
		if session.Reason != "" {
			fmt.Printf("Reason:      %s\n", session.Reason)
		}
		fmt.Printf("Pages:       %d\n", session.CurrentPageIndex)
		fmt.Printf("Connections: %d\n", len(session.Records))
		if session.ListingURL != "" {
			fmt.Printf("Listing:     %s\n", session.ListingURL)
		}
		fmt.Printf("Resumable:   %t\n", session.Status == storage.StatusRunning && session.AutoStart)
		fmt.Printf("Updated:     %s\n", session.UpdatedAt.Local().Format(time.DateTime))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [-o <file.csv>]",
	Short: "Writes the saved connections to CSV.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()

		if exportOutput == "-" {
			_, err := e.coordinator.Export(cmd.Context(), os.Stdout)
			return err
		}

		path := exportOutput
		if path == "" {
			path = e.cfg.Export.Path
		}
		n, err := e.coordinator.ExportFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d connections to %s\n", n, path)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Deletes the saved session and its connections.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.coordinator.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Session cleared")
		return nil
	},
}
