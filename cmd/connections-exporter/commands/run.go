package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"connections-exporter/internal/app"
	"connections-exporter/internal/storage"
)

var runOutput string

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "CSV file to write after extraction (defaults to export.path).")
	resumeCmd.Flags().StringVarP(&runOutput, "output", "o", "", "CSV file to write after extraction (defaults to export.path).")
	rootCmd.AddCommand(runCmd, resumeCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <profile-url>",
	Short: "Starts a new extraction for the given profile.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return extract(func(ctx context.Context, c *app.Coordinator) (*app.RunStats, error) {
			return c.Start(ctx, args[0])
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continues an interrupted extraction from the last saved listing page.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return extract(func(ctx context.Context, c *app.Coordinator) (*app.RunStats, error) {
			return c.Resume(ctx)
		})
	},
}

func extract(run func(ctx context.Context, c *app.Coordinator) (*app.RunStats, error)) error {
	ui := newProgressUI()
	e, err := setup(ui.sink)
	if err != nil {
		return err
	}
	defer e.Close()

	// Первый Ctrl+C: остановка после текущей страницы, второй: прерывание
	ctx, cancel := app.GracefulShutdown(e.logger, e.coordinator.RequestStop)
	defer cancel()

	ui.start()
	stats, err := run(ctx, e.coordinator)
	ui.stop()
	if err != nil {
		return err
	}

	if stats.Records > 0 {
		path := runOutput
		if path == "" {
			path = e.cfg.Export.Path
		}
		n, err := e.coordinator.ExportFile(context.Background(), path)
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		e.logger.Info("Exported connections", "path", path, "records", n)
	}

	switch stats.Status {
	case storage.StatusFailed:
		return fmt.Errorf("extraction failed: %s (%d pages, %d connections saved)", stats.Reason, stats.Pages, stats.Records)
	case storage.StatusRunning:
		fmt.Fprintf(os.Stderr, "Interrupted after %d pages, run `connections-exporter resume` to continue\n", stats.Pages)
	default:
		fmt.Fprintf(os.Stderr, "Done: %d connections from %d pages (%s)\n", stats.Records, stats.Pages, stats.Reason)
	}
	return nil
}

// progressUI показывает ход выгрузки спиннером в stderr.
type progressUI struct {
	s *spinner.Spinner
}

func newProgressUI() *progressUI {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " starting browser"
	return &progressUI{s: s}
}

func (u *progressUI) start() { u.s.Start() }
func (u *progressUI) stop()  { u.s.Stop() }

func (u *progressUI) setSuffix(format string, args ...any) {
	u.s.Lock()
	u.s.Suffix = " " + fmt.Sprintf(format, args...)
	u.s.Unlock()
}

func (u *progressUI) sink(e app.Event) {
	switch ev := e.(type) {
	case app.Started:
		if ev.Resumed {
			u.setSuffix("resuming %s", ev.TargetURL)
		} else {
			u.setSuffix("opening %s", ev.TargetURL)
		}
	case app.ExtractedData:
		u.setSuffix("page %d · +%d new, %d duplicates", ev.Page, ev.Added, ev.Duplicates)
	case app.Progress:
		u.setSuffix("page %d · %d connections · %d%%", ev.PagesProcessed, ev.ConnectionsFound, ev.Percent)
	case app.Complete:
		u.setSuffix("%s · %d connections", ev.Status, ev.TotalRecords)
	case app.AuthRequired:
		u.setSuffix("%s", ev.Message)
	case app.Log:
		// строки журнала уже в консоли через logger
	}
}
