package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/maruel/pagetable/internal/tui"
)

var tuiThreshold int

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the table in the terminal",
	Long: `Browse the table in the terminal.

Keys:
  enter, g   load data (only offered while the table is empty)
  1..9       cycle the sort of column N
  d, x       remove the selected row
  c          clear all data
  q          quit

Moving the cursor near the last row loads the next page. Logs are written
to <data_dir>/pagetable.log.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&tuiThreshold, "scroll-threshold", tui.DefaultScrollThreshold, "rows from the end that trigger the next page")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	// The alternate screen owns the terminal; log to a file instead.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logPath := filepath.Join(cfg.DataDir, "pagetable.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is built from the data directory
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()
	initLogger(f)

	// p is set before the program runs, and loads only start from it.
	var p *tea.Program
	a, err := openApp(ctx, cfg, tui.Notifier(func(msg tea.Msg) { p.Send(msg) }))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	slog.InfoContext(ctx, "Starting TUI", "remote", cfg.Remote.BaseURL, "store", cfg.Store.Backend)
	m := tui.New(ctx, a.co, tui.Options{ScrollThreshold: tuiThreshold})
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
