package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/harun/lens/internal/daemon"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show whether a lens server or client is running from this data directory.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, mode := range []daemon.Mode{daemon.ModeServer, daemon.ModeClient} {
		pidFile := daemon.PIDFile(cfg.DataDir, mode)
		if !daemon.IsRunning(pidFile) {
			fmt.Fprintf(out, "%s: stopped\n", mode)
			continue
		}

		pid, err := daemon.ReadPID(pidFile)
		if err != nil {
			return fmt.Errorf("failed to read PID file: %w", err)
		}
		if info, err := os.Stat(pidFile); err == nil {
			fmt.Fprintf(out, "%s: running (PID %d, uptime %s)\n", mode, pid, formatDuration(time.Since(info.ModTime())))
		} else {
			fmt.Fprintf(out, "%s: running (PID %d)\n", mode, pid)
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
