package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/harun/lens/internal/daemon"
	"github.com/spf13/cobra"
)

var (
	stopTimeout int
	stopMode    string
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running lens daemon",
	Long: `Stop a lens server or client gracefully.
Sends SIGTERM and waits for the theme to be saved and the process to exit.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "timeout in seconds to wait for daemon to stop")
	stopCmd.Flags().StringVar(&stopMode, "mode", string(daemon.ModeServer), "which daemon to stop (server, client)")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	mode := daemon.Mode(stopMode)
	if mode != daemon.ModeServer && mode != daemon.ModeClient {
		return fmt.Errorf("invalid mode %q (must be server or client)", stopMode)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	pidFile := daemon.PIDFile(cfg.DataDir, mode)
	out := cmd.OutOrStdout()

	if err := signalDaemon(pidFile, syscall.SIGTERM); err != nil {
		return err
	}

	deadline := time.Now().Add(time.Duration(stopTimeout) * time.Second)
	for time.Now().Before(deadline) {
		if !daemon.IsRunning(pidFile) {
			fmt.Fprintln(out, "Daemon stopped successfully")
			os.Remove(pidFile)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Fprintln(out, "Timeout reached, sending SIGKILL...")
	if err := signalDaemon(pidFile, syscall.SIGKILL); err != nil {
		return err
	}
	os.Remove(pidFile)
	fmt.Fprintln(out, "Daemon killed")
	return nil
}

func signalDaemon(pidFile string, sig syscall.Signal) error {
	if !daemon.IsRunning(pidFile) {
		return fmt.Errorf("daemon is not running (PID file: %s)", pidFile)
	}
	pid, err := daemon.ReadPID(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(sig); err != nil {
		return fmt.Errorf("failed to send %s: %w", sig, err)
	}
	return nil
}
