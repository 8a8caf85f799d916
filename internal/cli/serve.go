package cli

import (
	"fmt"
	"os"

	"github.com/harun/lens/internal/config"
	"github.com/harun/lens/internal/daemon"
	"github.com/spf13/cobra"
)

var (
	servePort   int
	serveAdmins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authoritative lens server",
	Long: `Run the lens server in the foreground. The server owns the admin list and
the disabled tools and pushes them to every connected peer.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringSliceVar(&serveAdmins, "admin", nil, "peer to grant admin at startup (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	cfg.Server.Admins = append(cfg.Server.Admins, serveAdmins...)

	return runDaemon(cmd, cfg, daemon.ModeServer)
}

func runDaemon(cmd *cobra.Command, cfg *config.Config, mode daemon.Mode) error {
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log, mode)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Lens %s running (PID %d)\n", mode, os.Getpid())
	d.Wait()
	return nil
}
