package cli

import (
	"fmt"

	"github.com/harun/lens/internal/daemon"
	"github.com/spf13/cobra"
)

var (
	connectURL  string
	connectPeer string
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect this machine to a lens server",
	Long: `Connect to a lens server as a client peer and mirror its admin list and
tool permissions until interrupted.`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&connectURL, "url", "", "server websocket URL (overrides config)")
	connectCmd.Flags().StringVar(&connectPeer, "peer", "", "peer name (overrides config)")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if connectURL != "" {
		cfg.Client.URL = connectURL
	}
	if connectPeer != "" {
		cfg.Client.Peer = connectPeer
	}

	return runDaemon(cmd, cfg, daemon.ModeClient)
}
