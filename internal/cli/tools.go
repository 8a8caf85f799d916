package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harun/lens/pkg/suite"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the built-in tools",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s, err := suite.New(suite.Config{Owner: cfg.Owner, Logger: zerolog.Nop()})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tLABEL\tRIGHT-CLICK\tDISABLED")
	for t := range s.Tools().All() {
		label := s.Strings().GetOrRegister(t.DisplayKey(), func() string { return t.Key() })
		disabled := ""
		for _, key := range cfg.Server.DisabledTools {
			if key == t.Key() {
				disabled = "yes"
			}
		}
		rightClick := ""
		if t.HasRightClick() {
			rightClick = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Key(), label, rightClick, disabled)
	}
	return w.Flush()
}
