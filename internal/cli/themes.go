package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harun/lens/internal/config"
	"github.com/harun/lens/pkg/store"
	"github.com/harun/lens/pkg/suite"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	useBox   string
	useIcons string
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List box and icon providers",
	Long:  `List the available box and icon providers and mark the saved selection.`,
	RunE:  runThemes,
}

var themesUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Select and save box or icon providers",
	Long: `Select providers by qualified or short type name, e.g.
  lens themes use --box GlassBoxes --icons HighContrastIcons`,
	RunE: runThemesUse,
}

func init() {
	themesUseCmd.Flags().StringVar(&useBox, "box", "", "box provider name")
	themesUseCmd.Flags().StringVar(&useIcons, "icons", "", "icon provider name")
	themesCmd.AddCommand(themesUseCmd)
	rootCmd.AddCommand(themesCmd)
}

// openSuite builds a headless suite with the theme restored from the
// configured store. The caller closes the store.
func openSuite(cfg *config.Config) (*suite.Suite, store.Store, error) {
	s, err := suite.New(suite.Config{Owner: cfg.Owner, Logger: zerolog.Nop()})
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Theme.Store, cfg.Theme.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open theme store: %w", err)
	}
	if err := s.LoadTheme(context.Background(), st); err != nil {
		st.Close()
		return nil, nil, err
	}
	return s, st, nil
}

func runThemes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	s, st, err := openSuite(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	state := s.Theme()
	box, err := state.BoxName()
	if err != nil {
		return err
	}
	icons, err := state.IconsName()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printProviders(out, "Box providers", state.Boxes().Names(), box)
	printProviders(out, "Icon providers", state.IconProviders().Names(), icons)

	colors := state.Colors()
	fmt.Fprintf(out, "\nBackground: %v\nButton:     %v\n", colors.Background, colors.Button)
	return nil
}

func printProviders(out io.Writer, title string, names []string, current string) {
	fmt.Fprintf(out, "%s:\n", title)
	for _, name := range names {
		mark := " "
		if name == current {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", mark, name)
	}
}

func runThemesUse(cmd *cobra.Command, args []string) error {
	if useBox == "" && useIcons == "" {
		return fmt.Errorf("nothing to select: pass --box and/or --icons")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	s, st, err := openSuite(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	state := s.Theme()
	if useBox != "" {
		name, err := resolveProvider(state.Boxes().Names(), useBox)
		if err != nil {
			return err
		}
		if err := state.SetBoxProvider(name); err != nil {
			return err
		}
	}
	if useIcons != "" {
		name, err := resolveProvider(state.IconProviders().Names(), useIcons)
		if err != nil {
			return err
		}
		if err := state.SetIconProvider(name); err != nil {
			return err
		}
	}

	if err := s.SaveTheme(context.Background(), st); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Theme saved")
	return nil
}

// resolveProvider matches input against qualified provider names, accepting
// the bare type name or package.Type as shorthand.
func resolveProvider(names []string, input string) (string, error) {
	var matches []string
	for _, name := range names {
		if name == input {
			return name, nil
		}
		if strings.HasSuffix(name, "."+input) || strings.HasSuffix(name, "/"+input) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("unknown provider %q", input)
	default:
		return "", fmt.Errorf("ambiguous provider %q: %s", input, strings.Join(matches, ", "))
	}
}
