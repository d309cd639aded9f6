package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change UI preferences",
}

func init() {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		Run:   runConfigShow,
	}

	themeCmd := &cobra.Command{
		Use:   "theme",
		Short: "Toggle between dark and light",
		Args:  cobra.NoArgs,
		Run:   runConfigTheme,
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a preference",
		Long:  "Set a preference. Keys: avatar, fontSize, theme, enableAutoGenerateTitle, sidebarWidth, model.<name> (availability).",
		Args:  cobra.ExactArgs(2),
		Run:   runConfigSet,
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences",
		Args:  cobra.NoArgs,
		Run:   runConfigReset,
	}

	configCmd.AddCommand(showCmd, themeCmd, setCmd, resetCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()
	printJSON(cmd, s.Config.Get())
}

func runConfigTheme(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	if err := s.Config.ToggleTheme(cmd.Context()); err != nil {
		exitErr("config theme", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"theme":%q}`+"\n", s.Config.Get().Theme)
}

// setPreference returns an updater assigning value to the named field.
func setPreference(key, value string) (func(c *model.Config), error) {
	switch key {
	case "avatar":
		return func(c *model.Config) { c.Avatar = value }, nil
	case "theme":
		t := model.Theme(value)
		if t != model.ThemeDark && t != model.ThemeLight {
			return nil, fmt.Errorf("theme must be dark or light, got %q", value)
		}
		return func(c *model.Config) { c.Theme = t }, nil
	case "fontSize", "sidebarWidth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		if key == "fontSize" {
			return func(c *model.Config) { c.FontSize = n }, nil
		}
		return func(c *model.Config) { c.SidebarWidth = n }, nil
	case "enableAutoGenerateTitle":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		return func(c *model.Config) { c.EnableAutoGenerateTitle = b }, nil
	}

	if name, ok := strings.CutPrefix(key, "model."); ok {
		if !model.ValidModels[name] {
			return nil, fmt.Errorf("unknown model %q", name)
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		return func(c *model.Config) {
			for i := range c.Models {
				if c.Models[i].Name == name {
					c.Models[i].Available = b
				}
			}
		}, nil
	}
	return nil, fmt.Errorf("unknown preference %q", key)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	fn, err := setPreference(args[0], args[1])
	if err != nil {
		exitErr("config set", err)
	}

	s, done := mustStores(cmd)
	defer done()

	if err := s.Config.Update(cmd.Context(), fn); err != nil {
		exitErr("config set", err)
	}
	printJSON(cmd, s.Config.Get())
}

func runConfigReset(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	if err := s.Config.Reset(cmd.Context()); err != nil {
		exitErr("config reset", err)
	}
	printJSON(cmd, s.Config.Get())
}
