// cmd/client/cmd/settings/settings.go
package settings

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
)

// SettingsCmd is the parent command for the single-row settings collection
// (spec.md §3 Settings — theme and dayCutHour, last-writer-wins).
var SettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change theme and day-cut-hour",
}

var (
	theme      string
	dayCutHour int
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		st, err := app.GetSettings()
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		fmt.Printf("theme:        %s\n", st.Theme)
		fmt.Printf("dayCutHour:   %d\n", st.DayCutHour)
		fmt.Printf("updatedAt:    %s\n", st.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Update theme and/or dayCutHour",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}

		st, err := app.GetSettings()
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}

		if theme != "" {
			switch theme {
			case "system", "light", "dark":
				st.Theme = theme
			default:
				return fmt.Errorf("theme must be one of system, light, dark")
			}
		}
		if cmd.Flags().Changed("day-cut-hour") {
			if dayCutHour < 0 || dayCutHour > 23 {
				return fmt.Errorf("day-cut-hour must be in [0,23]")
			}
			st.DayCutHour = dayCutHour
		}

		if err := app.SaveSettings(*st); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		color.Green("settings updated")
		return nil
	},
}

func init() {
	setCmd.Flags().StringVar(&theme, "theme", "", "system|light|dark")
	setCmd.Flags().IntVar(&dayCutHour, "day-cut-hour", 0, "hour in [0,23] at which tomorrow's tasks roll into blocks")

	SettingsCmd.AddCommand(getCmd, setCmd)
}
