// cmd/client/cmd/init.go
package cmd

import (
	"fmt"

	"daylog/cmd/client/cmd/auth"
	"daylog/cmd/client/cmd/block"
	"daylog/cmd/client/cmd/device"
	"daylog/cmd/client/cmd/settings"
	"daylog/cmd/client/cmd/sync"
	"daylog/cmd/client/cmd/task"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Check the local install and the configured server",
	Long: `init generates the device key and client id on first run (done
automatically by every command, via internal/app/client.New) and then
confirms the configured server is reachable. There is no master password
here: the only secret daylog keeps is the bearer token, encrypted at rest
with a key generated the first time any daylog command runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("=== daylog client ===")
		fmt.Printf("config dir: %s\n", cfg.ConfigDir)
		fmt.Printf("server:     %s\n", cfg.APIURL)
		fmt.Println()

		fmt.Print("checking server connection... ")
		if err := app.CheckConnection(); err != nil {
			fmt.Println("unreachable")
			fmt.Printf("  %v\n", err)
			fmt.Println("you can keep working offline; changes will sync once the server is reachable")
		} else {
			fmt.Println("ok")
		}

		if app.IsAuthenticated() {
			fmt.Println("signed in: yes")
		} else {
			fmt.Println("signed in: no — run `daylog auth login`")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)
	auth.AuthCmd.AddCommand(auth.WhoamiCmd)

	rootCmd.AddCommand(block.BlockCmd)
	rootCmd.AddCommand(task.TaskCmd)
	rootCmd.AddCommand(settings.SettingsCmd)
	rootCmd.AddCommand(device.DeviceCmd)
	rootCmd.AddCommand(sync.SyncCmd)
}
