// cmd/client/cmd/device/device.go
package device

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
)

// DeviceCmd lists and revokes the caller's registered replicas
// (SPEC_FULL.md §4.2.6, supplementing spec.md from original_source/ prior
// art). Removing a device is advisory — it does not revoke its bearer
// token, per SPEC_FULL.md's note that token revocation stays out of scope.
var DeviceCmd = &cobra.Command{
	Use:   "device",
	Short: "List and revoke registered replicas",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List this account's known devices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		devices, err := app.ListDevices(cmd.Context())
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Println("no devices")
			return nil
		}
		for _, d := range devices {
			mine := ""
			if d.ClientID == app.ClientID() {
				mine = " (this device)"
			}
			fmt.Printf("%s  %-8s  %-20s  last seen %s%s\n",
				d.ID, d.Platform, d.Label, d.LastSeenAt.Format("2006-01-02 15:04"), mine)
		}
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <device-id>",
	Short: "Revoke a device's registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if err := app.RemoveDevice(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("remove device: %w", err)
		}
		color.Green("removed device %s", args[0])
		return nil
	},
}

func init() {
	DeviceCmd.AddCommand(listCmd, removeCmd)
}
