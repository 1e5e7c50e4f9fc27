// cmd/client/cmd/auth/logout.go
package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
)

// LogoutCmd implements spec.md §4.1 SignOut: clears the local token but
// never deletes local data, which becomes the anonymous baseline.
var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the local bearer token",
	Long: `Sign out locally. This does not touch the server session and does
not delete local blocks, tasks, or settings — they simply stop syncing
until the next sign-in, per spec.md §4.1.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if err := app.ClearToken(); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		fmt.Println("signed out")
		return nil
	},
}
