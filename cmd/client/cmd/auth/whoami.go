// cmd/client/cmd/auth/whoami.go
package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
)

// WhoamiCmd calls GET /auth/me (spec.md §4.4), the endpoint clients use to
// validate a persisted token.
var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Validate the persisted token against GET /auth/me",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if !app.IsAuthenticated() {
			fmt.Println("not signed in")
			return nil
		}

		email, name, err := app.Whoami(cmd.Context())
		if err != nil {
			return fmt.Errorf("token is no longer valid: %w", err)
		}
		fmt.Printf("signed in as %s <%s>\n", name, email)
		return nil
	},
}
