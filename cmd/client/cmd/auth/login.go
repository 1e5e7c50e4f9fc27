// cmd/client/cmd/auth/login.go
package auth

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"daylog/cmd/client/cmd/clientctx"
)

var (
	idToken        string
	internal       bool
	internalSecret string
	providerID     string
	email          string
	name           string
	image          string
)

// LoginCmd implements spec.md §4.4's two accept paths. The default path
// exchanges a Google ID token obtained elsewhere (a browser-based OAuth
// flow this CLI does not itself perform, per spec.md §1's "OAuth identity
// verification... out of scope") for a daylog bearer token. --internal is
// the trusted-source shortcut, gated by a deployment secret.
var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist a bearer token",
	Long: `Sign in to the daylog server.

The default path exchanges a Google ID token for a daylog bearer token
(POST /auth/google). Pass --id-token, or omit it to be prompted (input is
not echoed, since the token is a credential). The --internal path is the
trusted-source shortcut from spec.md §4.4 and requires a deployment secret.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}

		if internal {
			if internalSecret == "" {
				fmt.Print("internal secret: ")
				secret, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("read secret: %w", err)
				}
				internalSecret = string(secret)
			}
			if providerID == "" || email == "" {
				return fmt.Errorf("--internal requires --provider-id and --email")
			}
			if err := app.LoginInternal(cmd.Context(), internalSecret, providerID, email, name, image); err != nil {
				return fmt.Errorf("internal sign-in failed: %w", err)
			}
		} else {
			if idToken == "" {
				fmt.Print("google id token: ")
				tok, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("read id token: %w", err)
				}
				idToken = string(tok)
			}
			if err := app.LoginGoogle(cmd.Context(), idToken); err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}
		}

		color.Green("signed in")

		// Push whatever was written locally while signed out before pulling
		// the server's state, per spec.md §4.1 SignIn ordering.
		result, err := app.Sync(cmd.Context())
		if err != nil {
			color.Yellow("initial sync failed, will retry on the next tick: %v", err)
			return nil
		}
		fmt.Printf("pushed %d, pulled %d, conflicts %d\n", result.Pushed, result.Pulled, result.Conflicts)
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token (prompted if omitted)")
	LoginCmd.Flags().BoolVar(&internal, "internal", false, "use the trusted-source internal sign-in path")
	LoginCmd.Flags().StringVar(&internalSecret, "secret", "", "internal deployment secret (prompted if omitted)")
	LoginCmd.Flags().StringVar(&providerID, "provider-id", "", "canonical provider id for --internal")
	LoginCmd.Flags().StringVar(&email, "email", "", "email for --internal")
	LoginCmd.Flags().StringVar(&name, "name", "", "display name for --internal")
	LoginCmd.Flags().StringVar(&image, "image", "", "avatar URL for --internal")
}
