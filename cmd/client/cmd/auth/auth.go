package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd is the parent command for every authentication subcommand.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out, and inspect the current session",
}
