// cmd/client/cmd/sync/sync.go
package sync

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
	"daylog/internal/app/client"
)

var (
	statusOnly bool
	resetStats bool
	resolveID  string
	resolution string
)

// SyncCmd runs one push-then-pull cycle (spec.md §4.1 Sync), or reports the
// sync engine's accumulated stats, or resolves a previously reported
// conflict (spec.md §4.2.4 — bookkeeping only, per that endpoint's Open
// Question).
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending local edits and pull server changes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}

		if resetStats {
			app.GetSyncService().ResetStats()
			fmt.Println("sync stats reset")
			return nil
		}

		if resolveID != "" {
			if resolution == "" {
				return fmt.Errorf("--resolve requires --resolution (kept_local|kept_server|kept_both)")
			}
			if err := app.ResolveConflict(cmd.Context(), resolveID, resolution); err != nil {
				return fmt.Errorf("resolve conflict: %w", err)
			}
			color.Green("conflict %s marked %s", resolveID, resolution)
			return nil
		}

		if statusOnly {
			return printStatus(app)
		}

		if !app.IsAuthenticated() {
			return fmt.Errorf("not signed in; run `daylog auth login` first")
		}
		if err := app.CheckConnection(); err != nil {
			color.Yellow("server unreachable: %v", err)
			return nil
		}

		result, err := app.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		if result.Success {
			color.Green("sync complete in %v", result.Duration.Round(1e6))
		} else {
			color.Yellow("sync completed with errors in %v", result.Duration.Round(1e6))
		}
		fmt.Printf("pushed %d, pulled %d\n", result.Pushed, result.Pulled)

		if result.Conflicts > 0 {
			color.Red("%d conflict(s) detected — a \"[Conflict] ...\" block was created for each;", result.Conflicts)
			fmt.Println("resolve with: daylog sync --resolve <id> --resolution kept_both")
		}
		for _, e := range result.Errors {
			color.Red("  %s: %s", e.Operation, e.Error)
		}

		return nil
	},
}

func printStatus(app *client.App) error {
	stats := app.GetSyncService().GetStats()
	fmt.Printf("total syncs:    %d\n", stats.TotalSyncs)
	fmt.Printf("total errors:   %d\n", stats.TotalErrors)
	fmt.Printf("pushed:         %d\n", stats.TotalPushed)
	fmt.Printf("pulled:         %d\n", stats.TotalPulled)
	fmt.Printf("conflicts seen: %d\n", stats.TotalConflicts)
	fmt.Printf("avg duration:   %.2fs\n", stats.AvgSyncDuration)
	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("last success:   %s\n", stats.LastSuccessful.Format("2006-01-02 15:04:05"))
	}
	if !stats.LastFailed.IsZero() {
		fmt.Printf("last failure:   %s\n", stats.LastFailed.Format("2006-01-02 15:04:05"))
	}

	if app.IsAuthenticated() {
		color.Green("authenticated")
	} else {
		color.Yellow("not signed in")
	}
	if err := app.CheckConnection(); err != nil {
		color.Red("server unreachable: %v", err)
	} else {
		color.Green("server reachable")
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&statusOnly, "status", false, "print sync stats without syncing")
	SyncCmd.Flags().BoolVar(&resetStats, "reset", false, "reset accumulated sync stats")
	SyncCmd.Flags().StringVar(&resolveID, "resolve", "", "mark the named conflict resolved")
	SyncCmd.Flags().StringVar(&resolution, "resolution", "", "kept_local|kept_server|kept_both, with --resolve")
}
