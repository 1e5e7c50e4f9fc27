// cmd/client/cmd/block/block.go
package block

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
	"daylog/internal/app/client"
)

// BlockCmd is the parent command for block operations (spec.md §4.1
// SaveBlock/DeleteBlock, exposed here for scripting and debugging — the
// real editing surface is the out-of-scope text editor UI, per spec.md §1).
var BlockCmd = &cobra.Command{
	Use:   "block",
	Short: "Manage log blocks",
}

var (
	saveID       string
	saveText     string
	saveCalEvent string
	listAll      bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a block",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if saveText == "" {
			return fmt.Errorf("--text is required")
		}

		id := saveID
		existing, found, err := findBlock(app, id)
		if err != nil {
			return err
		}

		var b client.Block
		if found {
			b = existing
			b.Text = saveText
		} else {
			if id == "" {
				id = uuid.NewString()
			}
			b = client.Block{ID: id, Text: saveText, CreatedAt: time.Now().UTC()}
		}
		if saveCalEvent != "" {
			b.CalendarEventID = &saveCalEvent
		}

		if err := app.SaveBlock(b); err != nil {
			return fmt.Errorf("save block: %w", err)
		}
		color.Green("saved block %s", b.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Tombstone a block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if err := app.DeleteBlock(args[0]); err != nil {
			return fmt.Errorf("delete block: %w", err)
		}
		color.Green("deleted block %s", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocks, ordered (createdAt ASC, position ASC)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		var blocks []client.Block
		var err error
		if listAll {
			blocks, err = app.ListAllBlocks()
		} else {
			blocks, err = app.ListBlocks()
		}
		if err != nil {
			return fmt.Errorf("list blocks: %w", err)
		}
		if len(blocks) == 0 {
			fmt.Println("no blocks")
			return nil
		}
		for _, b := range blocks {
			status := string(b.SyncStatus)
			paint := color.New(color.FgYellow)
			switch {
			case b.IsTombstone():
				status = "deleted"
				paint = color.New(color.FgRed)
			case b.SyncStatus == client.StatusConflict:
				paint = color.New(color.FgRed)
			case b.SyncStatus == client.StatusSynced:
				paint = color.New(color.FgGreen)
			}
			fmt.Printf("%s  [%s]  %s  %s\n", b.CreatedAt.Format("2006-01-02 15:04"), paint.Sprint(status), b.ID, b.Text)
		}
		return nil
	},
}

func findBlock(app *client.App, id string) (client.Block, bool, error) {
	if id == "" {
		return client.Block{}, false, nil
	}
	blocks, err := app.ListBlocks()
	if err != nil {
		return client.Block{}, false, fmt.Errorf("list blocks: %w", err)
	}
	for _, b := range blocks {
		if b.ID == id {
			return b, true, nil
		}
	}
	return client.Block{}, false, nil
}

func init() {
	saveCmd.Flags().StringVar(&saveID, "id", "", "block id (generated if omitted and new)")
	saveCmd.Flags().StringVar(&saveText, "text", "", "block text")
	saveCmd.Flags().StringVar(&saveCalEvent, "calendar-event-id", "", "opaque calendar event handle, propagated round-trip")
	listCmd.Flags().BoolVar(&listAll, "all", false, "include tombstoned blocks")

	BlockCmd.AddCommand(saveCmd, deleteCmd, listCmd)
}
