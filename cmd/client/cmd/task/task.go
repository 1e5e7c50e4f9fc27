// cmd/client/cmd/task/task.go
package task

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"daylog/cmd/client/cmd/clientctx"
	"daylog/internal/app/client"
)

// TaskCmd is the parent command for tomorrow-task operations (spec.md §4.1
// SaveTomorrowTask/DeleteTomorrowTask).
var TaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tomorrow's task list",
}

var (
	saveID   string
	saveText string
	saveTime string
	listAll  bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a tomorrow task",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if saveText == "" {
			return fmt.Errorf("--text is required")
		}

		id := saveID
		existing, found, err := findTask(app, id)
		if err != nil {
			return err
		}

		var t client.TomorrowTask
		if found {
			t = existing
			t.Text = saveText
		} else {
			if id == "" {
				id = uuid.NewString()
			}
			t = client.TomorrowTask{ID: id, Text: saveText}
		}
		if saveTime != "" {
			t.Time = &saveTime
		}

		if err := app.SaveTomorrowTask(t); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		color.Green("saved task %s", t.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Tombstone a tomorrow task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		if err := app.DeleteTomorrowTask(args[0]); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		color.Green("deleted task %s", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tomorrow tasks, ordered by position",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := clientctx.From(cmd.Context())
		if app == nil {
			return fmt.Errorf("client not initialized")
		}
		var tasks []client.TomorrowTask
		var err error
		if listAll {
			tasks, err = app.ListAllTomorrowTasks()
		} else {
			tasks, err = app.ListTomorrowTasks()
		}
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("no tasks")
			return nil
		}
		for _, t := range tasks {
			status := string(t.SyncStatus)
			paint := color.New(color.FgYellow)
			switch {
			case t.IsTombstone():
				status = "deleted"
				paint = color.New(color.FgRed)
			case t.SyncStatus == client.StatusConflict:
				paint = color.New(color.FgRed)
			case t.SyncStatus == client.StatusSynced:
				paint = color.New(color.FgGreen)
			}
			when := ""
			if t.Time != nil {
				when = *t.Time + " "
			}
			fmt.Printf("[%s]  %s%s  %s\n", paint.Sprint(status), when, t.ID, t.Text)
		}
		return nil
	},
}

func findTask(app *client.App, id string) (client.TomorrowTask, bool, error) {
	if id == "" {
		return client.TomorrowTask{}, false, nil
	}
	tasks, err := app.ListAllTomorrowTasks()
	if err != nil {
		return client.TomorrowTask{}, false, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, true, nil
		}
	}
	return client.TomorrowTask{}, false, nil
}

func init() {
	saveCmd.Flags().StringVar(&saveID, "id", "", "task id (generated if omitted and new)")
	saveCmd.Flags().StringVar(&saveText, "text", "", "task text")
	saveCmd.Flags().StringVar(&saveTime, "time", "", "HH:MM, optional")
	listCmd.Flags().BoolVar(&listAll, "all", false, "include tombstoned tasks")

	TaskCmd.AddCommand(saveCmd, deleteCmd, listCmd)
}
