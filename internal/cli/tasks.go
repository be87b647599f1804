package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casescope/casescope/internal/model"
)

func newTasksCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Browse and work the task queue",
	}
	cmd.AddCommand(
		newTasksListCmd(appOf),
		newTasksGetCmd(appOf),
		newTasksClaimCmd(appOf),
		newTasksReleaseCmd(appOf),
		newTasksStartCmd(appOf),
		newTasksCompleteCmd(appOf),
		newTasksPauseCmd(appOf),
		newTasksResumeCmd(appOf),
		newTasksCancelCmd(appOf),
		newTasksCommentCmd(appOf),
		newTasksHistoryCmd(appOf),
	)
	return cmd
}

func newTasksListCmd(appOf func() *App) *cobra.Command {
	var (
		statuses  []string
		caseID    string
		assignee  string
		page      int
		size      int
		mine      bool
		available bool
		overdue   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			pg := model.Page{Number: page, Size: size}
			out := cmd.OutOrStdout()

			switch {
			case mine:
				who := assignee
				if who == "" && app.Session.User() != nil {
					who = app.Session.User().Username
				}
				res, err := app.Tasks.My(cmd.Context(), who, pg)
				if err != nil {
					return err
				}
				renderTasks(out, res.Items, res.Pagination)
			case available:
				res, err := app.Tasks.Available(cmd.Context(), pg)
				if err != nil {
					return err
				}
				renderTasks(out, res.Items, res.Pagination)
			case overdue:
				res, err := app.Tasks.Overdue(cmd.Context(), pg)
				if err != nil {
					return err
				}
				renderTasks(out, res.Items, res.Pagination)
			case caseID != "":
				items, err := app.Tasks.ByCase(cmd.Context(), caseID)
				if err != nil {
					return err
				}
				renderTasks(out, items, model.Pagination{})
			default:
				filters := &model.TaskFilters{}
				for _, v := range statuses {
					s, err := model.ParseTaskStatus(strings.ToUpper(v))
					if err != nil {
						return err
					}
					filters.Status = append(filters.Status, s)
				}
				if assignee != "" {
					filters.AssignedTo = []string{assignee}
				}
				res, err := app.Tasks.List(cmd.Context(), filters, nil, pg)
				if err != nil {
					return err
				}
				renderTasks(out, res.Items, res.Pagination)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().StringVar(&caseID, "case", "", "tasks belonging to one case")
	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assignee")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 20, "page size")
	cmd.Flags().BoolVar(&mine, "mine", false, "only my tasks")
	cmd.Flags().BoolVar(&available, "available", false, "only the unassigned pool")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue tasks")
	return cmd
}

func newTasksGetCmd(appOf func() *App) *cobra.Command {
	var withComments, withHistory bool
	cmd := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			t, err := app.Tasks.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderTask(cmd.OutOrStdout(), t)
			if withComments {
				comments, err := app.Tasks.Comments(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "\ncomments:")
				renderComments(cmd.OutOrStdout(), comments)
			}
			if withHistory {
				entries, err := app.Tasks.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "\nhistory:")
				renderAudit(cmd.OutOrStdout(), entries)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withComments, "comments", false, "include the comment thread")
	cmd.Flags().BoolVar(&withHistory, "history", false, "include the task history")
	return cmd
}

// lifecycleCmd covers the transitions that take no payload beyond the id.
func lifecycleCmd(use, short, done string,
	op func(ctx context.Context, app *App, id string) (model.Task, error),
	appOf func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := op(cmd.Context(), appOf(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s %s (now %s)\n", t.ID, done, t.Status)
			return nil
		},
	}
}

func newTasksClaimCmd(appOf func() *App) *cobra.Command {
	return lifecycleCmd("claim <task-id>", "Claim a task from the pool", "claimed",
		func(ctx context.Context, app *App, id string) (model.Task, error) {
			return app.Tasks.Claim(ctx, id)
		}, appOf)
}

func newTasksReleaseCmd(appOf func() *App) *cobra.Command {
	return lifecycleCmd("release <task-id>", "Release a claimed task back to the pool", "released",
		func(ctx context.Context, app *App, id string) (model.Task, error) {
			return app.Tasks.Release(ctx, id)
		}, appOf)
}

func newTasksStartCmd(appOf func() *App) *cobra.Command {
	return lifecycleCmd("start <task-id>", "Start working a task", "started",
		func(ctx context.Context, app *App, id string) (model.Task, error) {
			return app.Tasks.Start(ctx, id)
		}, appOf)
}

func newTasksResumeCmd(appOf func() *App) *cobra.Command {
	return lifecycleCmd("resume <task-id>", "Resume a paused task", "resumed",
		func(ctx context.Context, app *App, id string) (model.Task, error) {
			return app.Tasks.Resume(ctx, id)
		}, appOf)
}

func newTasksCompleteCmd(appOf func() *App) *cobra.Command {
	var varsJSON string
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			var variables map[string]any
			if varsJSON != "" {
				if err := json.Unmarshal([]byte(varsJSON), &variables); err != nil {
					return fmt.Errorf("parse --variables: %w", err)
				}
			}
			t, err := app.Tasks.Complete(cmd.Context(), args[0], variables)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s completed\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&varsJSON, "variables", "", "completion variables as a JSON object")
	return cmd
}

func newTasksPauseCmd(appOf func() *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "pause <task-id>",
		Short: "Pause an in-progress task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			t, err := app.Tasks.Pause(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s paused\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the task is paused")
	return cmd
}

func newTasksCancelCmd(appOf func() *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			t, err := app.Tasks.Cancel(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s cancelled\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("reason"))
	return cmd
}

func newTasksCommentCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <task-id> <text>",
		Short: "Add a comment to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			c, err := app.Tasks.AddComment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "comment %s added\n", c.ID)
			return nil
		},
	}
	return cmd
}

func newTasksHistoryCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show a task's change history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			entries, err := app.Tasks.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderAudit(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	return cmd
}
