package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casescope/casescope/internal/model"
)

func newCasesCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Browse and act on investigation cases",
	}
	cmd.AddCommand(
		newCasesListCmd(appOf),
		newCasesGetCmd(appOf),
		newCasesCreateCmd(appOf),
		newCasesStatusCmd(appOf),
		newCasesAssignCmd(appOf),
		newCasesApproveCmd(appOf),
		newCasesRejectCmd(appOf),
		newCasesCommentCmd(appOf),
		newCasesAuditCmd(appOf),
		newCasesSearchCmd(appOf),
	)
	return cmd
}

func newCasesListCmd(appOf func() *App) *cobra.Command {
	var (
		statuses   []string
		types      []string
		assignees  []string
		priorities []string
		tags       []string
		sortField  string
		sortDesc   bool
		page       int
		size       int
		mine       bool
		pending    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			pg := model.Page{Number: page, Size: size}

			if mine {
				out, err := app.Cases.My(cmd.Context(), pg)
				if err != nil {
					return err
				}
				renderCases(cmd.OutOrStdout(), out.Items, out.Pagination)
				return nil
			}
			if pending {
				out, err := app.Cases.ApprovalQueue(cmd.Context(), pg)
				if err != nil {
					return err
				}
				renderCases(cmd.OutOrStdout(), out.Items, out.Pagination)
				return nil
			}

			filters, err := caseFilters(statuses, types, assignees, priorities, tags)
			if err != nil {
				return err
			}
			var sort *model.Sort
			if sortField != "" {
				dir := model.SortAsc
				if sortDesc {
					dir = model.SortDesc
				}
				sort = &model.Sort{Field: sortField, Direction: dir}
			}
			out, err := app.Cases.List(cmd.Context(), filters, sort, pg)
			if err != nil {
				return err
			}
			renderCases(cmd.OutOrStdout(), out.Items, out.Pagination)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "filter by case type (repeatable)")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "filter by assignee (repeatable)")
	cmd.Flags().StringSliceVar(&priorities, "priority", nil, "filter by priority (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (repeatable)")
	cmd.Flags().StringVar(&sortField, "sort", "", "sort field")
	cmd.Flags().BoolVar(&sortDesc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 20, "page size")
	cmd.Flags().BoolVar(&mine, "mine", false, "only cases assigned to me")
	cmd.Flags().BoolVar(&pending, "pending-approval", false, "only the approval queue")
	return cmd
}

func caseFilters(statuses, types, assignees, priorities, tags []string) (*model.CaseFilters, error) {
	f := &model.CaseFilters{AssignedTo: assignees, Tags: tags}
	for _, v := range statuses {
		s, err := model.ParseCaseStatus(strings.ToUpper(v))
		if err != nil {
			return nil, err
		}
		f.Status = append(f.Status, s)
	}
	for _, v := range types {
		t, err := model.ParseCaseType(strings.ToUpper(v))
		if err != nil {
			return nil, err
		}
		f.Type = append(f.Type, t)
	}
	for _, v := range priorities {
		p, err := model.ParsePriority(strings.ToUpper(v))
		if err != nil {
			return nil, err
		}
		f.Priority = append(f.Priority, p)
	}
	return f, nil
}

func newCasesGetCmd(appOf func() *App) *cobra.Command {
	var withComments, withRelated bool
	cmd := &cobra.Command{
		Use:   "get <case-id>",
		Short: "Show one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			c, err := app.Cases.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderCase(cmd.OutOrStdout(), c)
			if withComments {
				comments, err := app.Cases.Comments(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "\ncomments:")
				renderComments(cmd.OutOrStdout(), comments)
			}
			if withRelated {
				related, err := app.Cases.Related(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(related) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "\nrelated cases:")
					renderCases(cmd.OutOrStdout(), related, model.Pagination{})
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withComments, "comments", false, "include the comment thread")
	cmd.Flags().BoolVar(&withRelated, "related", false, "include linked cases")
	return cmd
}

func newCasesCreateCmd(appOf func() *App) *cobra.Command {
	var (
		caseType    string
		priority    string
		description string
		riskScore   int
		entity      string
		alertID     string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			payload := model.CreateCase{
				CaseType:    model.CaseType(strings.ToUpper(caseType)),
				Priority:    model.Priority(strings.ToUpper(priority)),
				Description: description,
				Entity:      entity,
				AlertID:     alertID,
			}
			if cmd.Flags().Changed("risk") {
				payload.RiskScore = &riskScore
			}
			c, err := app.Cases.Create(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created case %s (%s)\n", c.CaseNumber, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseType, "type", "", "case type (AML, FRAUD, SANCTIONS)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().StringVar(&description, "description", "", "case description (required)")
	cmd.Flags().IntVar(&riskScore, "risk", 0, "risk score 0-100")
	cmd.Flags().StringVar(&entity, "entity", "", "subject entity")
	cmd.Flags().StringVar(&alertID, "alert", "", "originating alert id")
	cobra.CheckErr(cmd.MarkFlagRequired("description"))
	return cmd
}

func newCasesStatusCmd(appOf func() *App) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "status <case-id> <new-status>",
		Short: "Request a status change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			status, err := model.ParseCaseStatus(strings.ToUpper(args[1]))
			if err != nil {
				return err
			}
			c, err := app.Cases.UpdateStatus(cmd.Context(), args[0], status, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case %s is now %s\n", c.CaseNumber, c.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "audit comment for the transition")
	return cmd
}

func newCasesAssignCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <case-id> <assignee>",
		Short: "Assign a case to an investigator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			c, err := app.Cases.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case %s assigned to %s\n", c.CaseNumber, c.AssignedTo)
			return nil
		},
	}
	return cmd
}

func newCasesApproveCmd(appOf func() *App) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "approve <case-id>",
		Short: "Approve a case pending supervisor review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			c, err := app.Cases.Approve(cmd.Context(), args[0], comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case %s approved, now %s\n", c.CaseNumber, c.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "approval comment")
	return cmd
}

func newCasesRejectCmd(appOf func() *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <case-id>",
		Short: "Reject a case pending supervisor review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			c, err := app.Cases.Reject(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case %s rejected\n", c.CaseNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("reason"))
	return cmd
}

func newCasesCommentCmd(appOf func() *App) *cobra.Command {
	var (
		internal bool
		mentions []string
	)
	cmd := &cobra.Command{
		Use:   "comment <case-id> <text>",
		Short: "Add a comment to a case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			c, err := app.Cases.AddComment(cmd.Context(), args[0], args[1], internal, mentions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "comment %s added\n", c.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "mark as internal-only")
	cmd.Flags().StringSliceVar(&mentions, "mention", nil, "user to notify (repeatable)")
	return cmd
}

func newCasesAuditCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <case-id>",
		Short: "Show a case's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			entries, err := app.Cases.Audit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderAudit(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	return cmd
}

func newCasesSearchCmd(appOf func() *App) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search across cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			out, err := app.Cases.Search(cmd.Context(), args[0], model.Page{Number: page, Size: size})
			if err != nil {
				return err
			}
			renderCases(cmd.OutOrStdout(), out.Items, out.Pagination)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 20, "page size")
	return cmd
}
