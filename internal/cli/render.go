package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/casescope/casescope/internal/model"
)

func renderCases(w io.Writer, items []model.Case, pg model.Pagination) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tTYPE\tSTATUS\tPRIORITY\tRISK\tASSIGNEE")
	for _, c := range items {
		risk := "-"
		if c.RiskScore != nil {
			risk = fmt.Sprintf("%d (%s)", *c.RiskScore, model.RiskLevel(*c.RiskScore))
		}
		assignee := c.AssignedTo
		if assignee == "" {
			assignee = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.CaseNumber, c.CaseType, c.Status, c.Priority, risk, assignee)
	}
	tw.Flush()
	if pg.TotalPages > 1 {
		fmt.Fprintf(w, "page %d of %d (%d total)\n", pg.Page+1, pg.TotalPages, pg.Total)
	}
}

func renderCase(w io.Writer, c model.Case) {
	fmt.Fprintf(w, "case %s (%s)\n", c.CaseNumber, c.ID)
	fmt.Fprintf(w, "  type:     %s\n", c.CaseType)
	fmt.Fprintf(w, "  status:   %s\n", c.Status)
	fmt.Fprintf(w, "  priority: %s\n", c.Priority)
	if c.RiskScore != nil {
		fmt.Fprintf(w, "  risk:     %d (%s)\n", *c.RiskScore, model.RiskLevel(*c.RiskScore))
	}
	if c.AssignedTo != "" {
		fmt.Fprintf(w, "  assignee: %s\n", c.AssignedTo)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "  tags:     %v\n", c.Tags)
	}
	fmt.Fprintf(w, "  updated:  %s\n", c.UpdatedAt.Format(time.RFC3339))
	if c.Description != "" {
		fmt.Fprintf(w, "\n%s\n", c.Description)
	}
}

func renderTasks(w io.Writer, items []model.Task, pg model.Pagination) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tCASE\tDUE")
	for _, t := range items {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, t.CaseID, due)
	}
	tw.Flush()
	if pg.TotalPages > 1 {
		fmt.Fprintf(w, "page %d of %d (%d total)\n", pg.Page+1, pg.TotalPages, pg.Total)
	}
}

func renderTask(w io.Writer, t model.Task) {
	fmt.Fprintf(w, "task %s\n", t.ID)
	fmt.Fprintf(w, "  title:    %s\n", t.Title)
	fmt.Fprintf(w, "  status:   %s\n", t.Status)
	fmt.Fprintf(w, "  priority: %s\n", t.Priority)
	fmt.Fprintf(w, "  case:     %s\n", t.CaseID)
	if t.AssignedTo != "" {
		fmt.Fprintf(w, "  assignee: %s\n", t.AssignedTo)
	}
	if t.DueDate != nil {
		fmt.Fprintf(w, "  due:      %s\n", t.DueDate.Format(time.RFC3339))
	}
	if len(t.Variables) > 0 {
		fmt.Fprintf(w, "  variables:\n")
		for k, v := range t.Variables {
			fmt.Fprintf(w, "    %s: %v\n", k, v)
		}
	}
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
}

func renderComments(w io.Writer, comments []model.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "no comments")
		return
	}
	for _, c := range comments {
		marker := ""
		if c.IsInternal {
			marker = " [internal]"
		}
		fmt.Fprintf(w, "%s %s%s\n  %s\n", c.CreatedAt.Format(time.RFC3339), c.Author, marker, c.Content)
	}
}

func renderAudit(w io.Writer, entries []model.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no audit entries")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tBY\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Action, e.CreatedBy, e.Description)
	}
	tw.Flush()
}

func renderStats(w io.Writer, s model.DashboardStats) {
	fmt.Fprintf(w, "cases:   %d total, %d active, %d completed\n", s.TotalCases, s.ActiveCases, s.CompletedCases)
	fmt.Fprintf(w, "mine:    %d cases, %d tasks\n", s.MyActiveCases, s.MyTasks)
	fmt.Fprintf(w, "overdue: %d items\n", s.OverdueItems)
	fmt.Fprintf(w, "risk:    low %d / medium %d / high %d / critical %d\n",
		s.RiskDistribution.Low, s.RiskDistribution.Medium, s.RiskDistribution.High, s.RiskDistribution.Critical)
}
