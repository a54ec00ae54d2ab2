package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/issuedesk/issuedesk/internal/issues"
	"github.com/issuedesk/issuedesk/internal/llm"
	"github.com/issuedesk/issuedesk/internal/models"
	"github.com/issuedesk/issuedesk/internal/output"
)

var (
	issueTitle    string
	issueDesc     string
	issueStatus   string
	issuePage     int
	issueLimit    int
	issueAssignee string
	issueClear    bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "Create, list, update, assign, and close issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new issue",
	Long:  "Add a new issue owned by the acting identity (--as or identity.email).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long:    "List issues, newest first, one page at a time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Update an issue",
	Long:  "Update an issue's title, description, or status. Only the author may update an issue.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueUpdateRun(args[0])
	},
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <issue-id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCloseRun(args[0])
	},
}

var issueAssignCmd = &cobra.Command{
	Use:   "assign <issue-id>",
	Short: "Assign an issue to a user",
	Long:  "Assign an issue to a registered user by email, or clear the assignment with --clear.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAssignRun(args[0])
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Long:    "Delete an issue permanently. Only the author may delete an issue.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0])
	},
}

var issueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show issue counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStatsRun()
	},
}

var issueEnrichCmd = &cobra.Command{
	Use:   "enrich <issue-id>",
	Short: "Improve an issue description with AI",
	Long:  "Rewrite an issue's description with the Anthropic API. Requires anthropic.api_key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueEnrichRun(args[0])
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	_ = issueAddCmd.MarkFlagRequired("title")
	_ = issueAddCmd.MarkFlagRequired("desc")

	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: OPEN, IN_PROGRESS, CLOSED")
	issueListCmd.Flags().IntVar(&issuePage, "page", 1, "Page number (1-based)")
	issueListCmd.Flags().IntVar(&issueLimit, "limit", 0, "Page size (default from list.default_limit)")
	issueCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: OPEN, IN_PROGRESS, CLOSED")

	issueUpdateCmd.Flags().StringVar(&issueTitle, "title", "", "New title")
	issueUpdateCmd.Flags().StringVar(&issueDesc, "desc", "", "New description")
	issueUpdateCmd.Flags().StringVar(&issueStatus, "status", "", "New status: OPEN, IN_PROGRESS, CLOSED")

	issueAssignCmd.Flags().StringVar(&issueAssignee, "to", "", "Email of the user to assign")
	issueAssignCmd.Flags().BoolVar(&issueClear, "clear", false, "Clear the current assignment")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueCloseCmd)
	issueCmd.AddCommand(issueAssignCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	issueCmd.AddCommand(issueStatsCmd)
	issueCmd.AddCommand(issueEnrichCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueAddRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	caller := getCaller(ctx, dataStore)

	if dryRun {
		ui.DryRunMsg("Would add issue: %s", issueTitle)
		return nil
	}

	issue, err := svc.Create(ctx, caller, issues.CreateInput{
		Title:       issueTitle,
		Description: issueDesc,
	})
	if err != nil {
		return err
	}

	ui.Success("Created issue %s: %s", output.Cyan(fmt.Sprintf("#%d", issue.ID)), issue.Title)
	return nil
}

func issueListRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	limit := issueLimit
	if limit <= 0 {
		limit = viper.GetInt("list.default_limit")
	}

	page, err := svc.List(ctx,
		issues.ListFilter{Status: issueStatus},
		issues.PageRequest{Page: issuePage, Limit: limit},
	)
	if err != nil {
		return err
	}

	if len(page.Issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Status", "Assignee", "Created"})
	for _, issue := range page.Issues {
		assignee := ""
		if issue.Assignee != nil {
			assignee = issue.Assignee.Email
		}
		_ = table.Append([]string{
			fmt.Sprintf("#%d", issue.ID),
			issue.Title,
			output.StatusColor(string(issue.Status)),
			assignee,
			issue.CreatedAt.Format("2006-01-02"),
		})
	}
	_ = table.Render()

	p := page.Pagination
	if p.TotalPages > 1 {
		fmt.Fprintf(ui.Out, "\nPage %d of %d (%d issues)\n", p.Page, p.TotalPages, p.TotalCount)
	}
	return nil
}

func issueShowRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}

	issue, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(fmt.Sprintf("#%d", issue.ID)), issue.Title)
	fmt.Fprintf(ui.Out, "  Status:      %s\n", output.StatusColor(string(issue.Status)))
	if issue.Author != nil {
		fmt.Fprintf(ui.Out, "  Author:      %s <%s>\n", issue.Author.Name, issue.Author.Email)
	}
	if issue.Assignee != nil {
		fmt.Fprintf(ui.Out, "  Assignee:    %s <%s>\n", issue.Assignee.Name, issue.Assignee.Email)
	}
	fmt.Fprintf(ui.Out, "  Description: %s\n", issue.Description)
	fmt.Fprintf(ui.Out, "  Created:     %s\n", issue.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:     %s\n", issue.UpdatedAt.Format(time.RFC3339))

	return nil
}

func issueUpdateRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	caller := getCaller(ctx, dataStore)

	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}

	current, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	in := issues.UpdateInput{
		Title:       current.Title,
		Description: current.Description,
	}
	changed := false
	if issueTitle != "" {
		in.Title = issueTitle
		changed = true
	}
	if issueDesc != "" {
		in.Description = issueDesc
		changed = true
	}
	if issueStatus != "" {
		st := models.IssueStatus(issueStatus)
		in.Status = &st
		changed = true
	}
	if !changed {
		return fmt.Errorf("no updates specified (use --title, --desc, or --status)")
	}

	if dryRun {
		ui.DryRunMsg("Would update issue #%d", id)
		return nil
	}

	if _, err := svc.Update(ctx, caller, id, in); err != nil {
		return err
	}

	ui.Success("Updated issue %s", output.Cyan(fmt.Sprintf("#%d", id)))
	return nil
}

func issueCloseRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	caller := getCaller(ctx, dataStore)

	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}

	current, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would close issue #%d: %s", id, current.Title)
		return nil
	}

	closed := models.IssueStatusClosed
	if _, err := svc.Update(ctx, caller, id, issues.UpdateInput{
		Title:       current.Title,
		Description: current.Description,
		Status:      &closed,
	}); err != nil {
		return err
	}

	ui.Success("Closed issue %s: %s", output.Cyan(fmt.Sprintf("#%d", id)), current.Title)
	return nil
}

func issueAssignRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	caller := getCaller(ctx, dataStore)

	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}

	if issueAssignee == "" && !issueClear {
		return fmt.Errorf("specify --to <email> or --clear")
	}

	in := issues.AssignInput{}
	if issueAssignee != "" {
		user, err := dataStore.GetUserByEmail(ctx, issueAssignee)
		if err != nil {
			return fmt.Errorf("user not found: %s", issueAssignee)
		}
		in.AssigneeID = &user.ID
	}

	if dryRun {
		if issueAssignee != "" {
			ui.DryRunMsg("Would assign issue #%d to %s", id, issueAssignee)
		} else {
			ui.DryRunMsg("Would unassign issue #%d", id)
		}
		return nil
	}

	issue, err := svc.Assign(ctx, caller, id, in)
	if err != nil {
		return err
	}

	if issue.Assignee != nil {
		ui.Success("Assigned issue %s to %s", output.Cyan(fmt.Sprintf("#%d", id)), issue.Assignee.Email)
	} else {
		ui.Success("Unassigned issue %s", output.Cyan(fmt.Sprintf("#%d", id)))
	}
	return nil
}

func issueDeleteRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	caller := getCaller(ctx, dataStore)

	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue #%d", id)
		return nil
	}

	if err := svc.Delete(ctx, caller, id); err != nil {
		return err
	}

	ui.Success("Deleted issue %s", output.Cyan(fmt.Sprintf("#%d", id)))
	return nil
}

func issueStatsRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Status", "Count"})
	_ = table.Append([]string{output.StatusColor("OPEN"), strconv.Itoa(stats.Open)})
	_ = table.Append([]string{output.StatusColor("IN_PROGRESS"), strconv.Itoa(stats.InProgress)})
	_ = table.Append([]string{output.StatusColor("CLOSED"), strconv.Itoa(stats.Closed)})
	_ = table.Append([]string{"Total", strconv.Itoa(stats.Total)})
	_ = table.Render()
	return nil
}

func issueEnrichRun(ref string) error {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return fmt.Errorf("anthropic.api_key is not configured (set ISSUEDESK_ANTHROPIC_API_KEY)")
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	caller := getCaller(ctx, dataStore)

	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}

	issue, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would enrich issue #%d: %s", id, issue.Title)
		return nil
	}

	client := llm.NewClient(apiKey, viper.GetString("anthropic.model"))
	enriched, err := client.EnrichIssue(ctx, issue.Title, issue.Description)
	if err != nil {
		return fmt.Errorf("enrich issue: %w", err)
	}

	status := issue.Status
	if _, err := svc.Update(ctx, caller, id, issues.UpdateInput{
		Title:       issue.Title,
		Description: enriched.Description,
		Status:      &status,
	}); err != nil {
		return err
	}

	ui.Success("Enriched issue %s", output.Cyan(fmt.Sprintf("#%d", id)))
	fmt.Fprintln(ui.Out, enriched.Description)
	return nil
}

// parseIssueID parses a numeric issue reference, accepting a leading '#'.
func parseIssueID(ref string) (int64, error) {
	if len(ref) > 0 && ref[0] == '#' {
		ref = ref[1:]
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id: %s", ref)
	}
	return id, nil
}
