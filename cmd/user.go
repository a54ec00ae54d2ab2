package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/issuedesk/issuedesk/internal/models"
	"github.com/issuedesk/issuedesk/internal/output"
)

var (
	userEmail string
	userName  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  "Register and list the users who can author and be assigned issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun()
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "User email (required, unique)")
	userAddCmd.Flags().StringVar(&userName, "name", "", "Display name")
	_ = userAddCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}

func userAddRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add user: %s", userEmail)
		return nil
	}

	user := &models.User{Email: userEmail, Name: userName}
	if err := s.CreateUser(context.Background(), user); err != nil {
		return err
	}

	ui.Success("Registered user %s <%s>", user.Name, output.Cyan(user.Email))
	return nil
}

func userListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	users, err := s.ListUsers(context.Background())
	if err != nil {
		return err
	}

	if len(users) == 0 {
		ui.Info("No users registered.")
		return nil
	}

	table := ui.Table([]string{"Email", "Name", "Registered"})
	for _, u := range users {
		_ = table.Append([]string{u.Email, u.Name, u.CreatedAt.Format(time.DateOnly)})
	}
	_ = table.Render()
	return nil
}
