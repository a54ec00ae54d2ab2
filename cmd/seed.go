package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/issuedesk/issuedesk/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users and issues",
	Long:  "Load a small set of demo users and issues into the database, useful for trying out the CLI and API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return seedRun()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seedRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would load demo users and issues")
		return nil
	}

	res, err := seed.Load(context.Background(), s)
	if err != nil {
		return err
	}

	ui.Success("Seeded %d users and %d issues", res.UsersCreated, res.IssuesCreated)
	return nil
}
