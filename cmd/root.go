package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/issues"
	"github.com/issuedesk/issuedesk/internal/output"
	"github.com/issuedesk/issuedesk/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
	asUser  string

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "issuedesk",
	Short: "Issue tracker with ownership-based access control",
	Long: `issuedesk tracks issues for a team: create, update, assign, and
close them from the CLI, over a REST API, or through MCP tools.
Issues are owned by their author; only the author may update or
delete an issue.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().StringVar(&asUser, "as", "", "Act as this user email (overrides identity.email)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/issuedesk/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "issuedesk %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	},
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "issuedesk")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ISSUEDESK")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "issuedesk")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "issuedesk.db"))
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("identity.email", "")
	viper.SetDefault("auth.require_auth_for_create", true)
	viper.SetDefault("auth.owner_restricted_assign", false)
	viper.SetDefault("list.default_limit", issues.DefaultPageSize)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store is initialized lazily so config/version commands run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// policyFromConfig builds the authorization policy from viper settings.
func policyFromConfig() issues.Policy {
	return issues.Policy{
		RequireAuthForCreate:  viper.GetBool("auth.require_auth_for_create"),
		OwnerRestrictedAssign: viper.GetBool("auth.owner_restricted_assign"),
	}
}

// getService returns an issue service bound to the shared store.
func getService() (*issues.Service, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return issues.NewService(s, policyFromConfig()), nil
}

// identityEmail returns the acting identity: --as beats identity.email.
func identityEmail() string {
	if asUser != "" {
		return asUser
	}
	return viper.GetString("identity.email")
}

// getCaller resolves the acting identity against the user store. An
// unknown email yields the anonymous caller; the policy layer decides
// what anonymous callers may do.
func getCaller(ctx context.Context, s store.Store) auth.Caller {
	email := identityEmail()
	c, err := auth.ResolveEmail(ctx, s, email)
	if err != nil {
		ui.Warning("Could not resolve identity %s: %v", email, err)
		return auth.Anonymous
	}
	if email != "" && !c.Authenticated() {
		ui.VerboseLog("identity %s is not a registered user; acting anonymously", email)
	}
	return c
}
