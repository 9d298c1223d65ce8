// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trading-journal/internal/config"
	"trading-journal/internal/ledger"
	"trading-journal/internal/registry"
	"trading-journal/internal/store"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DocumentStore
	Registry *registry.Registry
	Ledger   *ledger.Ledger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal with linked-account replication",
		Long: `A personal trading journal. Trades logged to a leader account are
replicated to its linked follower accounts; deleting a trade cascades to
its replicas.

Use 'journal help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.shutdown()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newAccountsCmd(app),
		newTradeCmd(app),
		newConfigCmd(app),
		newVersionCmd(),
	)

	return rootCmd
}

// init opens the document store and brings registry and ledger state
// current before any command runs.
func (a *App) init(cmd *cobra.Command) error {
	st, err := store.NewSQLiteStore(a.Config.Journal.DatabasePath)
	if err != nil {
		return err
	}
	a.Store = st
	a.Logger.Debug().Str("path", a.Config.Journal.DatabasePath).Msg("Document store opened")

	ctx := cmd.Context()
	owner := a.Config.Journal.OwnerID

	a.Registry = registry.New(st, owner, a.Logger)
	if err := a.Registry.Start(ctx); err != nil {
		return err
	}
	if err := a.Registry.Refresh(ctx); err != nil {
		return err
	}

	if _, created, err := a.Registry.EnsureBootstrapAccount(ctx, a.Config.Journal.BootstrapAccountName); err != nil {
		return err
	} else if created {
		a.Logger.Info().Msg("Bootstrapped first account")
		if err := a.Registry.Refresh(ctx); err != nil {
			return err
		}
	}

	a.Ledger = ledger.New(st, a.Registry, owner, a.Logger)
	if err := a.Ledger.Start(ctx); err != nil {
		return err
	}
	return a.Ledger.Refresh(ctx)
}

func (a *App) shutdown() {
	if a.Ledger != nil {
		a.Ledger.Stop()
	}
	if a.Registry != nil {
		a.Registry.Stop()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("journal v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Journal")
			output.Printf("  database_path: %s\n", app.Config.Journal.DatabasePath)
			output.Printf("  owner_id: %s\n", app.Config.Journal.OwnerID)
			output.Printf("  cascade_delete: %v\n", app.Config.Journal.CascadeDelete)
			output.Bold("Subscription")
			output.Printf("  tier: %s\n", app.Config.Subscription.Tier)
			output.Bold("Logging")
			output.Printf("  level: %s\n", app.Config.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			output.Println(config.DefaultConfigDir())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}
