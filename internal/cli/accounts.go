package cli

import (
	"github.com/spf13/cobra"

	"trading-journal/internal/models"
	"trading-journal/internal/registry"
	"trading-journal/pkg/utils"
)

func newAccountsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Trading account management",
		Long:  "List, create, archive, link, and duplicate trading accounts.",
	}

	cmd.AddCommand(
		newAccountsListCmd(app),
		newAccountsAddCmd(app),
		newAccountsArchiveCmd(app),
		newAccountsRestoreCmd(app),
		newAccountsRemoveCmd(app),
		newAccountsDuplicateCmd(app),
		newAccountsLinkCmd(app),
		newAccountsUnlinkCmd(app),
	)

	return cmd
}

func newAccountsListCmd(app *App) *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Long:  "Display accounts in creation order, leaders marked with their follower counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			snap := app.Registry.Snapshot()

			var accounts []models.TradingAccount
			for _, acct := range snap.Accounts() {
				if acct.EffectiveStatus() == models.AccountArchived && !includeArchived {
					continue
				}
				accounts = append(accounts, acct)
			}

			if output.IsJSON() {
				return output.JSON(accounts)
			}

			if len(accounts) == 0 {
				output.Info("No accounts. Create one with 'journal accounts add'.")
				return nil
			}

			defaultID := registry.DefaultSelectionID(snap)

			table := NewTable(output, "ID", "Name", "Type", "Status", "Balance", "Broker", "Links")
			for _, acct := range accounts {
				links := ""
				if acct.IsLeader() {
					links = output.ColoredString(ColorCyan, "leader")
				} else if leader, ok := snap.LeaderOf(acct.ID); ok {
					links = "follows " + utils.Truncate(leader.Name, 16)
				}

				name := acct.Name
				if acct.ID == defaultID {
					name = output.ColoredString(ColorBold, name+" *")
				}

				table.AddRow(
					acct.ID,
					name,
					string(acct.Type),
					string(acct.EffectiveStatus()),
					utils.FormatMoney(acct.Balance, acct.Currency),
					acct.Broker,
					links,
				)
			}
			table.Render()
			output.Dim("* default selection")
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeArchived, "all", false, "Include archived accounts")
	return cmd
}

func newAccountsAddCmd(app *App) *cobra.Command {
	var (
		accountType string
		balance     float64
		currency    string
		broker      string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			created, err := app.Registry.AddAccount(cmd.Context(), models.TradingAccount{
				Name:     args[0],
				Type:     models.AccountType(accountType),
				Balance:  balance,
				Currency: currency,
				Broker:   broker,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(created)
			}
			output.Success("Created account %s (%s)", created.Name, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "type", string(models.AccountDemo), "Account type (live, demo, paper, prop)")
	cmd.Flags().Float64Var(&balance, "balance", 0, "Starting balance")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Account currency")
	cmd.Flags().StringVar(&broker, "broker", "", "Broker name")
	return cmd
}

func newAccountsArchiveCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "archive ID",
		Short: "Archive an account",
		Long:  "Archived accounts drop out of aggregate views but stay individually viewable.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			status := models.AccountArchived
			patch := registry.AccountPatch{Status: &status}
			if reason != "" {
				patch.ArchivedReason = &reason
			}
			if err := app.Registry.UpdateAccount(cmd.Context(), args[0], patch); err != nil {
				return err
			}

			output.Success("Archived account %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the account is being archived")
	return cmd
}

func newAccountsRestoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID",
		Short: "Restore an archived account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			status := models.AccountActive
			if err := app.Registry.UpdateAccount(cmd.Context(), args[0], registry.AccountPatch{Status: &status}); err != nil {
				return err
			}

			output.Success("Restored account %s", args[0])
			return nil
		},
	}
}

func newAccountsRemoveCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete an account permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if !force {
				output.Warning("This permanently deletes the account. Re-run with --force to confirm.")
				return nil
			}
			if err := app.Registry.RemoveAccount(cmd.Context(), args[0]); err != nil {
				return err
			}

			output.Success("Removed account %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation guard")
	return cmd
}

func newAccountsDuplicateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate ID",
		Short: "Clone an account under a numbered name",
		Long:  "Copies the account's settings into a fresh active account; links and history are not carried over.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			clone, err := app.Registry.DuplicateAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(clone)
			}
			output.Success("Created %s (%s)", clone.Name, clone.ID)
			return nil
		},
	}
}

func newAccountsLinkCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "link LEADER_ID FOLLOWER_ID...",
		Short: "Link follower accounts to a leader",
		Long: `Makes LEADER_ID the leader of the given followers. New trades logged to
the leader are replicated to each follower. Only one account may hold
followers at a time; linking moves leadership if another account held it.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			followers := args[1:]
			if err := app.Registry.UpdateAccount(cmd.Context(), args[0], registry.AccountPatch{
				LinkedAccountIDs: &followers,
			}); err != nil {
				return err
			}

			snap := app.Registry.Snapshot()
			leader, _ := snap.Get(args[0])
			output.Success("%s now leads %d follower(s)", leader.Name, len(leader.LinkedAccountIDs))
			return nil
		},
	}
}

func newAccountsUnlinkCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink LEADER_ID",
		Short: "Remove all followers from a leader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var none []string
			if err := app.Registry.UpdateAccount(cmd.Context(), args[0], registry.AccountPatch{
				LinkedAccountIDs: &none,
			}); err != nil {
				return err
			}

			output.Success("Unlinked all followers from %s", args[0])
			return nil
		},
	}
}
