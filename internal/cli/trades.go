package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/retention"
	"trading-journal/internal/selection"
	"trading-journal/pkg/utils"
)

func newTradeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade journal management",
		Long:  "Log, list, review, and delete trades. Trades on a leader account replicate to its followers.",
	}

	cmd.AddCommand(
		newTradeLogCmd(app),
		newTradeListCmd(app),
		newTradeDeleteCmd(app),
		newTradeReviewCmd(app),
	)

	return cmd
}

func newTradeLogCmd(app *App) *cobra.Command {
	var (
		accountID  string
		direction  string
		entryPrice float64
		exitPrice  float64
		quantity   float64
		entryAt    string
		mood       string
		notes      string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "log SYMBOL",
		Short: "Log a trade",
		Long: `Records a trade against an account. When the account leads a replication
group the trade is copied to every follower; copy failures are reported
but never block the primary record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if accountID == "" {
				accountID = app.Registry.DefaultSelectionID()
			}
			if accountID == "" {
				return fmt.Errorf("no account available; create one with 'journal accounts add'")
			}

			entryTime := time.Now().UTC()
			if entryAt != "" {
				parsed, err := time.Parse(time.RFC3339, entryAt)
				if err != nil {
					return fmt.Errorf("parsing --entry-at: %w", err)
				}
				entryTime = parsed
			}

			trade, err := app.Ledger.AddTrade(cmd.Context(), models.Trade{
				AccountID:  accountID,
				Symbol:     strings.ToUpper(args[0]),
				Direction:  models.TradeDirection(direction),
				EntryPrice: entryPrice,
				ExitPrice:  exitPrice,
				Quantity:   quantity,
				EntryTime:  entryTime,
				Mood:       models.Mood(mood),
				Notes:      notes,
				Tags:       tags,
			})
			if err != nil {
				return err
			}
			logging.LogTradeLogged(app.Logger, trade.ID, trade.AccountID, trade.Symbol, trade.PnL)

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Logged %s %s (%s)", trade.Direction, trade.Symbol, trade.ID)
			if trade.ExitPrice != 0 {
				output.Printf("P&L: %s\n", output.ColoredString(output.PnLColor(trade.PnL), utils.FormatPnL(trade.PnL)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&accountID, "account", "a", "", "Account id (defaults to the preferred account)")
	cmd.Flags().StringVarP(&direction, "direction", "d", string(models.DirectionLong), "Trade direction (long, short)")
	cmd.Flags().Float64Var(&entryPrice, "entry", 0, "Entry price")
	cmd.Flags().Float64Var(&exitPrice, "exit", 0, "Exit price (0 leaves the trade open)")
	cmd.Flags().Float64VarP(&quantity, "qty", "q", 1, "Quantity")
	cmd.Flags().StringVar(&entryAt, "entry-at", "", "Entry time, RFC 3339 (defaults to now)")
	cmd.Flags().StringVar(&mood, "mood", "", "Mood (confident, neutral, anxious, frustrated, excited)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags")
	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	var (
		rawSelection string
		symbol       string
		openOnly     bool
		closedOnly   bool
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		Long: `Lists trades, narrowed to the subscription tier's retention window.
The --select flag takes an account id, "all", or "group:<leaderID>";
empty selects all active accounts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			desc := selection.ParseDescriptor(rawSelection)
			accountIDs := selection.Resolve(desc, app.Registry.Snapshot(), false)
			inSelection := make(map[string]bool, len(accountIDs))
			for _, id := range accountIDs {
				inSelection[id] = true
			}

			tier := app.Config.Tier()
			trades := app.Ledger.FilteredByTier(tier)

			var rows []models.Trade
			for _, trade := range trades {
				if !inSelection[trade.AccountID] {
					continue
				}
				if symbol != "" && !strings.EqualFold(trade.Symbol, symbol) {
					continue
				}
				if openOnly && !trade.IsOpen() {
					continue
				}
				if closedOnly && trade.IsOpen() {
					continue
				}
				rows = append(rows, trade)
				if limit > 0 && len(rows) >= limit {
					break
				}
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			if len(rows) == 0 {
				output.Info("No trades match.")
				return nil
			}

			snap := app.Registry.Snapshot()
			table := NewTable(output, "ID", "Time", "Account", "Symbol", "Dir", "Qty", "Entry", "Exit", "P&L")
			var totalPnL float64
			for _, trade := range rows {
				accountName := trade.AccountID
				if acct, ok := snap.Get(trade.AccountID); ok {
					accountName = utils.Truncate(acct.Name, 18)
				}

				exit := "-"
				pnl := ""
				if !trade.IsOpen() {
					exit = fmt.Sprintf("%.2f", trade.ExitPrice)
					pnl = output.ColoredString(output.PnLColor(trade.PnL), utils.FormatPnL(trade.PnL))
					totalPnL += trade.PnL
				}

				table.AddRow(
					trade.ID,
					utils.FormatTime(trade.EffectiveTime(), app.Config.UI.DateFormat+" "+app.Config.UI.TimeFormat),
					accountName,
					trade.Symbol,
					string(trade.Direction),
					fmt.Sprintf("%g", trade.Quantity),
					fmt.Sprintf("%.2f", trade.EntryPrice),
					exit,
					pnl,
				)
			}
			table.Render()

			output.Println()
			output.Printf("Total P&L: %s\n", output.ColoredString(output.PnLColor(totalPnL), utils.FormatPnL(totalPnL)))
			if msg := retention.Message(tier); msg != "" {
				output.Dim(msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rawSelection, "select", "s", "", `Account selection: id, "all", or "group:<leaderID>"`)
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only trades on this symbol")
	cmd.Flags().BoolVar(&openOnly, "open", false, "Only open trades")
	cmd.Flags().BoolVar(&closedOnly, "closed", false, "Only closed trades")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows (0 = all)")
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	var noCascade bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a trade and its replicas",
		Long: `Deletes the trade. Unless --no-cascade is set, likely replicas in linked
accounts (same symbol, entry within a minute) are deleted too, on a
best-effort basis.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			cascade := app.Config.Journal.CascadeDelete && !noCascade
			if err := app.Ledger.DeleteTrade(cmd.Context(), args[0], cascade); err != nil {
				return err
			}

			output.Success("Deleted trade %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCascade, "no-cascade", false, "Delete only this record, leaving replicas")
	return cmd
}

func newTradeReviewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "review ID",
		Short: "Toggle a trade's review flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			marked, err := app.Ledger.ToggleMarkForReview(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if marked {
				output.Success("Trade %s marked for review", args[0])
			} else {
				output.Info("Trade %s unmarked", args[0])
			}
			return nil
		},
	}
}
