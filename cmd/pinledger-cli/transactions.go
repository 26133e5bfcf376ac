package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinledger/internal/core"
	"pinledger/internal/filtering"
	"pinledger/internal/services"
)

type criteriaFlags struct {
	View     string
	Period   string
	Category string
	Search   string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.View, "view", "v", "personal", "Feed to show: personal, friends or global")
	cmd.Flags().StringVarP(&f.Period, "period", "p", "all", "Period: today, weekly, monthly or all")
	cmd.Flags().StringVarP(&f.Category, "category", "c", "", "Category filter, including Overseas and Online")
	cmd.Flags().StringVarP(&f.Search, "query", "q", "", "Search merchant, memo or category")
}

func (f *criteriaFlags) criteria() (filtering.Criteria, error) {
	view, err := filtering.ParseViewMode(f.View)
	if err != nil {
		return filtering.Criteria{}, err
	}
	period, err := filtering.ParsePeriod(f.Period)
	if err != nil {
		return filtering.Criteria{}, err
	}
	return filtering.Criteria{View: view, Period: period, Category: f.Category, Search: f.Search}, nil
}

func newTransactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and edit transactions",
	}
	cmd.AddCommand(newTxListCmd(a))
	cmd.AddCommand(newTxAddCmd(a))
	cmd.AddCommand(newTxCategoryCmd(a))
	cmd.AddCommand(newTxDeleteCmd(a))
	return cmd
}

func newTxListCmd(a *app) *cobra.Command {
	flags := &criteriaFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions for a view, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			c, err := flags.criteria()
			if err != nil {
				return err
			}
			txs, err := ledger.Transactions(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}
			return renderTransactions(txs, limit)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of transactions to display")
	return cmd
}

func renderTransactions(txs []core.Transaction, limit int) error {
	if len(txs) == 0 {
		pterm.Warning.Println("No transactions found")
		return nil
	}
	shown := txs
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	tableData := pterm.TableData{{"ID", "Date", "Merchant", "Category", "Amount", "Where", "Visibility", "User"}}
	for _, t := range shown {
		where := "online"
		if t.Location != nil {
			where = fmt.Sprintf("%.4f, %.4f", t.Location.Lat, t.Location.Lng)
		}
		if t.CountryCode != "" {
			where += " " + t.CountryCode
		}
		amount := core.FormatDollars(t.Amount.Cents)
		if t.Status == core.StatusPending {
			amount = pterm.Yellow(amount + " (pending)")
		}
		tableData = append(tableData, []string{
			t.ID,
			t.Date.Format("2006-01-02 15:04"),
			t.MerchantName,
			t.Category,
			amount,
			where,
			string(t.Visibility),
			t.User.Name,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
		return err
	}
	pterm.Info.Printf("Showing %d of %d transactions\n", len(shown), len(txs))
	return nil
}

func newTxAddCmd(a *app) *cobra.Command {
	var entry services.ManualEntry
	var amount string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a manual transaction and match it against the offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			cents, err := core.ParseDecimalToCents(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			entry.Amount = core.Money{Cents: cents}
			out, err := ledger.AddManual(cmd.Context(), entry)
			if err != nil {
				return err
			}
			if out == nil {
				pterm.Warning.Println("Nothing recorded: a merchant and a positive amount are required")
				return nil
			}
			pterm.Success.Printf("Recorded %s at %s (%s)\n",
				core.FormatDollars(out.Transaction.Amount.Cents), out.Transaction.MerchantName, out.Transaction.ID)
			switch {
			case out.Match != nil:
				pterm.Info.Printf("Cashback earned: %s from %s\n",
					core.FormatDollars(out.Match.RewardAmount.Cents), out.Match.Offer.MerchantName)
			case out.Queued:
				pterm.Info.Println("Reward matching queued for the worker")
			}
			if out.Alert != nil {
				pterm.Warning.Printf("%s: %s\n", out.Alert.Title, out.Alert.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&entry.MerchantName, "merchant", "m", "", "Merchant name")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount in dollars, e.g. 12.50")
	cmd.Flags().StringVarP(&entry.Category, "category", "c", "", "Category (default Shopping)")
	cmd.Flags().StringVar(&entry.Memo, "memo", "", "Optional memo")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTxCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "category <id> <category>",
		Short: "Change the category of one of your transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			tx, err := ledger.UpdateCategory(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			pterm.Success.Printf("%s is now in %s\n", tx.MerchantName, tx.Category)
			return nil
		},
	}
}

func newTxDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of your transactions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			if !yes {
				ok, err := pterm.DefaultInteractiveConfirm.
					WithDefaultText(fmt.Sprintf("Delete transaction %s?", args[0])).
					Show()
				if err != nil {
					return err
				}
				yes = ok
			}
			if err := ledger.Delete(cmd.Context(), args[0], yes); err != nil {
				return err
			}
			pterm.Success.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
