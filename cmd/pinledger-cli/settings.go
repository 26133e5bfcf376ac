package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinledger/internal/core"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show or change the spending budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			cfg, err := ledger.Budget(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Amount.Cents == 0 {
				pterm.Info.Println("No budget set")
				return nil
			}
			line := fmt.Sprintf("%s per %s", core.FormatDollars(cfg.Amount.Cents), cfg.Period.Display())
			if cfg.Period == core.PeriodCustom {
				line += fmt.Sprintf(" (%s to %s)", cfg.CustomStart, cfg.CustomEnd)
			}
			pterm.Info.Println(line)
			return nil
		},
	}
	cmd.AddCommand(newBudgetSetCmd(a))
	return cmd
}

func newBudgetSetCmd(a *app) *cobra.Command {
	var amount, period string
	var cfg core.BudgetConfig

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the budget amount and period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			cents, err := core.ParseDecimalToCents(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			cfg.Amount = core.Money{Cents: cents}
			cfg.Period = core.BudgetPeriod(strings.ToLower(period))
			alert, err := ledger.SetBudget(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Budget set to %s per %s\n", core.FormatDollars(cents), cfg.Period.Display())
			if alert != nil {
				pterm.Warning.Printf("%s: %s\n", alert.Title, alert.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Budget amount in dollars")
	cmd.Flags().StringVarP(&period, "period", "p", string(core.PeriodMonthly), "weekly, monthly, yearly or custom")
	cmd.Flags().StringVar(&cfg.CustomStart, "start", "", "Custom period start, YYYY-MM-DD")
	cmd.Flags().StringVar(&cfg.CustomEnd, "end", "", "Custom period end, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newNotificationsCmd(a *app) *cobra.Command {
	var markAll bool

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if markAll {
				if err := ledger.MarkAllRead(ctx); err != nil {
					return err
				}
				pterm.Success.Println("All notifications marked as read")
				return nil
			}
			inbox, err := ledger.Notifications(ctx)
			if err != nil {
				return err
			}
			if len(inbox.Items) == 0 {
				pterm.Info.Println("Inbox is empty")
				return nil
			}
			tableData := pterm.TableData{{"", "Type", "Title", "Message", "When"}}
			for _, n := range inbox.Items {
				mark := " "
				title := n.Title
				if !n.IsRead {
					mark = pterm.Red("●")
					title = pterm.Bold.Sprint(title)
				}
				tableData = append(tableData, []string{mark, n.Type.Icon(), title, n.Message, n.TimeAgo})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
				return err
			}
			pterm.Info.Printf("%d unread\n", inbox.Unread)
			return nil
		},
	}
	cmd.Flags().BoolVar(&markAll, "read-all", false, "Mark every notification as read")
	return cmd
}
