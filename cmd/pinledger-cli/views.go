package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinledger/internal/core"
	"pinledger/internal/report"
	"pinledger/internal/services"
)

func newMapCmd(a *app) *cobra.Command {
	flags := &criteriaFlags{}
	var selected string

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print the marker groups the map would draw",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			c, err := flags.criteria()
			if err != nil {
				return err
			}
			m, err := ledger.Map(cmd.Context(), services.MapQuery{Criteria: c, SelectedID: selected})
			if err != nil {
				return err
			}

			if len(m.Groups) == 0 {
				pterm.Warning.Println("No markers for this view")
			} else {
				pterm.DefaultSection.Printf("%d marker groups", len(m.Groups))
				tableData := pterm.TableData{{"Position", "Title", "Visits", "State", "Tag", "Representative"}}
				for _, g := range m.Groups {
					pos := fmt.Sprintf("%.5f, %.5f", g.Position.Lat, g.Position.Lng)
					if g.IsHub {
						pos = "online hub"
					}
					state := string(g.State)
					if g.Selected {
						state = pterm.Cyan(state + " *")
					} else if g.Matched {
						state = pterm.Green(state)
					}
					tableData = append(tableData, []string{
						pos, g.Title, strconv.Itoa(g.Count), state, g.Tag,
						g.Representative.MerchantName + " " + core.FormatDollars(g.Representative.Amount.Cents),
					})
				}
				if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
					return err
				}
			}

			if len(m.OfferMarkers) > 0 {
				pterm.DefaultSection.Printf("%d standalone offers", len(m.OfferMarkers))
				tableData := pterm.TableData{{"Merchant", "Position", "Cashback"}}
				for _, o := range m.OfferMarkers {
					tableData = append(tableData, []string{
						o.Offer.MerchantName,
						fmt.Sprintf("%.5f, %.5f", o.Position.Lat, o.Position.Lng),
						o.Caption,
					})
				}
				if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
					return err
				}
			}
			if m.Camera != nil {
				pterm.Info.Printf("Camera: %.4f, %.4f zoom %d\n", m.Camera.Center.Lat, m.Camera.Center.Lng, m.Camera.Zoom)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&selected, "selected", "s", "", "Transaction ID to mark as selected")
	return cmd
}

func newOffersCmd(a *app) *cobra.Command {
	flags := &criteriaFlags{}

	cmd := &cobra.Command{
		Use:   "offers",
		Short: "List active cashback offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			c, err := flags.criteria()
			if err != nil {
				return err
			}
			offers := ledger.Offers(c)
			if len(offers) == 0 {
				pterm.Warning.Println("No offers found")
				return nil
			}
			tableData := pterm.TableData{{"ID", "Merchant", "Category", "Cashback", "Where", "Description"}}
			for _, o := range offers {
				where := "online"
				if o.Location != nil {
					where = fmt.Sprintf("%.4f, %.4f", o.Location.Lat, o.Location.Lng)
				}
				tableData = append(tableData, []string{
					o.ID, o.MerchantName, o.Category,
					pterm.Green(fmt.Sprintf("%.0f%%", o.CashbackRate*100)),
					where, o.Description,
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
		},
	}
	flags.register(cmd)
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var month, start, end string
	var day int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize your spending for a month or a date range",
		Long: `Summarize your spending against the budget.

Without flags the report covers the budget period. Use --month YYYY-MM for a
calendar month or --start/--end YYYY-MM-DD for a range.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			loc := ledger.Now().Location()

			var win report.Window
			switch {
			case month != "":
				t, err := time.ParseInLocation("2006-01", month, loc)
				if err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", month)
				}
				win = ledger.MonthWindow(t.Year(), t.Month())
			case start != "" || end != "":
				s, err := time.ParseInLocation(core.DateLayout, start, loc)
				if err != nil {
					return fmt.Errorf("invalid start %q, want YYYY-MM-DD", start)
				}
				e, err := time.ParseInLocation(core.DateLayout, end, loc)
				if err != nil {
					return fmt.Errorf("invalid end %q, want YYYY-MM-DD", end)
				}
				if e.Before(s) {
					return fmt.Errorf("end %s is before start %s", end, start)
				}
				win = ledger.RangeWindow(s, e)
			default:
				if win, err = ledger.DefaultReportWindow(ctx); err != nil {
					return err
				}
			}

			rep, err := ledger.Report(ctx, win)
			if err != nil {
				return err
			}
			return renderReport(rep, day)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Calendar month, YYYY-MM")
	cmd.Flags().StringVar(&start, "start", "", "Range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Range end, YYYY-MM-DD")
	cmd.Flags().IntVarP(&day, "day", "d", 0, "Drill into one day of a month report")
	cmd.MarkFlagsMutuallyExclusive("month", "start")
	cmd.MarkFlagsRequiredTogether("start", "end")
	return cmd
}

func renderReport(rep core.Report, day int) error {
	pterm.DefaultSection.Printf("Spending %s to %s", rep.Start.Format(core.DateLayout), rep.End.Format(core.DateLayout))
	pterm.Info.Printf("Total: %s across %d transactions\n", core.FormatDollars(rep.Total.Cents), len(rep.Transactions))

	if rep.Budget.Spent.Cents > 0 || rep.Budget.Remaining.Cents != 0 {
		progress := fmt.Sprintf("%.0f%% of budget used, %s remaining", rep.Budget.Progress, core.FormatDollars(rep.Budget.Remaining.Cents))
		if rep.Budget.IsOver {
			pterm.Warning.Println(progress)
		} else {
			pterm.Info.Println(progress)
		}
	}

	if len(rep.ByCategory) > 0 {
		bars := make(pterm.Bars, 0, len(rep.ByCategory))
		tableData := pterm.TableData{{"Category", "Amount"}}
		for _, c := range rep.ByCategory {
			tableData = append(tableData, []string{c.Name, core.FormatDollars(c.Amount.Cents)})
			bars = append(bars, pterm.Bar{Label: c.Name, Value: int(c.Amount.Cents / 100)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
			return err
		}
		if err := pterm.DefaultBarChart.WithHorizontal().WithBars(bars).WithShowValue().Render(); err != nil {
			return err
		}
	}

	if rep.Monthly && len(rep.DailySpend) > 0 {
		days := make([]int, 0, len(rep.DailySpend))
		for d := range rep.DailySpend {
			days = append(days, d)
		}
		sort.Ints(days)
		tableData := pterm.TableData{{"Day", "Spent"}}
		for _, d := range days {
			tableData = append(tableData, []string{strconv.Itoa(d), core.FormatDollars(rep.DailySpend[d].Cents)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
			return err
		}
	}

	if day > 0 {
		pterm.DefaultSection.Printf("Day %d", day)
		return renderTransactions(report.Day(rep, day), 0)
	}
	return nil
}

func newLedgerCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print a month of your transactions grouped by day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.require()
			if err != nil {
				return err
			}
			now := ledger.Now()
			year, mon := now.Year(), now.Month()
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", month)
				}
				year, mon = t.Year(), t.Month()
			}
			l, err := ledger.Ledger(cmd.Context(), year, mon)
			if err != nil {
				return err
			}
			if len(l.Days) == 0 {
				pterm.Warning.Printf("No transactions in %d-%02d\n", l.Year, l.Month)
				return nil
			}
			pterm.DefaultSection.Printf("%d-%02d: %s", l.Year, l.Month, core.FormatDollars(l.Total.Cents))
			for _, d := range l.Days {
				pterm.DefaultBasicText.Println(pterm.Bold.Sprintf("%s  %s", d.Label, core.FormatDollars(d.Total.Cents)))
				items := make([]pterm.BulletListItem, 0, len(d.Transactions))
				for _, t := range d.Transactions {
					items = append(items, pterm.BulletListItem{
						Level: 1,
						Text:  fmt.Sprintf("%s  %s  %s", t.Date.Format("15:04"), t.MerchantName, core.FormatDollars(t.Amount.Cents)),
					})
				}
				if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Calendar month, YYYY-MM (default current)")
	return cmd
}
