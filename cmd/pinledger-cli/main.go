package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pinledger/internal/backend"
	"pinledger/internal/cli"
	"pinledger/internal/services"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	ledger  *services.LedgerService
	cleanup func()
}

func main() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "pinledger-cli",
		Short:         "Inspect and edit the pinledger store from the terminal",
		Long:          "pinledger-cli reads the same configuration as the server. Point DATA_BACKEND=sqlite at the server's database to work on live data.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.AddCommand(newTransactionsCmd(a))
	rootCmd.AddCommand(newMapCmd(a))
	rootCmd.AddCommand(newOffersCmd(a))
	rootCmd.AddCommand(newReportCmd(a))
	rootCmd.AddCommand(newLedgerCmd(a))
	rootCmd.AddCommand(newBudgetCmd(a))
	rootCmd.AddCommand(newNotificationsCmd(a))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		a.close()
		pterm.Error.Println(capitalize(err.Error()))
		os.Exit(1)
	}
}

func (a *app) open(ctx context.Context) error {
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(os.Stderr)

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if backendCfg.Type == backend.MemoryBackend {
		pterm.Warning.Println("Using the in-memory backend: changes are lost when the command exits")
	}

	ledger, err := cli.NewLedger(ctx, logger, cfg, cli.LedgerDeps{
		Store:  res.Store,
		Offers: res.Dataset.Offers,
	})
	if err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return err
	}
	if _, err := ledger.RefreshOffers(ctx); err != nil {
		pterm.Warning.Printf("Could not load offers: %v\n", err)
	}

	a.ledger = ledger
	a.cleanup = func() {
		ledger.Close()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				pterm.Warning.Printf("Closing store: %v\n", err)
			}
		}
	}
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func (a *app) require() (*services.LedgerService, error) {
	if a.ledger == nil {
		return nil, errors.New("ledger is not initialized")
	}
	return a.ledger, nil
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
