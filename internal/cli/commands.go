package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
)

type positionsCmd struct {
	rank  string
	limit int
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "list positions aggregated by ticker" }
func (*positionsCmd) Usage() string {
	return `ledgerctl positions [-rank <measure>] [-n <limit>]

  Lists every position, including fully sold ones. With -rank, only the top
  positions by realized, current, invested or profit are shown.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rank, "rank", "", "Rank by measure (realized, current, invested, profit).")
	f.IntVar(&c.limit, "n", 10, "Number of positions shown when ranking.")
}

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, service.Hooks{}, func(ctx context.Context, ledger *service.LedgerService) error {
		var (
			positions []model.AggregatedPosition
			err       error
		)
		if c.rank != "" {
			positions, err = ledger.Ranking(ctx, c.rank, c.limit)
		} else {
			positions, err = ledger.Positions(ctx)
		}
		if err != nil {
			return err
		}
		printPositions(positions)
		return nil
	})
}

type treasuryCmd struct{}

func (*treasuryCmd) Name() string     { return "treasury" }
func (*treasuryCmd) Synopsis() string { return "list treasury bonds grouped by series" }
func (*treasuryCmd) Usage() string {
	return `ledgerctl treasury

  Lists treasury bond positions grouped by series, ordered by maturity.
`
}

func (*treasuryCmd) SetFlags(*flag.FlagSet) {}

func (*treasuryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, service.Hooks{}, func(ctx context.Context, ledger *service.LedgerService) error {
		positions, err := ledger.TreasuryPositions(ctx)
		if err != nil {
			return err
		}
		printPositions(positions)
		return nil
	})
}

type historyCmd struct {
	ticker string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list liquidation history" }
func (*historyCmd) Usage() string {
	return `ledgerctl history [-ticker <ticker>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "Only show entries of this ticker.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, service.Hooks{}, func(ctx context.Context, ledger *service.LedgerService) error {
		history, err := ledger.History(ctx, c.ticker)
		if err != nil {
			return err
		}
		printHistory(history)
		return nil
	})
}

type liquidateCmd struct {
	ticker   string
	quantity float64
	price    float64
	costs    float64
	date     string
}

func (*liquidateCmd) Name() string     { return "liquidate" }
func (*liquidateCmd) Synopsis() string { return "sell a position, oldest lots first" }
func (*liquidateCmd) Usage() string {
	return `ledgerctl liquidate -ticker <ticker> -qty <quantity> -price <price> [-costs <costs>] [-date <YYYY-MM-DD>]

  Sells the given quantity, consuming the oldest lots first, and records one
  history entry per lot consumed. Costs are split across lots by quantity.
`
}

func (c *liquidateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "Ticker to sell.")
	f.Float64Var(&c.quantity, "qty", 0, "Quantity to sell.")
	f.Float64Var(&c.price, "price", 0, "Unit sale price.")
	f.Float64Var(&c.costs, "costs", 0, "Total costs of the sale.")
	f.StringVar(&c.date, "date", "", "Sale date (defaults to today).")
}

func (c *liquidateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	order := service.LiquidationOrder{
		Ticker:     c.ticker,
		Quantity:   c.quantity,
		SalePrice:  c.price,
		TotalCosts: c.costs,
	}
	if c.date != "" {
		date, err := model.ParseDate(c.date)
		if err != nil {
			fmt.Fprintf(stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		order.Date = date
	}

	hooks := service.Hooks{OnLedgerChanged: changedNotice}
	return withLedger(ctx, hooks, func(ctx context.Context, ledger *service.LedgerService) error {
		entries, err := ledger.Liquidate(ctx, order)
		if err != nil {
			return err
		}
		printHistory(entries)
		return nil
	})
}

type reverseCmd struct {
	id  string
	yes bool
}

func (*reverseCmd) Name() string     { return "reverse" }
func (*reverseCmd) Synopsis() string { return "undo a liquidation history entry" }
func (*reverseCmd) Usage() string {
	return `ledgerctl reverse -id <history id> [-yes]

  Gives the entry's quantity back to the lot it was taken from and removes
  the entry. Asks for confirmation unless -yes is given.
`
}

func (c *reverseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "History entry id.")
	f.BoolVar(&c.yes, "yes", false, "Do not ask for confirmation.")
}

func (c *reverseCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(stderr, "-id is required")
		return subcommands.ExitUsageError
	}

	hooks := service.Hooks{OnLedgerChanged: changedNotice}
	if !c.yes {
		hooks.ConfirmReversal = confirmOnStdin
	}

	return withLedger(ctx, hooks, func(ctx context.Context, ledger *service.LedgerService) error {
		lot, err := ledger.ReverseHistoryEntry(ctx, model.RecordID(c.id))
		if errors.Is(err, apperrors.ErrReversalCancelled) {
			fmt.Fprintln(stdout, "cancelled")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "lot %s of %s now holds %g\n", lot.ID, lot.Ticker, lot.Quantity)
		return nil
	})
}

type healCmd struct{}

func (*healCmd) Name() string     { return "heal" }
func (*healCmd) Synopsis() string { return "repair malformed history entries" }
func (*healCmd) Usage() string {
	return `ledgerctl heal

  Sets missing or non-numeric realized values to 0 and persists the result.
`
}

func (*healCmd) SetFlags(*flag.FlagSet) {}

func (*healCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, service.Hooks{}, func(ctx context.Context, ledger *service.LedgerService) error {
		report, err := ledger.HealStore(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "scanned %d, repaired %d\n", report.Scanned, report.Repaired)
		return nil
	})
}
