// Package cli implements the ledgerctl subcommands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/ndewijer/Position-Ledger-Backend/internal/config"
	"github.com/ndewijer/Position-Ledger-Backend/internal/database"
	"github.com/ndewijer/Position-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
	"github.com/ndewijer/Position-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
)

// Commands lists every ledgerctl subcommand.
var Commands = []subcommands.Command{
	&positionsCmd{},
	&treasuryCmd{},
	&historyCmd{},
	&liquidateCmd{},
	&reverseCmd{},
	&healCmd{},
}

// Standard streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
)

// OpenLedger opens the configured ledger with the given hooks. The returned
// function releases the database.
var OpenLedger = func(hooks service.Hooks) (*service.LedgerService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "warning:", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	codec, err := repository.NewCodec(cfg.Database.EncryptionKey)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	ledger := service.NewLedgerService(
		repository.NewLedgerRepository(db, codec),
		logger.Discard(),
		service.WithEpsilon(cfg.Ledger.Epsilon),
		service.WithHooks(hooks),
	)
	return ledger, func() { db.Close() }, nil
}

// withLedger opens the ledger, runs fn and maps its error to an exit status.
func withLedger(ctx context.Context, hooks service.Hooks, fn func(context.Context, *service.LedgerService) error) subcommands.ExitStatus {
	ledger, closeFn, err := OpenLedger(hooks)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	if err := fn(ctx, ledger); err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// changedNotice is the OnLedgerChanged hook of mutating commands.
func changedNotice() {
	fmt.Fprintln(stdout, "ledger updated")
}

// confirmOnStdin asks the user to confirm a reversal.
func confirmOnStdin(entry model.HistoryEntry) bool {
	fmt.Fprintf(stdout, "Reverse sale of %g %s at %.2f on %s? [y/N] ",
		entry.Quantity, entry.Ticker, entry.SalePrice, entry.LiquidationDate)

	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func printPositions(positions []model.AggregatedPosition) {
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Key\tClass\tQuantity\tInvested\tCurrent\tRealized\tProfit\tProfit %\t")
	for _, p := range positions {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			p.Key, p.Class, p.Quantity, p.Invested, p.CurrentValue, p.RealizedValue, p.Profit, p.ProfitPercent)
	}
	tw.Flush()
}

func printHistory(history []model.HistoryEntry) {
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDate\tTicker\tQuantity\tSale price\tCost basis\tRealized\t")
	for _, h := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%.2f\t%.2f\t%.2f\t\n",
			h.ID, h.LiquidationDate, h.Ticker, h.Quantity, h.SalePrice, h.CostBasisPrice, h.RealizedValue.Float64)
	}
	tw.Flush()
}
