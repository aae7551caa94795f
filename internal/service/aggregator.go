package service

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// rendaPlusSeriesOffset converts a Renda+ maturity year into its nominal series year.
// A "Renda+ 2030" bond matures in 2049: its payouts run for 20 years from 2030.
const rendaPlusSeriesOffset = 19

// zeroQuantity is the threshold under which a summed group quantity counts as exhausted.
const zeroQuantity = 1e-9

// GroupKeyFunc returns the key a lot is aggregated under.
type GroupKeyFunc func(lot model.Lot) string

// GroupByTicker aggregates lots by their raw ticker.
func GroupByTicker(lot model.Lot) string {
	return lot.Ticker
}

// GroupByTreasurySeries aggregates treasury lots by class and series year,
// e.g. "Treasury-IPCA 2035". Renda+ bonds use their nominal series year.
func GroupByTreasurySeries(lot model.Lot) string {
	return seriesOf(lot).key()
}

type treasurySeries struct {
	class        model.AssetClass
	maturityYear int
	seriesYear   int
}

func (ts treasurySeries) key() string {
	if ts.seriesYear == 0 {
		return string(ts.class)
	}
	return fmt.Sprintf("%s %d", ts.class, ts.seriesYear)
}

var yearPattern = regexp.MustCompile(`(?:19|20)\d{2}`)

// seriesOf derives the treasury series of a lot. The maturity year is the last
// four-digit year found in the ticker, then the type, then the category.
func seriesOf(lot model.Lot) treasurySeries {
	ts := treasurySeries{class: lot.Class()}
	for _, source := range []string{lot.Ticker, lot.Type, lot.Category} {
		matches := yearPattern.FindAllString(source, -1)
		if len(matches) == 0 {
			continue
		}
		year, err := strconv.Atoi(matches[len(matches)-1])
		if err == nil {
			ts.maturityYear = year
			break
		}
	}
	ts.seriesYear = ts.maturityYear
	if ts.class == model.ClassTreasuryRenda && ts.maturityYear > 0 {
		ts.seriesYear = ts.maturityYear - rendaPlusSeriesOffset
	}
	return ts
}

// sourceLot returns the lot a history entry was taken from when it is still stored,
// so the entry groups exactly like that lot. Otherwise the entry's own fields stand in.
func sourceLot(h model.HistoryEntry, byID map[model.RecordID]model.Lot) model.Lot {
	if lot, ok := byID[h.LotID]; ok && h.LotID != "" && lot.Ticker == h.Ticker {
		return lot
	}
	return historyAsLot(h)
}

// historyAsLot exposes the identifying fields of a history entry to a GroupKeyFunc.
func historyAsLot(h model.HistoryEntry) model.Lot {
	return model.Lot{
		ID:       h.LotID,
		Ticker:   h.Ticker,
		Type:     h.Type,
		Currency: h.Currency,
		Broker:   h.Broker,
	}
}

type aggregateGroup struct {
	position        model.AggregatedPosition
	tickers         map[string]bool
	historyInvested float64
	historyCount    int
}

func newAggregateGroup(key string, lot model.Lot) *aggregateGroup {
	series := seriesOf(lot)
	position := model.AggregatedPosition{
		Key:      key,
		Tickers:  []string{},
		Class:    lot.Class(),
		Currency: lot.Currency,
		LotIDs:   []model.RecordID{},
	}
	if series.class.IsTreasury() {
		position.MaturityYear = series.maturityYear
		position.SeriesYear = series.seriesYear
	}
	return &aggregateGroup{position: position, tickers: map[string]bool{}}
}

func (g *aggregateGroup) addTicker(ticker string) {
	if !g.tickers[ticker] {
		g.tickers[ticker] = true
		g.position.Tickers = append(g.position.Tickers, ticker)
	}
}

// Aggregate groups lots by keyFn and sums quantity, invested capital
// (quantity * unit cost) and current value (quantity * current price) per group,
// keeping the contributing lot IDs. Groups are returned in first-seen order.
//
// History entries are attributed to groups through the same keyFn, applied to the
// lot they were taken from when it is still stored. Their realized
// value is always summed. When a group's live quantity is zero, its invested
// capital is rebuilt from the history (quantity * cost basis) and its profit is
// realized value minus that capital, so fully exited positions keep a computable
// profit percentage. Tickers that only appear in the history form exhausted groups.
// A zero invested capital yields a profit percentage of 0.
func Aggregate(lots []model.Lot, history []model.HistoryEntry, keyFn GroupKeyFunc) []model.AggregatedPosition {
	groups := map[string]*aggregateGroup{}
	var order []string

	groupFor := func(lot model.Lot) *aggregateGroup {
		key := keyFn(lot)
		g, ok := groups[key]
		if !ok {
			g = newAggregateGroup(key, lot)
			groups[key] = g
			order = append(order, key)
		}
		return g
	}

	byID := make(map[model.RecordID]model.Lot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}

	for _, lot := range lots {
		g := groupFor(lot)
		g.addTicker(lot.Ticker)
		g.position.Quantity += lot.Quantity
		g.position.Invested += lot.Invested()
		g.position.CurrentValue += lot.MarketValue()
		g.position.LotIDs = append(g.position.LotIDs, lot.ID)
	}

	for _, h := range history {
		g := groupFor(sourceLot(h, byID))
		g.addTicker(h.Ticker)
		g.position.RealizedValue += h.RealizedValue.Float64
		g.historyInvested += h.CostBasis()
		g.historyCount++
	}

	positions := make([]model.AggregatedPosition, 0, len(order))
	for _, key := range order {
		positions = append(positions, groups[key].finalize())
	}
	return positions
}

func (g *aggregateGroup) finalize() model.AggregatedPosition {
	p := g.position
	if p.Quantity <= zeroQuantity {
		p.Exhausted = true
		p.CurrentValue = 0
		if g.historyCount > 0 {
			p.Invested = g.historyInvested
			p.Profit = p.RealizedValue - p.Invested
		} else {
			p.Profit = 0
		}
	} else {
		p.Profit = p.CurrentValue - p.Invested
	}
	p.ProfitPercent = round(percent(p.Profit, p.Invested))

	p.Invested = round(p.Invested)
	p.CurrentValue = round(p.CurrentValue)
	p.RealizedValue = round(p.RealizedValue)
	p.Profit = round(p.Profit)
	return p
}

// AggregateTreasury aggregates only treasury lots and history by series, sorted
// ascending by maturity year. Series without a known year come last. Groups with
// the same year keep first-seen order.
func AggregateTreasury(lots []model.Lot, history []model.HistoryEntry) []model.AggregatedPosition {
	var treasuryLots []model.Lot
	for _, lot := range lots {
		if lot.Class().IsTreasury() {
			treasuryLots = append(treasuryLots, lot)
		}
	}
	var treasuryHistory []model.HistoryEntry
	for _, h := range history {
		if model.ClassifyAssetType(h.Type).IsTreasury() {
			treasuryHistory = append(treasuryHistory, h)
		}
	}

	positions := Aggregate(treasuryLots, treasuryHistory, GroupByTreasurySeries)
	slices.SortStableFunc(positions, func(a, b model.AggregatedPosition) int {
		switch {
		case a.MaturityYear == b.MaturityYear:
			return 0
		case a.MaturityYear == 0:
			return 1
		case b.MaturityYear == 0:
			return -1
		}
		return cmp.Compare(a.MaturityYear, b.MaturityYear)
	})
	return positions
}

// RankingValues are the measures a ranking can be ordered by.
var RankingValues = map[string]func(model.AggregatedPosition) float64{
	"realized": func(p model.AggregatedPosition) float64 { return p.RealizedValue },
	"current":  func(p model.AggregatedPosition) float64 { return p.CurrentValue },
	"invested": func(p model.AggregatedPosition) float64 { return p.Invested },
	"profit":   func(p model.AggregatedPosition) float64 { return p.Profit },
}

// Rank returns the n positions with the highest value, in descending order.
// Ties keep their input order. A negative n returns every position.
func Rank(positions []model.AggregatedPosition, n int, value func(model.AggregatedPosition) float64) []model.AggregatedPosition {
	ranked := slices.Clone(positions)
	slices.SortStableFunc(ranked, func(a, b model.AggregatedPosition) int {
		return cmp.Compare(value(b), value(a))
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Positions aggregates the whole ledger by ticker.
func (s *LedgerService) Positions(ctx context.Context) ([]model.AggregatedPosition, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Aggregate(snapshot.Lots, snapshot.History, GroupByTicker), nil
}

// TreasuryPositions aggregates the treasury lots by series, ordered by maturity.
func (s *LedgerService) TreasuryPositions(ctx context.Context) ([]model.AggregatedPosition, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateTreasury(snapshot.Lots, snapshot.History), nil
}

// Ranking returns the top positions by the named measure (see RankingValues).
func (s *LedgerService) Ranking(ctx context.Context, by string, limit int) ([]model.AggregatedPosition, error) {
	value, ok := RankingValues[by]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidRankingMeasure, by)
	}
	positions, err := s.Positions(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(positions, limit, value), nil
}

// Position returns the aggregated position of one ticker with its lots and history.
// Fails with ErrPositionNotFound when the ticker has neither lots nor history.
func (s *LedgerService) Position(ctx context.Context, ticker string) (model.PositionDetail, error) {
	ticker = model.NormalizeTicker(ticker)
	if ticker == "" {
		return model.PositionDetail{}, apperrors.ErrInvalidTicker
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return model.PositionDetail{}, err
	}

	lots := snapshot.LotsFor(ticker)
	history := snapshot.HistoryFor(ticker)
	if len(lots) == 0 && len(history) == 0 {
		return model.PositionDetail{}, fmt.Errorf("%w: %s", apperrors.ErrPositionNotFound, ticker)
	}

	positions := Aggregate(lots, history, GroupByTicker)
	return model.PositionDetail{
		Position: positions[0],
		Lots:     lots,
		History:  history,
	}, nil
}
