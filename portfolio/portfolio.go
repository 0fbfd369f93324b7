// Package portfolio tracks per-user positions, cash and profit and
// loss derived from executed trades.
package portfolio

import (
	"github.com/shopspring/decimal"
)

// Position is the net holding of a single instrument.
type Position struct {
	// NetShares is positive for a long position, negative for a short.
	NetShares int64

	// AvgCost is the weighted average entry price of the open
	// position. Zero when the position is flat.
	AvgCost decimal.Decimal
}

// Portfolio accumulates fills into cash balance, realized profit and
// per-instrument positions.
//
// NOTE: Not thread-safe.
type Portfolio struct {
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[string]*Position
}

// New creates a portfolio holding the given initial cash.
func New(initialCash decimal.Decimal) *Portfolio {
	return &Portfolio{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// RealizedPnL returns the profit realized by closed positions.
func (p *Portfolio) RealizedPnL() decimal.Decimal {
	return p.realized
}

// Position returns the current position in the given instrument.
func (p *Portfolio) Position(ticker string) Position {
	if pos, ok := p.positions[ticker]; ok {
		return *pos
	}
	return Position{}
}

// Apply books a fill of the given volume at the given price. Positive
// volume is a buy, negative volume is a sell. Cash always moves by
// volume*price; position and realized profit follow the direction of
// the fill relative to the open position.
func (p *Portfolio) Apply(ticker string, volume int64, price decimal.Decimal) {
	vol := decimal.NewFromInt(volume)
	p.cash = p.cash.Sub(price.Mul(vol))

	pos, ok := p.positions[ticker]
	if !ok {
		pos = &Position{}
		p.positions[ticker] = pos
	}
	oldShares := pos.NetShares
	oldAvg := pos.AvgCost

	if oldShares == 0 {
		pos.NetShares = volume
		pos.AvgCost = price
		return
	}

	sameDirection := (oldShares > 0) == (volume > 0)
	if sameDirection {
		newShares := oldShares + volume
		oldCost := oldAvg.Mul(decimal.NewFromInt(abs(oldShares)))
		tradeCost := price.Mul(decimal.NewFromInt(abs(volume)))
		pos.NetShares = newShares
		pos.AvgCost = oldCost.Add(tradeCost).Div(decimal.NewFromInt(abs(newShares)))
		return
	}

	closed := min(abs(oldShares), abs(volume))
	diff := price.Sub(oldAvg)
	if oldShares < 0 {
		diff = diff.Neg()
	}
	p.realized = p.realized.Add(diff.Mul(decimal.NewFromInt(closed)))

	newShares := oldShares + volume
	pos.NetShares = newShares
	switch {
	case newShares == 0:
		pos.AvgCost = decimal.Zero
	case (oldShares > 0) != (newShares > 0):
		// Direction flip: the leftover opens a fresh position at
		// the fill price.
		pos.AvgCost = price
	}
}

// UnrealizedPnL returns the mark-to-market profit of the open position
// in the given instrument at the given price.
func (p *Portfolio) UnrealizedPnL(ticker string, currentPrice decimal.Decimal) decimal.Decimal {
	pos, ok := p.positions[ticker]
	if !ok || pos.NetShares == 0 {
		return decimal.Zero
	}
	diff := currentPrice.Sub(pos.AvgCost)
	if pos.NetShares < 0 {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromInt(abs(pos.NetShares)))
}

// TotalUnrealizedPnL sums the unrealized profit over all instruments a
// current price is known for.
func (p *Portfolio) TotalUnrealizedPnL(currentPrices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for ticker := range p.positions {
		price, ok := currentPrices[ticker]
		if !ok {
			continue
		}
		total = total.Add(p.UnrealizedPnL(ticker, price))
	}
	return total
}

// TotalValue returns the full mark-to-market value of the portfolio:
// cash plus realized and unrealized profit.
func (p *Portfolio) TotalValue(currentPrices map[string]decimal.Decimal) decimal.Decimal {
	return p.cash.Add(p.realized).Add(p.TotalUnrealizedPnL(currentPrices))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
