package risk

import "github.com/quantary/optionsentry/pkg/types"

// ContractsFor sizes a trade by grade within the per-trade risk budget.
// A-grade trades take as many contracts as the budget affords, capped at
// the absolute maximum; B-grade trades get minimum exposure (one contract);
// anything else sizes to zero.
func (g *Governor) ContractsFor(grade types.TradeGrade, contractPrice float64) int {
	if contractPrice <= 0 {
		return 0
	}

	g.mu.Lock()
	maxRisk := g.limits.MaxRiskPerTrade
	maxContracts := g.limits.MaxContracts
	g.mu.Unlock()

	costPerContract := contractPrice * 100
	affordable := int(maxRisk / costPerContract)

	switch grade {
	case types.GradeA:
		if affordable > maxContracts {
			return maxContracts
		}
		return affordable
	case types.GradeB:
		if affordable >= 1 {
			return 1
		}
		return 0
	default:
		return 0
	}
}
