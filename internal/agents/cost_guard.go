package agents

import (
	"github.com/shopspring/decimal"

	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
)

// costWarnRatio is the share of the ceiling at which a warning is logged.
var costWarnRatio = decimal.NewFromFloat(0.80)

// CostGuard enforces a hard ceiling on model spend within one pipeline run.
// A zero ceiling disables it.
type CostGuard struct {
	maxCostPerRun decimal.Decimal
	log           *logger.Logger
}

// NewCostGuard creates a guard with the given per-run ceiling in USD.
func NewCostGuard(maxCostPerRun decimal.Decimal) *CostGuard {
	return &CostGuard{
		maxCostPerRun: maxCostPerRun,
		log:           logger.Get().With("component", "cost_guard"),
	}
}

// Enabled reports whether a positive ceiling is set.
func (cg *CostGuard) Enabled() bool {
	return cg != nil && cg.maxCostPerRun.IsPositive()
}

// Limit returns the per-run ceiling.
func (cg *CostGuard) Limit() decimal.Decimal {
	if cg == nil {
		return decimal.Zero
	}
	return cg.maxCostPerRun
}

// Check returns ErrInferenceQuotaExceeded once spent has reached the ceiling,
// so the next stage is not started.
func (cg *CostGuard) Check(spent decimal.Decimal) error {
	if !cg.Enabled() {
		return nil
	}

	if spent.GreaterThanOrEqual(cg.maxCostPerRun) {
		return errors.Wrapf(errors.ErrInferenceQuotaExceeded,
			"run cost limit reached: $%s / $%s",
			spent.StringFixed(4), cg.maxCostPerRun.StringFixed(4))
	}

	if spent.GreaterThanOrEqual(cg.maxCostPerRun.Mul(costWarnRatio)) {
		cg.log.Warnw("Run approaching cost limit",
			"spent_usd", spent.StringFixed(4),
			"limit_usd", cg.maxCostPerRun.StringFixed(4),
		)
	}
	return nil
}

// Remaining returns the budget left after spent, never below zero.
func (cg *CostGuard) Remaining(spent decimal.Decimal) decimal.Decimal {
	if !cg.Enabled() {
		return decimal.Zero
	}
	left := cg.maxCostPerRun.Sub(spent)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}
