package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/types"
)

// Evaluation is a fresh read of the ballots against the current voter pool.
type Evaluation struct {
	Eligibility
	Tally
	Resolution types.Resolution `json:"resolution"`
}

// Decide applies the majority rule. Confirm is checked first.
func Decide(t Tally, threshold int64) types.Resolution {
	switch {
	case t.Confirm >= threshold:
		return types.ResolutionConfirmed
	case t.Reject >= threshold:
		return types.ResolutionRejected
	default:
		return types.ResolutionUndecided
	}
}

// Evaluator bridges the ledger and the eligibility calculator. Nothing is
// cached: membership can shrink between two ballots.
type Evaluator struct {
	eligibility *EligibilityCalculator
	ledger      *VoteLedger
}

func NewEvaluator(eligibility *EligibilityCalculator, ledger *VoteLedger) *Evaluator {
	return &Evaluator{eligibility: eligibility, ledger: ledger}
}

func (e *Evaluator) Evaluate(ctx context.Context, incidentID, groupID, accusedID uuid.UUID) (Evaluation, error) {
	elig, err := e.eligibility.Eligibility(ctx, groupID, accusedID)
	if err != nil {
		return Evaluation{}, err
	}
	tally, err := e.ledger.Tally(ctx, incidentID)
	if err != nil {
		return Evaluation{}, err
	}
	eval := Evaluation{
		Eligibility: elig,
		Tally:       tally,
		Resolution:  Decide(tally, elig.MajorityThreshold),
	}
	// An empty pool waits for expiry, even if ballots from former members
	// would reach the threshold.
	if elig.EligibleCount == 0 {
		eval.Resolution = types.ResolutionUndecided
	}
	return eval, nil
}
