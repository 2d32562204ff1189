package ledger

import (
	"fmt"
	"time"

	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/shared/valueobject"
)

// ClosingPolicy decides which periods may be sealed and when.
//
// The default policy allows sealing the previous calendar month within a
// grace window after month start. AllowCurrentMonth additionally permits
// sealing the running month early (which produces a partial closing), and
// AllowPastMonths permits backfilling any fully elapsed month.
type ClosingPolicy struct {
	// GraceDays is how many days into the new month the previous month may
	// still be sealed. Zero means no limit.
	GraceDays int
	// AllowCurrentMonth permits sealing the running month before it ends.
	AllowCurrentMonth bool
	// AllowPastMonths permits sealing months older than the previous one.
	AllowPastMonths bool
}

// DefaultClosingPolicy returns the standard policy: previous month only,
// sealed within ten days of month start.
func DefaultClosingPolicy() ClosingPolicy {
	return ClosingPolicy{
		GraceDays:         10,
		AllowCurrentMonth: false,
		AllowPastMonths:   false,
	}
}

// CanSeal returns nil when the period may be sealed at the given time, or a
// POLICY_VIOLATION error carrying the reason.
func (p ClosingPolicy) CanSeal(now time.Time, period valueobject.Period) error {
	current := valueobject.PeriodOf(now)

	if current.Before(period) {
		return shared.NewPolicyViolationError(
			fmt.Sprintf("period %s has not started yet", period))
	}

	if period.Equals(current) {
		if !p.AllowCurrentMonth {
			return shared.NewPolicyViolationError(
				fmt.Sprintf("period %s is still running; early closing is not enabled", period))
		}
		return nil
	}

	if period.Equals(current.Previous()) {
		if p.GraceDays > 0 && now.Day() > p.GraceDays {
			return shared.NewPolicyViolationError(
				fmt.Sprintf("period %s can only be sealed within %d days of month start", period, p.GraceDays))
		}
		return nil
	}

	if !p.AllowPastMonths {
		return shared.NewPolicyViolationError(
			fmt.Sprintf("period %s is too old to seal; backfilling is not enabled", period))
	}
	return nil
}
