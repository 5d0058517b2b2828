package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContractChecker decides whether a doctor is under an active engagement
// contract on a given date. Read-only; the contract records themselves are
// managed by the surrounding application.
type ContractChecker struct {
	schedules ScheduleRepository
}

func NewContractChecker(schedules ScheduleRepository) *ContractChecker {
	return &ContractChecker{schedules: schedules}
}

// Valid returns nil when an active contract covers the date, a
// ValidationError with NO_ACTIVE_CONTRACT when none does, and a plain error
// on repository failure.
func (c *ContractChecker) Valid(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	_, err := c.schedules.FindActiveContract(ctx, doctorID, DayOf(date))
	if err != nil {
		if errors.Is(err, ErrNoActiveContract) {
			return validationErr(ReasonNoActiveContract, "doctor %s has no active contract on %s", doctorID, DayOf(date).Format("2006-01-02"))
		}
		return fmt.Errorf("load contract: %w", err)
	}
	return nil
}
