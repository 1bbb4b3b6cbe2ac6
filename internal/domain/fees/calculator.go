// Package fees derives salary, per-diem and margin totals from contract terms.
package fees

import (
	"errors"
	"fmt"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/pkg/utils"
)

// daysPerMonth converts a monthly salary into a daily rate
const daysPerMonth = 30

// Input is everything the fee breakdown depends on
type Input struct {
	DailyRate float64
	PerDiem   float64
	Duration  int
	Margin    entity.MarginConfig
	Currency  string
}

// Calculate derives the full fee breakdown. Totals are always recomputed from
// the inputs, never carried over.
func Calculate(in Input) (entity.Fees, error) {
	if in.Duration < 1 {
		return entity.Fees{}, fmt.Errorf("duration must be at least 1 day, got %d", in.Duration)
	}
	if in.DailyRate < 0 || in.PerDiem < 0 {
		return entity.Fees{}, errors.New("rates must not be negative")
	}
	if err := in.Margin.Validate(); err != nil {
		return entity.Fees{}, err
	}

	days := float64(in.Duration)
	totalSalary := utils.RoundCents(in.DailyRate * days)
	totalPerDiem := utils.RoundCents(in.PerDiem * days)
	totalFees := utils.RoundCents(totalSalary + totalPerDiem)

	var margin float64
	switch in.Margin.Type {
	case entity.MarginPercentage:
		margin = utils.RoundCents(totalFees * in.Margin.Value / 100)
	case entity.MarginFixed:
		margin = utils.RoundCents(in.Margin.Value)
	}

	return entity.Fees{
		DailyRate:       in.DailyRate,
		PerDiem:         in.PerDiem,
		Duration:        in.Duration,
		TotalSalary:     totalSalary,
		TotalPerDiem:    totalPerDiem,
		TotalFees:       totalFees,
		Margin:          margin,
		TotalWithMargin: utils.RoundCents(totalFees + margin),
		Currency:        in.Currency,
	}, nil
}

// DailyRate converts the contract salary into a per-day amount
func DailyRate(c entity.Contract) (float64, error) {
	switch c.SalaryType {
	case entity.SalaryDaily, "":
		return c.SalaryAmount, nil
	case entity.SalaryMonthly:
		return utils.RoundCents(c.SalaryAmount / daysPerMonth), nil
	}
	return 0, fmt.Errorf("unknown salary type %q", c.SalaryType)
}

// Duration returns the inclusive day count of the contract
func Duration(c entity.Contract) (int, error) {
	return utils.InclusiveDays(c.StartDate, c.EndDate)
}

// FromContract derives duration and fees from a contract and margin
func FromContract(c entity.Contract, margin entity.MarginConfig) (entity.Fees, error) {
	duration, err := Duration(c)
	if err != nil {
		return entity.Fees{}, err
	}
	rate, err := DailyRate(c)
	if err != nil {
		return entity.Fees{}, err
	}
	var perDiem float64
	if c.PerDiem != nil {
		perDiem = *c.PerDiem
	}
	return Calculate(Input{
		DailyRate: rate,
		PerDiem:   perDiem,
		Duration:  duration,
		Margin:    margin,
		Currency:  c.Currency,
	})
}
