package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
)

func TestCalculateWithPercentageMargin(t *testing.T) {
	got, err := Calculate(Input{
		DailyRate: 200,
		PerDiem:   50,
		Duration:  5,
		Margin:    entity.MarginConfig{Type: entity.MarginPercentage, Value: 10},
		Currency:  "EUR",
	})
	require.NoError(t, err)

	assert.Equal(t, 1000.0, got.TotalSalary)
	assert.Equal(t, 250.0, got.TotalPerDiem)
	assert.Equal(t, 1250.0, got.TotalFees)
	assert.Equal(t, 125.0, got.Margin)
	assert.Equal(t, 1375.0, got.TotalWithMargin)
}

func TestCalculateWithFixedMargin(t *testing.T) {
	got, err := Calculate(Input{
		DailyRate: 310.5,
		Duration:  3,
		Margin:    entity.MarginConfig{Type: entity.MarginFixed, Value: 99.99},
	})
	require.NoError(t, err)

	assert.Equal(t, 931.5, got.TotalFees)
	assert.Equal(t, 99.99, got.Margin)
	assert.InDelta(t, got.TotalFees+got.Margin, got.TotalWithMargin, 0.001)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	margin := entity.MarginConfig{Type: entity.MarginPercentage, Value: 10}

	_, err := Calculate(Input{DailyRate: 100, Duration: 0, Margin: margin})
	assert.Error(t, err)

	_, err = Calculate(Input{DailyRate: -1, Duration: 2, Margin: margin})
	assert.Error(t, err)

	_, err = Calculate(Input{DailyRate: 100, Duration: 2, Margin: entity.MarginConfig{Type: "bonus", Value: 1}})
	assert.Error(t, err)
}

func TestFromContractCountsBoundaryDays(t *testing.T) {
	perDiem := 50.0
	c := entity.Contract{
		StartDate:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
		SalaryAmount: 200,
		SalaryType:   entity.SalaryDaily,
		Currency:     "EUR",
		PerDiem:      &perDiem,
	}
	got, err := FromContract(c, entity.MarginConfig{Type: entity.MarginPercentage, Value: 10})
	require.NoError(t, err)

	assert.Equal(t, 5, got.Duration)
	assert.Equal(t, 1375.0, got.TotalWithMargin)
	assert.Equal(t, "EUR", got.Currency)
}

func TestDailyRateFromMonthlySalary(t *testing.T) {
	rate, err := DailyRate(entity.Contract{SalaryAmount: 9000, SalaryType: entity.SalaryMonthly})
	require.NoError(t, err)
	assert.Equal(t, 300.0, rate)

	_, err = DailyRate(entity.Contract{SalaryAmount: 1, SalaryType: "weekly"})
	assert.Error(t, err)
}
