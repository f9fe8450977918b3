// Package schedule builds repayment schedules as a pure function of the loan
// terms. It holds no state and touches no storage.
package schedule

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Structure string

const (
	StructureAnnuity Structure = "annuity"
	StructureFlat    Structure = "flat"
)

type Cycle string

const (
	CycleMonthly   Cycle = "monthly"
	CycleQuarterly Cycle = "quarterly"
)

type Input struct {
	Principal  decimal.Decimal
	AnnualRate decimal.Decimal // e.g. 0.24 for 24% p.a.
	TermMonths int
	Structure  Structure
	Cycle      Cycle
	// Interest-only grace before the first principal payment.
	GraceDays        int
	FirstPaymentDate time.Time
	// Flat fee added to the first installment.
	UpfrontFee decimal.Decimal
}

type Installment struct {
	Number           int             `json:"number"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Fee              decimal.Decimal `json:"fee"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

var (
	ErrInvalidTerm      = errors.New("schedule: term must be positive")
	ErrInvalidPrincipal = errors.New("schedule: principal must be positive")
	ErrUnknownStructure = errors.New("schedule: unknown repayment structure")
)

func monthsPerPeriod(c Cycle) int {
	if c == CycleQuarterly {
		return 3
	}
	return 1
}

// Build returns the ordered installment rows for the given terms. All money
// values are rounded to 2 decimal places; the final installment absorbs the
// rounding remainder so the principals always sum to the full amount.
func Build(in Input) ([]Installment, error) {
	if in.TermMonths <= 0 {
		return nil, ErrInvalidTerm
	}
	if in.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrincipal
	}

	step := monthsPerPeriod(in.Cycle)
	periods := in.TermMonths / step
	if in.TermMonths%step != 0 {
		periods++
	}
	periodRate := in.AnnualRate.Div(decimal.NewFromInt(int64(12 / step)))

	first := in.FirstPaymentDate
	if first.IsZero() {
		first = time.Now().UTC().AddDate(0, step, in.GraceDays)
	}

	var rows []Installment
	switch in.Structure {
	case StructureFlat, "":
		rows = buildFlat(in.Principal, periodRate, periods)
	case StructureAnnuity:
		rows = buildAnnuity(in.Principal, periodRate, periods)
	default:
		return nil, ErrUnknownStructure
	}

	for i := range rows {
		rows[i].Number = i + 1
		rows[i].DueDate = first.AddDate(0, i*step, 0)
		if i == 0 {
			rows[i].Fee = in.UpfrontFee.Round(2)
		}
		rows[i].Total = rows[i].Principal.Add(rows[i].Interest).Add(rows[i].Fee)
	}
	return rows, nil
}

func buildFlat(principal, periodRate decimal.Decimal, periods int) []Installment {
	n := decimal.NewFromInt(int64(periods))
	per := principal.Div(n).Round(2)
	interest := principal.Mul(periodRate).Round(2)

	rows := make([]Installment, periods)
	remaining := principal
	for i := 0; i < periods; i++ {
		p := per
		if i == periods-1 {
			p = remaining // absorb rounding remainder
		}
		remaining = remaining.Sub(p)
		rows[i] = Installment{Principal: p, Interest: interest, RemainingBalance: remaining}
	}
	return rows
}

func buildAnnuity(principal, periodRate decimal.Decimal, periods int) []Installment {
	rows := make([]Installment, periods)
	if periodRate.IsZero() {
		return buildFlat(principal, periodRate, periods)
	}

	one := decimal.NewFromInt(1)
	growth := one.Add(periodRate).Pow(decimal.NewFromInt(int64(periods)))
	payment := principal.Mul(periodRate).Mul(growth).Div(growth.Sub(one)).Round(2)

	remaining := principal
	for i := 0; i < periods; i++ {
		interest := remaining.Mul(periodRate).Round(2)
		p := payment.Sub(interest)
		if i == periods-1 {
			p = remaining // absorb rounding remainder
		}
		remaining = remaining.Sub(p)
		rows[i] = Installment{Principal: p, Interest: interest, RemainingBalance: remaining}
	}
	return rows
}
