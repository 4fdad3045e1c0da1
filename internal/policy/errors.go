package policy

import (
	"errors"
	"fmt"
)

// Domain errors for policy transforms. None of them is recovered from.
var (
	// ErrDomain indicates an arithmetic result outside the real numbers (NaN).
	ErrDomain = errors.New("policy: arithmetic domain error")

	// ErrBackstop indicates a negative backstop price, or a zero one in a
	// period where a tax is applied.
	ErrBackstop = errors.New("policy: backstop price must be positive")

	// ErrHorizon indicates a tax path that does not fit after the base period.
	ErrHorizon = errors.New("policy: tax path longer than the optimizable horizon")

	// ErrTheta indicates an abatement-cost exponent of 1.
	ErrTheta = errors.New("policy: abatement-cost exponent must differ from 1")

	// ErrDimension indicates a vector or matrix of the wrong shape.
	ErrDimension = errors.New("policy: dimension mismatch")
)

// DomainError locates a failed transform at a period/region cell.
type DomainError struct {
	Op     string
	Period int
	Region int
	Value  float64
	Err    error
}

func (e *DomainError) Error() string {
	if e.Region < 0 {
		return fmt.Sprintf("%s: period %d (value %g): %v", e.Op, e.Period, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: period %d, region %d (value %g): %v", e.Op, e.Period, e.Region, e.Value, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}
