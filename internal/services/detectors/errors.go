package detectors

import (
	"fmt"

	"MacroPulse/internal/domain/models"
)

// InsufficientDataError reports that too few periods were available for a
// statistically meaningful multivariate fit. It names the minimum required.
type InsufficientDataError struct {
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d periods, got %d", e.Required, e.Got)
}

// DecompositionError reports that a series could not be decomposed: shorter
// than the configured number of seasonal cycles, or non-finite after
// alignment.
type DecompositionError struct {
	Indicator models.Indicator
	Reason    string
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("decomposition failed for %s: %s", e.Indicator, e.Reason)
}

// ForecastFitError reports a forecast model fit that did not converge for a
// given cutoff period. The affected period is marked not_evaluated, never
// silently dropped.
type ForecastFitError struct {
	Period models.Period
	Reason string
}

func (e *ForecastFitError) Error() string {
	return fmt.Sprintf("forecast fit failed at %s: %s", e.Period, e.Reason)
}
