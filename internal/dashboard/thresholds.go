package dashboard

import (
	"fmt"
	"math"

	"tickwatch/internal/domain"
)

// MinRed is the hard floor for the red threshold.
const MinRed = 0.01

// ValidationResult reports per-key validation errors for a threshold
// quadruple. Ok is true when Errors is empty.
type ValidationResult struct {
	Ok     bool
	Errors map[domain.ThresholdKey]string
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// setIfEmpty assigns msg to key unless the key already carries an error.
// The first violation found wins the message for a key.
func setIfEmpty(errs map[domain.ThresholdKey]string, key domain.ThresholdKey, msg string) {
	if _, ok := errs[key]; !ok {
		errs[key] = msg
	}
}

// ValidateThresholds checks a threshold quadruple as a unit. Each value must
// be a finite positive number; the quadruple must be strictly descending
// green > cyan > orange > red; red must not drop below MinRed. An ordering
// violation is reported on both adjacent keys so a form can highlight both
// ends of the broken relationship. Ordering and floor checks run whenever
// all four values are finite, with the first violation found keeping the
// message for a key; the floor message always wins for red. A non-finite
// value skips ordering entirely.
func ValidateThresholds(t domain.Thresholds) ValidationResult {
	errs := make(map[domain.ThresholdKey]string)

	allFinite := true
	for _, k := range domain.ThresholdKeys {
		v := t.Get(k)
		switch {
		case !validNumber(v):
			errs[k] = "Required"
			allFinite = false
		case v == 0:
			errs[k] = "Must not be 0"
		case v < 0:
			errs[k] = "Must be positive"
		}
	}

	if allFinite {
		if !(t.Green > t.Cyan) {
			setIfEmpty(errs, domain.ThresholdGreen, "Must be greater than Cyan")
			setIfEmpty(errs, domain.ThresholdCyan, "Must be less than Green")
		}
		if !(t.Cyan > t.Orange) {
			setIfEmpty(errs, domain.ThresholdCyan, "Must be greater than Orange")
			setIfEmpty(errs, domain.ThresholdOrange, "Must be less than Cyan")
		}
		if !(t.Orange > t.Red) {
			setIfEmpty(errs, domain.ThresholdOrange, "Must be greater than Red")
			setIfEmpty(errs, domain.ThresholdRed, "Must be less than Orange")
		}
		if !(t.Red >= MinRed) {
			errs[domain.ThresholdRed] = fmt.Sprintf("Must be greater than %.2f", MinRed)
		}
	}

	return ValidationResult{Ok: len(errs) == 0, Errors: errs}
}

// ValidateThresholdEdit validates a proposed edit of one threshold by
// re-validating the whole quadruple with the key replaced. There is no such
// thing as a locally valid single-field edit.
func ValidateThresholdEdit(current domain.Thresholds, key domain.ThresholdKey, next float64) ValidationResult {
	return ValidateThresholds(current.With(key, next))
}
