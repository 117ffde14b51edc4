package ml

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// NumFeatures is the fixed arity of a vitals vector.
	NumFeatures = 4

	// NumClasses is the number of risk categories the model predicts.
	NumClasses = 4
)

// Vitals is a single vital-sign measurement. The field order is the
// feature order used everywhere in the pipeline: heart rate, SpO2,
// blood pressure, temperature.
type Vitals struct {
	HeartRate     float64 `json:"heart_rate" yaml:"heart_rate"`
	SpO2          float64 `json:"spo2" yaml:"spo2"`
	BloodPressure float64 `json:"blood_pressure" yaml:"blood_pressure"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
}

// Values returns the measurement as an ordered feature array.
func (v Vitals) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{v.HeartRate, v.SpO2, v.BloodPressure, v.Temperature}
}

// Validate checks that every feature is a finite number.
func (v Vitals) Validate() error {
	for i, f := range v.Values() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Wrapf(ErrInvalidFeature, "feature %s is not finite: %v", featureNames[i], f)
		}
	}
	return nil
}

// AdjustForAge shifts the heart-rate baseline for age groups outside the
// adult range, matching the kiosk intake behavior. Age <= 0 means unknown
// and leaves the vitals untouched.
func AdjustForAge(v Vitals, age float64) Vitals {
	switch {
	case age > 60:
		v.HeartRate *= 0.9
	case age > 0 && age < 18:
		v.HeartRate *= 1.1
	}
	return v
}

var featureNames = [NumFeatures]string{"HeartRate", "SpO2", "BloodPressure", "Temperature"}

// Label is a discrete health-risk category.
type Label int

const (
	LabelNormal Label = iota
	LabelCardiovascular
	LabelRespiratory
	LabelFever
)

var labelNames = [NumClasses]string{
	"Normal",
	"Cardiovascular Risk",
	"Respiratory Issue",
	"Fever/Infection",
}

var labelExplanations = [NumClasses]string{
	"all vitals within normal ranges",
	"high blood pressure or heart rate",
	"low SpO2 levels",
	"elevated temperature",
}

func (l Label) String() string {
	if !l.Valid() {
		return "Unknown"
	}
	return labelNames[l]
}

// Valid reports whether the label is one of the known risk categories.
func (l Label) Valid() bool {
	return l >= 0 && l < NumClasses
}

// Explanation returns the static per-label reason string shown to users.
func (l Label) Explanation() string {
	if !l.Valid() {
		return "general anomaly"
	}
	return labelExplanations[l]
}

// ClassNames returns the ordered list of category names, indexed by Label.
func ClassNames() [NumClasses]string {
	return labelNames
}
