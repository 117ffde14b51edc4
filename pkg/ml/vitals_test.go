package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	assert.Equal(t, "Normal", LabelNormal.String())
	assert.Equal(t, "Cardiovascular Risk", LabelCardiovascular.String())
	assert.Equal(t, "Respiratory Issue", LabelRespiratory.String())
	assert.Equal(t, "Fever/Infection", LabelFever.String())
	assert.Equal(t, "Unknown", Label(9).String())

	assert.True(t, LabelNormal.Valid())
	assert.True(t, LabelFever.Valid())
	assert.False(t, Label(-1).Valid())
	assert.False(t, Label(NumClasses).Valid())

	assert.Equal(t, "elevated temperature", LabelFever.Explanation())
	assert.Equal(t, "general anomaly", Label(42).Explanation())
}

func TestVitalsValidate(t *testing.T) {
	valid := Vitals{HeartRate: 75, SpO2: 98, BloodPressure: 120, Temperature: 36.6}
	assert.NoError(t, valid.Validate())

	tests := map[string]Vitals{
		"NaN heart rate": {HeartRate: math.NaN(), SpO2: 98, BloodPressure: 120, Temperature: 36.6},
		"Inf SpO2":       {HeartRate: 75, SpO2: math.Inf(1), BloodPressure: 120, Temperature: 36.6},
		"neg Inf BP":     {HeartRate: 75, SpO2: 98, BloodPressure: math.Inf(-1), Temperature: 36.6},
	}
	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, v.Validate(), ErrInvalidFeature)
		})
	}
}

func TestAdjustForAge(t *testing.T) {
	base := Vitals{HeartRate: 100, SpO2: 98, BloodPressure: 120, Temperature: 36.6}

	elderly := AdjustForAge(base, 70)
	assert.InDelta(t, 90, elderly.HeartRate, 1e-9)

	child := AdjustForAge(base, 10)
	assert.InDelta(t, 110, child.HeartRate, 1e-9)

	adult := AdjustForAge(base, 35)
	assert.Equal(t, base, adult)

	unknown := AdjustForAge(base, 0)
	assert.Equal(t, base, unknown)

	// Only the heart rate is adjusted.
	assert.Equal(t, base.SpO2, elderly.SpO2)
	assert.Equal(t, base.Temperature, child.Temperature)
}
