package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScalerEmpty(t *testing.T) {
	s, err := FitScaler(nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestFitScalerDegenerateFeature(t *testing.T) {
	samples := []Vitals{
		{HeartRate: 70, SpO2: 98, BloodPressure: 120, Temperature: 36.6},
		{HeartRate: 80, SpO2: 97, BloodPressure: 130, Temperature: 36.6},
		{HeartRate: 90, SpO2: 96, BloodPressure: 140, Temperature: 36.6},
	}

	s, err := FitScaler(samples)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrDegenerateFeature)
	assert.Contains(t, err.Error(), "Temperature")
}

func TestFitScalerStandardizesTrainingData(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := make([]Vitals, 500)
	for i := range samples {
		samples[i] = Vitals{
			HeartRate:     75 + rng.NormFloat64()*12,
			SpO2:          97 + rng.NormFloat64()*2,
			BloodPressure: 120 + rng.NormFloat64()*15,
			Temperature:   36.8 + rng.NormFloat64()*0.6,
		}
	}

	state, err := FitScaler(samples)
	require.NoError(t, err)

	// Transforming the fit data must yield mean ~0 and std ~1 per feature.
	var sum, sumSq [NumFeatures]float64
	for _, s := range samples {
		out := state.Transform(s)
		for i, v := range out {
			sum[i] += v
			sumSq[i] += v * v
		}
	}
	n := float64(len(samples))
	for i := 0; i < NumFeatures; i++ {
		mean := sum[i] / n
		variance := sumSq[i]/n - mean*mean
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, variance, 1e-9)
	}
}

func TestTransformCenteredInput(t *testing.T) {
	state := &ScalerState{
		Mean: [NumFeatures]float64{75, 98, 120, 36.6},
		Std:  [NumFeatures]float64{10, 2, 15, 0.5},
	}

	out := state.Transform(Vitals{HeartRate: 75, SpO2: 98, BloodPressure: 120, Temperature: 36.6})
	assert.Equal(t, [NumFeatures]float64{0, 0, 0, 0}, out)

	out = state.Transform(Vitals{HeartRate: 85, SpO2: 96, BloodPressure: 135, Temperature: 37.1})
	assert.Equal(t, [NumFeatures]float64{1, -1, 1, 1}, out)
}
