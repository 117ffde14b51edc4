package ml

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// ScalerState holds the per-feature standardization statistics computed
// once from training data. Immutable after fit: the same state must be
// used for every transform on the paired model.
type ScalerState struct {
	Mean [NumFeatures]float64 `json:"mean"`
	Std  [NumFeatures]float64 `json:"std"`
}

// FitScaler computes per-feature mean and population standard deviation
// across all samples. Returns ErrEmptyDataset for an empty input and
// ErrDegenerateFeature if any feature has zero variance.
func FitScaler(samples []Vitals) (*ScalerState, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}

	cols := make([][]float64, NumFeatures)
	for i := range cols {
		cols[i] = make([]float64, 0, len(samples))
	}
	for _, s := range samples {
		for i, f := range s.Values() {
			cols[i] = append(cols[i], f)
		}
	}

	state := &ScalerState{}
	for i, col := range cols {
		m, err := stats.Mean(col)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compute mean for %s", featureNames[i])
		}
		sd, err := stats.StandardDeviationPopulation(col)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compute std for %s", featureNames[i])
		}
		if sd == 0 {
			return nil, errors.Wrapf(ErrDegenerateFeature, "feature %s is constant (%v)", featureNames[i], m)
		}
		state.Mean[i] = m
		state.Std[i] = sd
	}

	return state, nil
}

// Transform standardizes a single measurement using the frozen fit
// statistics. Pure function, no side effects.
func (s *ScalerState) Transform(v Vitals) [NumFeatures]float64 {
	raw := v.Values()
	var out [NumFeatures]float64
	for i := range raw {
		out[i] = (raw[i] - s.Mean[i]) / s.Std[i]
	}
	return out
}
