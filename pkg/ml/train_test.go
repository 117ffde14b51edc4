package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeDataset builds a well-separated labeled dataset for training tests.
func makeDataset(n int, seed int64) ([]Vitals, []Label) {
	type profile struct{ hr, spo2, bp, temp float64 }
	profiles := [NumClasses]profile{
		LabelNormal:         {75, 98, 118, 36.7},
		LabelCardiovascular: {112, 96, 160, 36.9},
		LabelRespiratory:    {95, 88, 124, 37.1},
		LabelFever:          {100, 95, 120, 39.0},
	}

	rng := rand.New(rand.NewSource(seed))
	samples := make([]Vitals, n)
	labels := make([]Label, n)
	for i := 0; i < n; i++ {
		l := Label(i % NumClasses)
		p := profiles[l]
		samples[i] = Vitals{
			HeartRate:     p.hr + rng.NormFloat64()*3,
			SpO2:          p.spo2 + rng.NormFloat64()*0.8,
			BloodPressure: p.bp + rng.NormFloat64()*4,
			Temperature:   p.temp + rng.NormFloat64()*0.2,
		}
		labels[i] = l
	}
	return samples, labels
}

func TestTrainInvalidConfig(t *testing.T) {
	samples, labels := makeDataset(8, 1)
	cfg := DefaultConfig()
	cfg.BatchSize = 0
	_, err := Train(samples, labels, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid training config")
}

func TestTrainEmptyDataset(t *testing.T) {
	_, err := Train(nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestTrainSampleLabelMismatch(t *testing.T) {
	samples, labels := makeDataset(8, 1)
	_, err := Train(samples, labels[:4], DefaultConfig())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestTrainInvalidLabel(t *testing.T) {
	samples, labels := makeDataset(8, 1)
	labels[3] = Label(7)
	_, err := Train(samples, labels, DefaultConfig())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid label")
}

func TestTrainInsufficientData(t *testing.T) {
	samples, labels := makeDataset(3, 1)
	_, err := Train(samples, labels, DefaultConfig())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainLearnsSeparableClasses(t *testing.T) {
	samples, labels := makeDataset(400, 42)

	model, err := Train(samples, labels, DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, model.History)
	assert.NotEmpty(t, model.ID)

	var best float64
	for _, r := range model.History {
		assert.Equal(t, r.Epoch, model.History[r.Epoch-1].Epoch)
		if r.ValAccuracy > best {
			best = r.ValAccuracy
		}
	}
	assert.Greater(t, best, 0.8, "well-separated classes should be learnable")

	pred, err := model.Predict(Vitals{HeartRate: 75, SpO2: 98, BloodPressure: 118, Temperature: 36.7})
	require.NoError(t, err)
	assert.Equal(t, LabelNormal, pred.Label)
}

func TestTrainRestoresBestSnapshot(t *testing.T) {
	samples, labels := makeDataset(200, 9)
	cfg := DefaultConfig()
	cfg.Epochs = 20

	model, err := Train(samples, labels, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, model.History)

	var best float64
	for _, r := range model.History {
		if r.ValAccuracy > best {
			best = r.ValAccuracy
		}
	}

	// Replay the split with the same seed: the returned parameters must
	// score the peak validation accuracy, not the last epoch's.
	rng := rand.New(rand.NewSource(cfg.Seed))
	_, valIdx, err := split(len(samples), cfg.ValidationFraction, rng)
	require.NoError(t, err)

	valX, valY := standardize(&model.Scaler, samples, labels, valIdx)
	_, acc := evaluateSplit(model.params, valX, valY)
	assert.Equal(t, best, acc)
}

func TestTrainDeterministicForSeed(t *testing.T) {
	samples, labels := makeDataset(120, 3)
	cfg := DefaultConfig()
	cfg.Epochs = 5

	m1, err := Train(samples, labels, cfg)
	require.NoError(t, err)
	m2, err := Train(samples, labels, cfg)
	require.NoError(t, err)

	probe := Vitals{HeartRate: 90, SpO2: 94, BloodPressure: 130, Temperature: 37.5}
	p1, err := m1.Predict(probe)
	require.NoError(t, err)
	p2, err := m2.Predict(probe)
	require.NoError(t, err)

	assert.Equal(t, p1.Probabilities, p2.Probabilities)
	assert.Equal(t, m1.Scaler, m2.Scaler)
}

func TestTrainDiverges(t *testing.T) {
	samples, labels := makeDataset(40, 5)
	cfg := DefaultConfig()
	cfg.Epochs = 3
	// Adam normalizes step sizes, so the rate has to be extreme enough to
	// overflow the second layer's matmul before the loss goes non-finite.
	cfg.LearningRate = 1e200

	_, err := Train(samples, labels, cfg)
	assert.ErrorIs(t, err, ErrTrainingDiverged)
}

func TestSplitFractions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	train, val, err := split(10, 0.2, rng)
	require.NoError(t, err)
	assert.Len(t, val, 2)
	assert.Len(t, train, 8)

	seen := make(map[int]bool)
	for _, i := range append(train, val...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 10)

	_, _, err = split(4, 0.1, rng)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCrossEntropy(t *testing.T) {
	assert.InDelta(t, 0, crossEntropy([]float64{0, 1, 0, 0}, LabelCardiovascular), 1e-9)
	assert.Greater(t, crossEntropy([]float64{0.9, 0.05, 0.03, 0.02}, LabelFever), 3.0)
	// Zero probability must not produce Inf.
	assert.True(t, isFinite(crossEntropy([]float64{1, 0, 0, 0}, LabelFever)))
}
