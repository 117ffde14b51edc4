package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax(t *testing.T) {
	tests := map[string][]float64{
		"uniform":      {0, 0, 0, 0},
		"spread":       {1, 2, 3, 4},
		"large scores": {1000, 1001, 1002, 1003},
		"negative":     {-5, -1, -10, -2},
	}

	for name, z := range tests {
		t.Run(name, func(t *testing.T) {
			probs := softmax(z)
			var sum float64
			for _, p := range probs {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-6)
		})
	}
}

func TestArgmaxTieBreaksToLowestIndex(t *testing.T) {
	assert.Equal(t, 0, argmax([]float64{0.25, 0.25, 0.25, 0.25}))
	assert.Equal(t, 1, argmax([]float64{0.1, 0.4, 0.4, 0.1}))
	assert.Equal(t, 3, argmax([]float64{0.1, 0.2, 0.3, 0.4}))
}

func TestForwardDeterministicWithoutDropout(t *testing.T) {
	p := newParameters(rand.New(rand.NewSource(11)))
	x := [NumFeatures]float64{0.5, -1.2, 0.3, 2.1}

	a := p.forward(x, nil, 0)
	b := p.forward(x, nil, 0)
	assert.Equal(t, a.probs, b.probs)

	var sum float64
	for _, v := range a.probs {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestForwardDropoutTrainingOnly(t *testing.T) {
	p := newParameters(rand.New(rand.NewSource(11)))
	x := [NumFeatures]float64{0.5, -1.2, 0.3, 2.1}

	inference := p.forward(x, nil, DefaultDropoutRate)
	assert.Nil(t, inference.mask)

	training := p.forward(x, rand.New(rand.NewSource(3)), DefaultDropoutRate)
	require.NotNil(t, training.mask)

	var dropped int
	for _, m := range training.mask {
		if m == 0 {
			dropped++
		}
	}
	// With rate 0.3 over 64 units, some but not all activations drop.
	assert.Greater(t, dropped, 0)
	assert.Less(t, dropped, hidden1Size)
}

func TestParametersClone(t *testing.T) {
	p := newParameters(rand.New(rand.NewSource(5)))
	c := p.clone()

	require.Equal(t, p.W1.RawMatrix().Data, c.W1.RawMatrix().Data)

	// Mutating the original must not touch the snapshot.
	orig := c.W1.At(0, 0)
	p.W1.Set(0, 0, orig+1)
	assert.Equal(t, orig, c.W1.At(0, 0))
}
