package ml

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	hidden1Size = 64
	hidden2Size = 32

	// DefaultDropoutRate zeroes this fraction of first-layer activations
	// during training forward passes only.
	DefaultDropoutRate = 0.3
)

// Parameters holds the weight and bias matrices of the three dense layers
// (4 -> 64 -> 32 -> 4). This is the sole mutable state during training and
// is frozen once training completes.
type Parameters struct {
	W1 *mat.Dense    // hidden1Size x NumFeatures
	B1 *mat.VecDense // hidden1Size
	W2 *mat.Dense    // hidden2Size x hidden1Size
	B2 *mat.VecDense // hidden2Size
	W3 *mat.Dense    // NumClasses x hidden2Size
	B3 *mat.VecDense // NumClasses
}

func newParameters(rng *rand.Rand) *Parameters {
	return &Parameters{
		W1: heDense(rng, hidden1Size, NumFeatures),
		B1: mat.NewVecDense(hidden1Size, nil),
		W2: heDense(rng, hidden2Size, hidden1Size),
		B2: mat.NewVecDense(hidden2Size, nil),
		W3: heDense(rng, NumClasses, hidden2Size),
		B3: mat.NewVecDense(NumClasses, nil),
	}
}

// heDense returns a rows x cols matrix with He-normal initialized weights,
// the usual choice ahead of ReLU activations.
func heDense(rng *rand.Rand, rows, cols int) *mat.Dense {
	std := math.Sqrt(2.0 / float64(cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
	return mat.NewDense(rows, cols, data)
}

// clone deep-copies the parameters. Used for best-validation snapshots.
func (p *Parameters) clone() *Parameters {
	return &Parameters{
		W1: mat.DenseCopyOf(p.W1),
		B1: mat.VecDenseCopyOf(p.B1),
		W2: mat.DenseCopyOf(p.W2),
		B2: mat.VecDenseCopyOf(p.B2),
		W3: mat.DenseCopyOf(p.W3),
		B3: mat.VecDenseCopyOf(p.B3),
	}
}

// activations caches the intermediate values of one forward pass needed
// for backpropagation.
type activations struct {
	x     *mat.VecDense
	z1    *mat.VecDense
	a1    *mat.VecDense // post-ReLU, post-dropout
	mask  []float64     // nil when dropout is disabled
	z2    *mat.VecDense
	a2    *mat.VecDense
	probs []float64
}

// forward runs one pass through the network. A non-nil rng enables
// inverted dropout with the given rate (training mode); a nil rng is the
// deterministic inference path where dropout is the identity.
func (p *Parameters) forward(x [NumFeatures]float64, rng *rand.Rand, dropRate float64) *activations {
	act := &activations{x: mat.NewVecDense(NumFeatures, append([]float64(nil), x[:]...))}

	act.z1 = mat.NewVecDense(hidden1Size, nil)
	act.z1.MulVec(p.W1, act.x)
	act.z1.AddVec(act.z1, p.B1)

	act.a1 = mat.NewVecDense(hidden1Size, nil)
	for i := 0; i < hidden1Size; i++ {
		act.a1.SetVec(i, relu(act.z1.AtVec(i)))
	}

	if rng != nil && dropRate > 0 {
		keep := 1.0 - dropRate
		act.mask = make([]float64, hidden1Size)
		for i := range act.mask {
			if rng.Float64() < keep {
				act.mask[i] = 1.0 / keep
			}
			act.a1.SetVec(i, act.a1.AtVec(i)*act.mask[i])
		}
	}

	act.z2 = mat.NewVecDense(hidden2Size, nil)
	act.z2.MulVec(p.W2, act.a1)
	act.z2.AddVec(act.z2, p.B2)

	act.a2 = mat.NewVecDense(hidden2Size, nil)
	for i := 0; i < hidden2Size; i++ {
		act.a2.SetVec(i, relu(act.z2.AtVec(i)))
	}

	z3 := mat.NewVecDense(NumClasses, nil)
	z3.MulVec(p.W3, act.a2)
	z3.AddVec(z3, p.B3)

	act.probs = softmax(z3.RawVector().Data)
	return act
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// softmax converts raw scores into a probability distribution. The max is
// subtracted first for numerical stability.
func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the index of the largest value. Ties break to the lowest
// index.
func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
