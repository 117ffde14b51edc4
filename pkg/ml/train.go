package ml

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const lossEpsilon = 1e-12

// Config holds the training hyperparameters. The defaults mirror the
// regime the model was designed with; all of them are configuration, not
// constants.
type Config struct {
	Epochs             int     `json:"epochs" yaml:"epochs"`
	BatchSize          int     `json:"batch_size" yaml:"batch_size"`
	LearningRate       float64 `json:"learning_rate" yaml:"learning_rate"`
	ValidationFraction float64 `json:"validation_fraction" yaml:"validation_fraction"`
	DropoutRate        float64 `json:"dropout_rate" yaml:"dropout_rate"`
	Patience           int     `json:"patience" yaml:"patience"`
	Seed               int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the standard training configuration: up to 50
// epochs of Adam (lr=0.001) on minibatches of 16, a 0.2 validation split
// (seed 42), and early stopping after 5 epochs without validation
// accuracy improvement.
func DefaultConfig() Config {
	return Config{
		Epochs:             50,
		BatchSize:          16,
		LearningRate:       0.001,
		ValidationFraction: 0.2,
		DropoutRate:        DefaultDropoutRate,
		Patience:           5,
		Seed:               42,
	}
}

// Record is one epoch of training history. Used to drive early stopping;
// not persisted with the artifact.
type Record struct {
	Epoch       int     `json:"epoch"`
	TrainLoss   float64 `json:"train_loss"`
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
}

// Train fits the scaler and the classifier on the given samples as a
// single atomic artifact. It holds out a validation split, minimizes
// sparse categorical cross-entropy with Adam, and early-stops on
// validation accuracy, restoring the best snapshot seen.
func Train(samples []Vitals, labels []Label, cfg Config) (*Model, error) {
	if cfg.Epochs < 1 || cfg.BatchSize < 1 || cfg.Patience < 1 || cfg.LearningRate <= 0 {
		return nil, errors.Errorf("invalid training config: epochs=%d batch=%d patience=%d lr=%v",
			cfg.Epochs, cfg.BatchSize, cfg.Patience, cfg.LearningRate)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(samples) != len(labels) {
		return nil, errors.Errorf("sample/label count mismatch: %d != %d", len(samples), len(labels))
	}
	for i, l := range labels {
		if !l.Valid() {
			return nil, errors.Errorf("sample %d has invalid label: %d", i, int(l))
		}
	}
	for i, s := range samples {
		if err := s.Validate(); err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible training, not crypto

	trainIdx, valIdx, err := split(len(samples), cfg.ValidationFraction, rng)
	if err != nil {
		return nil, err
	}

	// Standardization statistics come from the training split only.
	trainSamples := make([]Vitals, len(trainIdx))
	for i, idx := range trainIdx {
		trainSamples[i] = samples[idx]
	}
	scaler, err := FitScaler(trainSamples)
	if err != nil {
		return nil, err
	}

	trainX, trainY := standardize(scaler, samples, labels, trainIdx)
	valX, valY := standardize(scaler, samples, labels, valIdx)

	params := newParameters(rng)
	opt := newAdam(cfg.LearningRate)
	grads := newGradBuf()

	var (
		history    []Record
		best       *Parameters
		bestAcc    = math.Inf(-1)
		sinceBest  int
		batchOrder = make([]int, len(trainX))
	)
	for i := range batchOrder {
		batchOrder[i] = i
	}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		rng.Shuffle(len(batchOrder), func(i, j int) {
			batchOrder[i], batchOrder[j] = batchOrder[j], batchOrder[i]
		})

		var trainLoss float64
		for start := 0; start < len(batchOrder); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(batchOrder) {
				end = len(batchOrder)
			}

			grads.zero()
			for _, i := range batchOrder[start:end] {
				act := params.forward(trainX[i], rng, cfg.DropoutRate)
				trainLoss += crossEntropy(act.probs, trainY[i])
				accumulateGradients(params, grads, act, trainY[i])
			}
			opt.step(params, grads, float64(end-start))
		}
		trainLoss /= float64(len(trainX))

		valLoss, valAcc := evaluateSplit(params, valX, valY)

		if !isFinite(trainLoss) || !isFinite(valLoss) {
			return nil, errors.Wrapf(ErrTrainingDiverged, "epoch %d: train=%v val=%v", epoch, trainLoss, valLoss)
		}

		history = append(history, Record{
			Epoch:       epoch,
			TrainLoss:   trainLoss,
			ValLoss:     valLoss,
			ValAccuracy: valAcc,
		})
		slog.Debug("epoch complete", "epoch", epoch, "train_loss", trainLoss, "val_loss", valLoss, "val_accuracy", valAcc)

		if valAcc > bestAcc {
			bestAcc = valAcc
			best = params.clone()
			sinceBest = 0
		} else {
			sinceBest++
			if sinceBest >= cfg.Patience {
				slog.Debug("early stopping", "epoch", epoch, "best_val_accuracy", bestAcc)
				break
			}
		}
	}

	// Restore the best-validation snapshot, not the last epoch's weights.
	if best != nil {
		params = best
	}

	return &Model{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Classes:   ClassNames(),
		Scaler:    *scaler,
		params:    params,
		History:   history,
	}, nil
}

// split returns shuffled train/validation index sets. Fails with
// ErrInsufficientData when either side would be empty.
func split(n int, fraction float64, rng *rand.Rand) (train, val []int, err error) {
	valN := int(float64(n) * fraction)
	if valN < 1 || n-valN < 1 {
		return nil, nil, errors.Wrapf(ErrInsufficientData, "%d samples with validation fraction %v", n, fraction)
	}

	idx := rng.Perm(n)
	return idx[valN:], idx[:valN], nil
}

func standardize(s *ScalerState, samples []Vitals, labels []Label, idx []int) ([][NumFeatures]float64, []Label) {
	xs := make([][NumFeatures]float64, len(idx))
	ys := make([]Label, len(idx))
	for i, j := range idx {
		xs[i] = s.Transform(samples[j])
		ys[i] = labels[j]
	}
	return xs, ys
}

// crossEntropy is the sparse categorical cross-entropy of one prediction
// against an integer class index.
func crossEntropy(probs []float64, label Label) float64 {
	return -math.Log(math.Max(probs[label], lossEpsilon))
}

// evaluateSplit computes mean loss and accuracy with dropout disabled.
func evaluateSplit(p *Parameters, xs [][NumFeatures]float64, ys []Label) (loss, accuracy float64) {
	var correct int
	for i, x := range xs {
		act := p.forward(x, nil, 0)
		loss += crossEntropy(act.probs, ys[i])
		if Label(argmax(act.probs)) == ys[i] {
			correct++
		}
	}
	return loss / float64(len(xs)), float64(correct) / float64(len(xs))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// gradBuf accumulates parameter gradients over a minibatch.
type gradBuf struct {
	W1, W2, W3 *mat.Dense
	B1, B2, B3 *mat.VecDense
}

func newGradBuf() *gradBuf {
	return &gradBuf{
		W1: mat.NewDense(hidden1Size, NumFeatures, nil),
		B1: mat.NewVecDense(hidden1Size, nil),
		W2: mat.NewDense(hidden2Size, hidden1Size, nil),
		B2: mat.NewVecDense(hidden2Size, nil),
		W3: mat.NewDense(NumClasses, hidden2Size, nil),
		B3: mat.NewVecDense(NumClasses, nil),
	}
}

func (g *gradBuf) zero() {
	g.W1.Zero()
	g.B1.Zero()
	g.W2.Zero()
	g.B2.Zero()
	g.W3.Zero()
	g.B3.Zero()
}

// accumulateGradients backpropagates one sample through the cached
// activations, adding its gradients into the buffer.
func accumulateGradients(p *Parameters, g *gradBuf, act *activations, label Label) {
	// Output layer: softmax + cross-entropy gives dz3 = probs - onehot(y).
	dz3 := make([]float64, NumClasses)
	copy(dz3, act.probs)
	dz3[label]--

	for i := 0; i < NumClasses; i++ {
		g.B3.SetVec(i, g.B3.AtVec(i)+dz3[i])
		for j := 0; j < hidden2Size; j++ {
			g.W3.Set(i, j, g.W3.At(i, j)+dz3[i]*act.a2.AtVec(j))
		}
	}

	dz2 := make([]float64, hidden2Size)
	for j := 0; j < hidden2Size; j++ {
		if act.z2.AtVec(j) <= 0 {
			continue
		}
		var sum float64
		for i := 0; i < NumClasses; i++ {
			sum += p.W3.At(i, j) * dz3[i]
		}
		dz2[j] = sum
	}

	for i := 0; i < hidden2Size; i++ {
		g.B2.SetVec(i, g.B2.AtVec(i)+dz2[i])
		for j := 0; j < hidden1Size; j++ {
			g.W2.Set(i, j, g.W2.At(i, j)+dz2[i]*act.a1.AtVec(j))
		}
	}

	dz1 := make([]float64, hidden1Size)
	for j := 0; j < hidden1Size; j++ {
		if act.z1.AtVec(j) <= 0 {
			continue
		}
		var sum float64
		for i := 0; i < hidden2Size; i++ {
			sum += p.W2.At(i, j) * dz2[i]
		}
		if act.mask != nil {
			sum *= act.mask[j]
		}
		dz1[j] = sum
	}

	for i := 0; i < hidden1Size; i++ {
		g.B1.SetVec(i, g.B1.AtVec(i)+dz1[i])
		for j := 0; j < NumFeatures; j++ {
			g.W1.Set(i, j, g.W1.At(i, j)+dz1[i]*act.x.AtVec(j))
		}
	}
}

// adam is the adaptive moment estimation optimizer.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  *gradBuf
}

func newAdam(lr float64) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
		m:     newGradBuf(),
		v:     newGradBuf(),
	}
}

// step applies one bias-corrected Adam update from minibatch-averaged
// gradients.
func (o *adam) step(p *Parameters, g *gradBuf, batchSize float64) {
	o.t++
	o.apply(p.W1.RawMatrix().Data, g.W1.RawMatrix().Data, o.m.W1.RawMatrix().Data, o.v.W1.RawMatrix().Data, batchSize)
	o.apply(p.B1.RawVector().Data, g.B1.RawVector().Data, o.m.B1.RawVector().Data, o.v.B1.RawVector().Data, batchSize)
	o.apply(p.W2.RawMatrix().Data, g.W2.RawMatrix().Data, o.m.W2.RawMatrix().Data, o.v.W2.RawMatrix().Data, batchSize)
	o.apply(p.B2.RawVector().Data, g.B2.RawVector().Data, o.m.B2.RawVector().Data, o.v.B2.RawVector().Data, batchSize)
	o.apply(p.W3.RawMatrix().Data, g.W3.RawMatrix().Data, o.m.W3.RawMatrix().Data, o.v.W3.RawMatrix().Data, batchSize)
	o.apply(p.B3.RawVector().Data, g.B3.RawVector().Data, o.m.B3.RawVector().Data, o.v.B3.RawVector().Data, batchSize)
}

func (o *adam) apply(w, g, m, v []float64, batchSize float64) {
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))
	for i := range w {
		grad := g[i] / batchSize
		m[i] = o.beta1*m[i] + (1-o.beta1)*grad
		v[i] = o.beta2*v[i] + (1-o.beta2)*grad*grad
		w[i] -= o.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + o.eps)
	}
}
