package ml

import "github.com/pkg/errors"

// Prediction is the outcome of a single inference call: the winning
// category, its probability, and the full per-class distribution.
type Prediction struct {
	Label         Label               `json:"label"`
	Class         string              `json:"class"`
	Confidence    float64             `json:"confidence"`
	Probabilities [NumClasses]float64 `json:"probabilities"`
	Explanation   string              `json:"explanation"`
}

// Predict standardizes the vitals with the model's frozen scaler and runs
// a forward pass with dropout disabled. Pure function of (model, vitals):
// identical inputs always yield identical outputs. Safe for concurrent
// use against a trained model.
func (m *Model) Predict(v Vitals) (*Prediction, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if m.params == nil {
		return nil, errors.Wrap(ErrArtifactMismatch, "model has no trained parameters")
	}

	act := m.params.forward(m.Scaler.Transform(v), nil, 0)

	// Ties break to the lowest class index.
	idx := argmax(act.probs)
	p := &Prediction{
		Label:       Label(idx),
		Class:       m.Classes[idx],
		Confidence:  act.probs[idx],
		Explanation: Label(idx).Explanation(),
	}
	copy(p.Probabilities[:], act.probs)
	return p, nil
}
