package cli

import (
	"fmt"
	"runtime"
	"time"

	urfave "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vitalkit/riskctl/pkg/data"
	"github.com/vitalkit/riskctl/pkg/ml"
)

var evaluateCmd = &urfave.Command{
	Name:    "evaluate",
	Aliases: []string{"eval"},
	Usage:   "Evaluate the saved model against the stored dataset",
	Action:  cmdEvaluate,
}

// EvalResult is the encoded outcome of a model evaluation.
type EvalResult struct {
	ModelID   string                            `json:"model_id"`
	Samples   int                               `json:"samples"`
	Correct   int                               `json:"correct"`
	Accuracy  float64                           `json:"accuracy"`
	Confusion [ml.NumClasses][ml.NumClasses]int `json:"confusion"` // [actual][predicted]
	Duration  string                            `json:"duration"`
}

func cmdEvaluate(c *urfave.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	model, err := ml.LoadModel(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("loading model artifact: %w", err)
	}

	stored, err := data.GetSamples(cfg.DB)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}
	if len(stored) == 0 {
		return fmt.Errorf("no samples to evaluate, run import first")
	}

	// Inference is a pure function of the frozen model, so the samples can
	// be scored in parallel. Each goroutine writes only its own slot.
	predicted := make([]ml.Label, len(stored))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, s := range stored {
		g.Go(func() error {
			p, err := model.Predict(s.Vitals)
			if err != nil {
				return fmt.Errorf("sample %d: %w", s.ID, err)
			}
			predicted[i] = p.Label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	res := &EvalResult{
		ModelID: model.ID,
		Samples: len(stored),
	}
	for i, s := range stored {
		res.Confusion[s.Label][predicted[i]]++
		if predicted[i] == s.Label {
			res.Correct++
		}
	}
	res.Accuracy = float64(res.Correct) / float64(res.Samples)
	res.Duration = time.Since(start).String()

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
