package cli

import (
	"fmt"
	"log/slog"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/vitalkit/riskctl/pkg/data"
	"github.com/vitalkit/riskctl/pkg/ml"
)

var (
	epochsFlag = &urfave.IntFlag{
		Name:  "epochs",
		Usage: "Maximum number of training epochs (overrides config)",
	}

	seedFlag = &urfave.Int64Flag{
		Name:  "seed",
		Usage: "Random seed for split, init, and dropout (overrides config)",
	}

	validationFlag = &urfave.Float64Flag{
		Name:  "validation",
		Usage: "Fraction of samples held out for validation (overrides config)",
	}

	outFlag = &urfave.StringFlag{
		Name:  "out",
		Usage: "Path to write the trained model artifact (default: --model path)",
	}

	trainCmd = &urfave.Command{
		Name:   "train",
		Usage:  "Train the risk classifier on the stored dataset and save the artifact",
		Action: cmdTrain,
		Flags: []urfave.Flag{
			epochsFlag,
			seedFlag,
			validationFlag,
			outFlag,
		},
	}
)

// TrainResult is the encoded outcome of a training run.
type TrainResult struct {
	ModelID         string      `json:"model_id"`
	Path            string      `json:"path"`
	Samples         int         `json:"samples"`
	EpochsRun       int         `json:"epochs_run"`
	BestValAccuracy float64     `json:"best_val_accuracy"`
	Duration        string      `json:"duration"`
	History         []ml.Record `json:"history,omitempty"`
}

func cmdTrain(c *urfave.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	trainCfg := cfg.Conf.Training
	if c.IsSet(epochsFlag.Name) {
		trainCfg.Epochs = c.Int(epochsFlag.Name)
	}
	if c.IsSet(seedFlag.Name) {
		trainCfg.Seed = c.Int64(seedFlag.Name)
	}
	if c.IsSet(validationFlag.Name) {
		trainCfg.ValidationFraction = c.Float64(validationFlag.Name)
	}

	out := c.String(outFlag.Name)
	if out == "" {
		out = cfg.ModelPath
	}

	stored, err := data.GetSamples(cfg.DB)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}

	samples := make([]ml.Vitals, len(stored))
	labels := make([]ml.Label, len(stored))
	for i, s := range stored {
		samples[i] = s.Vitals
		labels[i] = s.Label
	}

	slog.Info("training", "samples", len(samples), "epochs", trainCfg.Epochs, "seed", trainCfg.Seed)
	model, err := ml.Train(samples, labels, trainCfg)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := model.Save(out); err != nil {
		return fmt.Errorf("saving model artifact: %w", err)
	}
	slog.Info("model saved", "path", out, "id", model.ID)

	res := &TrainResult{
		ModelID:   model.ID,
		Path:      out,
		Samples:   len(samples),
		EpochsRun: len(model.History),
		Duration:  time.Since(start).String(),
		History:   model.History,
	}
	for _, r := range model.History {
		if r.ValAccuracy > res.BestValAccuracy {
			res.BestValAccuracy = r.ValAccuracy
		}
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
