package cli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/vitalkit/riskctl/pkg/ml"
)

var (
	heartRateFlag = &urfave.Float64Flag{
		Name:     "hr",
		Usage:    "Heart rate (bpm)",
		Required: true,
	}

	spo2Flag = &urfave.Float64Flag{
		Name:     "spo2",
		Usage:    "Blood-oxygen saturation (%)",
		Required: true,
	}

	bloodPressureFlag = &urfave.Float64Flag{
		Name:     "bp",
		Usage:    "Systolic blood pressure (mmHg)",
		Required: true,
	}

	temperatureFlag = &urfave.Float64Flag{
		Name:     "temp",
		Usage:    "Body temperature (C)",
		Required: true,
	}

	ageFlag = &urfave.Float64Flag{
		Name:  "age",
		Usage: "Age in years, used to adjust the heart-rate baseline (optional)",
	}

	predictCmd = &urfave.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Predict the risk category for a single set of vitals",
		UsageText: `riskctl predict --hr 75 --spo2 98 --bp 120 --temp 36.6
   riskctl predict --hr 98 --spo2 92 --bp 135 --temp 38.4 --age 67`,
		Action: cmdPredict,
		Flags: []urfave.Flag{
			heartRateFlag,
			spo2Flag,
			bloodPressureFlag,
			temperatureFlag,
			ageFlag,
		},
	}
)

// PredictResult is the encoded outcome of a single prediction.
type PredictResult struct {
	ModelID    string         `json:"model_id"`
	Input      ml.Vitals      `json:"input"`
	Age        float64        `json:"age,omitempty"`
	Prediction *ml.Prediction `json:"prediction"`
}

func cmdPredict(c *urfave.Context) error {
	cfg := getConfig(c)

	model, err := ml.LoadModel(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("loading model artifact (run train first?): %w", err)
	}

	vitals := ml.Vitals{
		HeartRate:     c.Float64(heartRateFlag.Name),
		SpO2:          c.Float64(spo2Flag.Name),
		BloodPressure: c.Float64(bloodPressureFlag.Name),
		Temperature:   c.Float64(temperatureFlag.Name),
	}

	age := c.Float64(ageFlag.Name)
	adjusted := ml.AdjustForAge(vitals, age)

	pred, err := model.Predict(adjusted)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	res := &PredictResult{
		ModelID:    model.ID,
		Input:      vitals,
		Age:        age,
		Prediction: pred,
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
