package cli

import (
	"fmt"
	"log/slog"

	urfave "github.com/urfave/cli/v2"

	"github.com/vitalkit/riskctl/pkg/data"
)

var (
	resetFlag = &urfave.BoolFlag{
		Name:  "reset",
		Usage: "Delete all stored samples",
	}

	dataCmd = &urfave.Command{
		Name:   "data",
		Usage:  "Show the dataset store state (per-label counts and averages)",
		Action: cmdData,
		Flags: []urfave.Flag{
			resetFlag,
		},
	}
)

func cmdData(c *urfave.Context) error {
	cfg := getConfig(c)

	if c.Bool(resetFlag.Name) {
		if err := data.ClearSamples(cfg.DB); err != nil {
			return fmt.Errorf("clearing samples: %w", err)
		}
		slog.Info("dataset store cleared")
	}

	state, err := data.GetDataState(cfg.DB)
	if err != nil {
		return fmt.Errorf("reading dataset state: %w", err)
	}

	if err := encode(state); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
