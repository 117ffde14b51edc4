package ml

import "github.com/pkg/errors"

var (
	// ErrEmptyDataset indicates fit/train was called with no samples.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrDegenerateFeature indicates a feature with zero variance, which
	// would make standardization divide by zero.
	ErrDegenerateFeature = errors.New("feature has zero variance")

	// ErrInsufficientData indicates the dataset is too small to hold out
	// a non-empty validation split.
	ErrInsufficientData = errors.New("not enough samples for a validation split")

	// ErrInvalidFeature indicates a malformed inference input (non-finite
	// value or wrong arity).
	ErrInvalidFeature = errors.New("invalid feature value")

	// ErrArtifactMismatch indicates the scaler/model pairing of a persisted
	// artifact has been violated or the artifact is corrupt. Never tolerated:
	// a mismatched pair corrupts predictions without crashing.
	ErrArtifactMismatch = errors.New("artifact scaler/model mismatch")

	// ErrTrainingDiverged indicates training produced a non-finite loss.
	ErrTrainingDiverged = errors.New("training diverged: non-finite loss")
)
