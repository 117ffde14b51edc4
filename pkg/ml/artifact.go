package ml

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const artifactFileMode = 0600

// Model is the trained artifact: the scaler and the network parameters
// are one value so they can never be paired with a different dataset's
// counterpart. Produced by Train, frozen thereafter.
type Model struct {
	ID        string
	CreatedAt time.Time
	Classes   [NumClasses]string
	Scaler    ScalerState
	params    *Parameters

	// History is the per-epoch training record. Kept in memory for
	// reporting; not part of the persisted artifact.
	History []Record
}

type layerJSON struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

type modelJSON struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Classes   [NumClasses]string `json:"classes"`
	Scaler    ScalerState        `json:"scaler"`
	Layers    []layerJSON        `json:"layers"`
	Checksum  string             `json:"checksum"`
}

// Save writes the artifact to path as JSON. The encoding round-trips
// float64 values exactly, so a saved and reloaded model produces
// identical predictions.
func (m *Model) Save(path string) error {
	if m.params == nil {
		return errors.Wrap(ErrArtifactMismatch, "refusing to save model without trained parameters")
	}

	doc := modelJSON{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Classes:   m.Classes,
		Scaler:    m.Scaler,
		Layers: []layerJSON{
			{Weights: denseRows(m.params.W1), Biases: vecData(m.params.B1)},
			{Weights: denseRows(m.params.W2), Biases: vecData(m.params.B2)},
			{Weights: denseRows(m.params.W3), Biases: vecData(m.params.B3)},
		},
	}
	doc.Checksum = checksum(&doc)

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal model")
	}
	if err := os.WriteFile(path, b, artifactFileMode); err != nil {
		return errors.Wrapf(err, "failed to write model file: %s", path)
	}
	return nil
}

// LoadModel reads an artifact written by Save. The embedded checksum
// covers both the scaler and the weights; any corruption or hand-edited
// re-pairing fails with ErrArtifactMismatch rather than silently
// producing wrong predictions.
func LoadModel(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model file: %s", path)
	}

	var doc modelJSON
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal model file: %s", path)
	}

	if got := checksum(&doc); got != doc.Checksum {
		return nil, errors.Wrapf(ErrArtifactMismatch, "checksum %s does not match stored %s", got, doc.Checksum)
	}

	params, err := paramsFromLayers(doc.Layers)
	if err != nil {
		return nil, err
	}

	return &Model{
		ID:        doc.ID,
		CreatedAt: doc.CreatedAt,
		Classes:   doc.Classes,
		Scaler:    doc.Scaler,
		params:    params,
	}, nil
}

var layerShapes = [3][2]int{
	{hidden1Size, NumFeatures},
	{hidden2Size, hidden1Size},
	{NumClasses, hidden2Size},
}

func paramsFromLayers(layers []layerJSON) (*Parameters, error) {
	if len(layers) != len(layerShapes) {
		return nil, errors.Wrapf(ErrArtifactMismatch, "expected %d layers, got %d", len(layerShapes), len(layers))
	}

	dense := make([]*mat.Dense, len(layers))
	vecs := make([]*mat.VecDense, len(layers))
	for i, l := range layers {
		rows, cols := layerShapes[i][0], layerShapes[i][1]
		if len(l.Weights) != rows || len(l.Biases) != rows {
			return nil, errors.Wrapf(ErrArtifactMismatch, "layer %d has wrong shape", i)
		}
		data := make([]float64, 0, rows*cols)
		for _, row := range l.Weights {
			if len(row) != cols {
				return nil, errors.Wrapf(ErrArtifactMismatch, "layer %d has wrong row width", i)
			}
			data = append(data, row...)
		}
		dense[i] = mat.NewDense(rows, cols, data)
		vecs[i] = mat.NewVecDense(rows, append([]float64(nil), l.Biases...))
	}

	return &Parameters{
		W1: dense[0], B1: vecs[0],
		W2: dense[1], B2: vecs[1],
		W3: dense[2], B3: vecs[2],
	}, nil
}

// checksum hashes the class names, the scaler statistics, and every
// weight together, making the class/scaler/model pairing tamper-evident.
func checksum(doc *modelJSON) string {
	h := sha256.New()
	writeFloats := func(fs []float64) {
		var buf [8]byte
		for _, f := range fs {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
			h.Write(buf[:])
		}
	}
	for _, c := range doc.Classes {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	writeFloats(doc.Scaler.Mean[:])
	writeFloats(doc.Scaler.Std[:])
	for _, l := range doc.Layers {
		for _, row := range l.Weights {
			writeFloats(row)
		}
		writeFloats(l.Biases)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func denseRows(d *mat.Dense) [][]float64 {
	rows, cols := d.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		mat.Row(row, i, d)
		out[i] = row
	}
	return out
}

func vecData(v *mat.VecDense) []float64 {
	return append([]float64(nil), v.RawVector().Data...)
}
