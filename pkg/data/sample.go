package data

import (
	"database/sql"
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vitalkit/riskctl/pkg/ml"
)

const (
	// SourceImport marks samples loaded from a CSV file.
	SourceImport = "import"
	// SourceSynthetic marks generated samples.
	SourceSynthetic = "synthetic"

	csvColumns = 5
)

// Sample is one labeled vital-sign measurement in the dataset store.
type Sample struct {
	ID     int64     `json:"id,omitempty"`
	Vitals ml.Vitals `json:"vitals"`
	Label  ml.Label  `json:"label"`
	Source string    `json:"source,omitempty"`
}

// ImportSummary reports the outcome of a dataset import.
type ImportSummary struct {
	Rows     int `json:"rows"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// SaveSamples inserts samples in a single transaction.
func SaveSamples(db *sql.DB, samples []*Sample) error {
	if db == nil {
		return errDBNotInitialized
	}

	stmt, err := db.Prepare(`INSERT INTO sample
		(heart_rate, spo2, blood_pressure, temperature, label, source)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare sample insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	for _, s := range samples {
		v := s.Vitals
		_, err = tx.Stmt(stmt).Exec(v.HeartRate, v.SpO2, v.BloodPressure, v.Temperature, int(s.Label), s.Source)
		if err != nil {
			if err = tx.Rollback(); err != nil {
				return errors.Wrap(err, "failed to rollback transaction")
			}
			return errors.Wrap(err, "failed to insert sample")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// GetSamples returns all stored samples in insertion order.
func GetSamples(db *sql.DB) ([]*Sample, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(`SELECT id, heart_rate, spo2, blood_pressure, temperature, label, source
		FROM sample ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query samples")
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		s := &Sample{}
		var label int
		if err := rows.Scan(&s.ID, &s.Vitals.HeartRate, &s.Vitals.SpO2, &s.Vitals.BloodPressure,
			&s.Vitals.Temperature, &label, &s.Source); err != nil {
			return nil, errors.Wrap(err, "failed to scan sample row")
		}
		s.Label = ml.Label(label)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sample rows")
	}

	return samples, nil
}

// ClearSamples deletes all stored samples.
func ClearSamples(db *sql.DB) error {
	if db == nil {
		return errDBNotInitialized
	}
	if _, err := db.Exec("DELETE FROM sample"); err != nil {
		return errors.Wrap(err, "failed to clear samples")
	}
	return nil
}

// ImportCSV loads a dataset file with columns HeartRate, SpO2,
// BloodPressure, Temperature, Label (0-3) into the store. A header row is
// detected and skipped; malformed rows are counted, not fatal.
func ImportCSV(db *sql.DB, path string) (*ImportSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset file: %s", path)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	res := &ImportSummary{}
	var samples []*Sample
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read dataset file: %s", path)
		}
		res.Rows++

		s, ok := parseRow(rec)
		if !ok {
			// First unparsable row is usually the header.
			res.Skipped++
			continue
		}
		samples = append(samples, s)
	}

	if err := SaveSamples(db, samples); err != nil {
		return nil, err
	}

	res.Imported = len(samples)
	return res, nil
}

func parseRow(rec []string) (*Sample, bool) {
	if len(rec) != csvColumns {
		return nil, false
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}

	label, err := strconv.Atoi(rec[4])
	if err != nil || !ml.Label(label).Valid() {
		return nil, false
	}

	return &Sample{
		Vitals: ml.Vitals{
			HeartRate:     vals[0],
			SpO2:          vals[1],
			BloodPressure: vals[2],
			Temperature:   vals[3],
		},
		Label:  ml.Label(label),
		Source: SourceImport,
	}, true
}

// vitalsProfile is the per-class distribution used for synthetic data.
type vitalsProfile struct {
	hr, hrSD     float64
	spo2, spo2SD float64
	bp, bpSD     float64
	temp, tempSD float64
}

var classProfiles = [ml.NumClasses]vitalsProfile{
	ml.LabelNormal:         {hr: 75, hrSD: 8, spo2: 98, spo2SD: 1, bp: 118, bpSD: 8, temp: 36.7, tempSD: 0.3},
	ml.LabelCardiovascular: {hr: 108, hrSD: 12, spo2: 96, spo2SD: 1.5, bp: 158, bpSD: 12, temp: 36.9, tempSD: 0.3},
	ml.LabelRespiratory:    {hr: 95, hrSD: 10, spo2: 89, spo2SD: 2.5, bp: 124, bpSD: 10, temp: 37.1, tempSD: 0.4},
	ml.LabelFever:          {hr: 100, hrSD: 10, spo2: 95, spo2SD: 1.5, bp: 120, bpSD: 10, temp: 38.8, tempSD: 0.6},
}

// GenerateSynthetic produces n labeled samples drawn from plausible
// per-class vitals distributions, cycling through the classes so the
// dataset stays balanced. Deterministic for a given seed.
func GenerateSynthetic(n int, seed int64) []*Sample {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // demo data, not crypto

	samples := make([]*Sample, 0, n)
	for i := 0; i < n; i++ {
		label := ml.Label(i % ml.NumClasses)
		p := classProfiles[label]

		spo2 := p.spo2 + rng.NormFloat64()*p.spo2SD
		if spo2 > 100 {
			spo2 = 100
		}

		samples = append(samples, &Sample{
			Vitals: ml.Vitals{
				HeartRate:     p.hr + rng.NormFloat64()*p.hrSD,
				SpO2:          spo2,
				BloodPressure: p.bp + rng.NormFloat64()*p.bpSD,
				Temperature:   p.temp + rng.NormFloat64()*p.tempSD,
			},
			Label:  label,
			Source: SourceSynthetic,
		})
	}
	return samples
}
