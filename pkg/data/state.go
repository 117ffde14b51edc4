package data

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/vitalkit/riskctl/pkg/ml"
)

const selectLabelStatsSQL = `SELECT
		label,
		COUNT(*) AS cnt,
		AVG(heart_rate) AS avg_hr,
		AVG(spo2) AS avg_spo2,
		AVG(blood_pressure) AS avg_bp,
		AVG(temperature) AS avg_temp
	FROM sample
	GROUP BY label
	ORDER BY label`

// LabelStat summarizes the stored samples for one risk category.
type LabelStat struct {
	Label            ml.Label `json:"label"`
	Class            string   `json:"class"`
	Count            int64    `json:"count"`
	AvgHeartRate     float64  `json:"avg_heart_rate"`
	AvgSpO2          float64  `json:"avg_spo2"`
	AvgBloodPressure float64  `json:"avg_blood_pressure"`
	AvgTemperature   float64  `json:"avg_temperature"`
}

// DataState is the current shape of the dataset store.
type DataState struct {
	Samples int64        `json:"samples"`
	Labels  []*LabelStat `json:"labels,omitempty"`
}

// GetDataState returns the total sample count and per-label aggregates.
func GetDataState(db *sql.DB) (*DataState, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := &DataState{}
	if err := db.QueryRow("SELECT COUNT(*) FROM sample").Scan(&state.Samples); err != nil {
		return nil, errors.Wrap(err, "failed to count samples")
	}

	rows, err := db.Query(selectLabelStatsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query label stats")
	}
	defer rows.Close()

	for rows.Next() {
		s := &LabelStat{}
		var label int
		if err := rows.Scan(&label, &s.Count, &s.AvgHeartRate, &s.AvgSpO2, &s.AvgBloodPressure, &s.AvgTemperature); err != nil {
			return nil, errors.Wrap(err, "failed to scan label stat row")
		}
		s.Label = ml.Label(label)
		s.Class = s.Label.String()
		state.Labels = append(state.Labels, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate label stat rows")
	}

	return state, nil
}
