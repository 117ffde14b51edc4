package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalkit/riskctl/pkg/ml"
)

func TestGetDataStateEmpty(t *testing.T) {
	db := getTestDB(t)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Samples)
	assert.Empty(t, state.Labels)
}

func TestGetDataState(t *testing.T) {
	db := getTestDB(t)

	samples := []*Sample{
		{Vitals: ml.Vitals{HeartRate: 70, SpO2: 98, BloodPressure: 116, Temperature: 36.6}, Label: ml.LabelNormal, Source: SourceImport},
		{Vitals: ml.Vitals{HeartRate: 80, SpO2: 98, BloodPressure: 120, Temperature: 36.8}, Label: ml.LabelNormal, Source: SourceImport},
		{Vitals: ml.Vitals{HeartRate: 100, SpO2: 95, BloodPressure: 120, Temperature: 39.0}, Label: ml.LabelFever, Source: SourceImport},
	}
	require.NoError(t, SaveSamples(db, samples))

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Samples)
	require.Len(t, state.Labels, 2)

	normal := state.Labels[0]
	assert.Equal(t, ml.LabelNormal, normal.Label)
	assert.Equal(t, "Normal", normal.Class)
	assert.Equal(t, int64(2), normal.Count)
	assert.InDelta(t, 75, normal.AvgHeartRate, 1e-9)
	assert.InDelta(t, 118, normal.AvgBloodPressure, 1e-9)

	fever := state.Labels[1]
	assert.Equal(t, ml.LabelFever, fever.Label)
	assert.Equal(t, int64(1), fever.Count)
	assert.InDelta(t, 39.0, fever.AvgTemperature, 1e-9)
}

func TestGetDataStateNilDB(t *testing.T) {
	_, err := GetDataState(nil)
	assert.Error(t, err)
}
