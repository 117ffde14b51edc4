package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalkit/riskctl/pkg/ml"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c1)

	// First read materializes the default training regime.
	assert.Equal(t, ml.DefaultConfig(), c1.Training)

	c1.Training.Epochs = 10
	c1.Training.Seed = 7
	c1.Training.ValidationFraction = 0.3

	err = Save(dir, c1)
	require.NoError(t, err)

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c2)
	assert.Equal(t, c1.Training.Epochs, c2.Training.Epochs)
	assert.Equal(t, c1.Training.Seed, c2.Training.Seed)
	assert.Equal(t, c1.Training.ValidationFraction, c2.Training.ValidationFraction)
}

func TestConfigErrors(t *testing.T) {
	_, err := ReadOrCreate("")
	assert.Error(t, err)

	assert.Error(t, Save("", &Config{}))
	assert.Error(t, Save(t.TempDir(), nil))
}

func TestGetOrCreateHomeDirEmptyName(t *testing.T) {
	_, _, err := GetOrCreateHomeDir("")
	assert.Error(t, err)
}
