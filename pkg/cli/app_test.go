package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	app := newApp()
	require.NotNil(t, app)
	assert.Equal(t, appName, app.Name)

	want := []string{"import", "train", "predict", "evaluate", "data", "server"}
	var got []string
	for _, cmd := range app.Commands {
		got = append(got, cmd.Name)
	}
	assert.Equal(t, want, got)

	var flagNames []string
	for _, f := range app.Flags {
		flagNames = append(flagNames, f.Names()[0])
	}
	assert.Contains(t, flagNames, "debug")
	assert.Contains(t, flagNames, "db")
	assert.Contains(t, flagNames, "model")
	assert.Contains(t, flagNames, "format")
}

func TestLabelColors(t *testing.T) {
	// One banner color per risk category.
	for _, c := range labelColors {
		assert.NotEmpty(t, c)
	}
}
