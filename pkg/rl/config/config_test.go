package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultHyperparametersMatchSpecReference(t *testing.T) {
	h := DefaultHyperparameters()
	assert.Equal(t, 6, h.MaxDepth)
	assert.Equal(t, 0.1, h.LearningRate)
	assert.Equal(t, 10, h.TreesPerUpdate)
	assert.Equal(t, 2000, h.MaxTotalTrees)
	assert.Equal(t, "reg:absoluteerror", h.Objective)
}

func TestLoadHyperparametersFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("RL_MAX_DEPTH", "8")
	os.Setenv("RL_ETA", "0.25")
	defer os.Unsetenv("RL_MAX_DEPTH")
	defer os.Unsetenv("RL_ETA")

	h := LoadHyperparametersFromEnv()
	assert.Equal(t, 8, h.MaxDepth)
	assert.Equal(t, 0.25, h.LearningRate)
}

func TestLoadHyperparametersFromEnvFallsBackOnInvalidValue(t *testing.T) {
	os.Setenv("RL_MAX_DEPTH", "not-a-number")
	defer os.Unsetenv("RL_MAX_DEPTH")

	h := LoadHyperparametersFromEnv()
	assert.Equal(t, DefaultHyperparameters().MaxDepth, h.MaxDepth)
}

func TestLoadHyperparametersFromEnvRejectsNonPositiveInt(t *testing.T) {
	os.Setenv("RL_TREES_PER_UPDATE", "0")
	defer os.Unsetenv("RL_TREES_PER_UPDATE")

	h := LoadHyperparametersFromEnv()
	assert.Equal(t, DefaultHyperparameters().TreesPerUpdate, h.TreesPerUpdate)
}

func TestLoadHyperparametersFromEnvRejectsNegativeFloat(t *testing.T) {
	os.Setenv("RL_SUBSAMPLE", "-0.5")
	defer os.Unsetenv("RL_SUBSAMPLE")

	h := LoadHyperparametersFromEnv()
	assert.Equal(t, DefaultHyperparameters().Subsample, h.Subsample)
}
