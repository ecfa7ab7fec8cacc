// Package config resolves the RL_* hyperparameter environment variables into
// a Hyperparameters struct, following the struct-of-scalars-plus-Default
// pattern of the host engine's own config package and the
// os.Getenv-with-fallback idiom of its hardware-profile detector.
package config

import (
	"os"
	"strconv"

	"github.com/ao2395/XGDuckDB/pkg/rl/logging"
)

// Hyperparameters are the GBT model's fixed-at-construction tunables.
// Field names and defaults mirror spec §6 exactly.
type Hyperparameters struct {
	MaxDepth         int     // RL_MAX_DEPTH
	LearningRate     float64 // RL_ETA
	TreesPerUpdate   int     // RL_TREES_PER_UPDATE
	Subsample        float64 // RL_SUBSAMPLE
	ColsampleByTree  float64 // RL_COLSAMPLE_BYTREE
	MinChildWeight   int     // RL_MIN_CHILD_WEIGHT
	MaxTotalTrees    int     // RL_MAX_TOTAL_TREES
	Objective        string  // RL_OBJECTIVE
	L2               float64 // RL_LAMBDA
	L1               float64 // RL_ALPHA
	Gamma            float64 // RL_GAMMA
	TreeMethod       string  // fixed: "exact"
	Verbosity        int     // fixed: 0
	SwapEveryUpdates int     // RL_SWAP_EVERY_N_UPDATES
}

// DefaultHyperparameters returns the reference defaults from spec §4.B/§6.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		MaxDepth:         6,
		LearningRate:     0.1,
		TreesPerUpdate:   10,
		Subsample:        0.8,
		ColsampleByTree:  0.8,
		MinChildWeight:   3,
		MaxTotalTrees:    2000,
		Objective:        "reg:absoluteerror",
		L2:               1.0,
		L1:               0,
		Gamma:            0,
		TreeMethod:       "exact",
		Verbosity:        0,
		SwapEveryUpdates: 5,
	}
}

// LoadHyperparametersFromEnv resolves RL_* environment variables over the
// defaults. An invalid value for a variable is a ConfigError per spec §7:
// the default is kept and a single warning is logged; construction never
// fails because of bad env input.
func LoadHyperparametersFromEnv() Hyperparameters {
	h := DefaultHyperparameters()

	h.MaxDepth = envInt("RL_MAX_DEPTH", h.MaxDepth)
	h.LearningRate = envFloat("RL_ETA", h.LearningRate)
	h.TreesPerUpdate = envInt("RL_TREES_PER_UPDATE", h.TreesPerUpdate)
	h.Subsample = envFloat("RL_SUBSAMPLE", h.Subsample)
	h.ColsampleByTree = envFloat("RL_COLSAMPLE_BYTREE", h.ColsampleByTree)
	h.MinChildWeight = envInt("RL_MIN_CHILD_WEIGHT", h.MinChildWeight)
	h.MaxTotalTrees = envInt("RL_MAX_TOTAL_TREES", h.MaxTotalTrees)
	h.Objective = envString("RL_OBJECTIVE", h.Objective)
	h.L2 = envFloat("RL_LAMBDA", h.L2)
	h.L1 = envFloat("RL_ALPHA", h.L1)
	h.Gamma = envFloat("RL_GAMMA", h.Gamma)
	h.SwapEveryUpdates = envInt("RL_SWAP_EVERY_N_UPDATES", h.SwapEveryUpdates)

	return h
}

func envString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		logging.Errorf("invalid value %q for %s, using default %d\n", v, name, fallback)
		return fallback
	}
	return parsed
}

func envFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed < 0 {
		logging.Errorf("invalid value %q for %s, using default %.4f\n", v, name, fallback)
		return fallback
	}
	return parsed
}
