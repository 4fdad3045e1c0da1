package config

import (
	"sort"
	"time"
)

// Presets are optimizer settings by effort level. They leave the model,
// regime and backstop untouched.
var Presets = map[string]OptimizerConfig{
	"quick": {
		Algorithm: "nelder-mead", Periods: 5, StopTime: 10 * time.Second,
		RelTolerance: 1e-4, StallIterations: 10, Starts: 1, Seed: 1, GridPoints: 5,
	},
	"standard": {
		Algorithm: "nelder-mead", Periods: 10, StopTime: time.Minute,
		RelTolerance: 1e-6, StallIterations: 20, Starts: 1, Seed: 1, GridPoints: 5,
	},
	"thorough": {
		Algorithm: "nelder-mead", Periods: 20, StopTime: 10 * time.Minute,
		RelTolerance: 1e-8, StallIterations: 50, Starts: 4, Seed: 1, GridPoints: 5,
	},
	"cmaes": {
		Algorithm: "cmaes", Periods: 20, StopTime: 5 * time.Minute,
		RelTolerance: 1e-8, StallIterations: 50, Starts: 1, Seed: 7, GridPoints: 5,
	},
	"coarse-grid": {
		Algorithm: "grid", Periods: 2, StopTime: time.Minute,
		RelTolerance: 0, StallIterations: 1, Starts: 1, Seed: 1, GridPoints: 11,
	},
}

func GetPreset(name string) (OptimizerConfig, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
