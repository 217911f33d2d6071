package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/vertex"
)

// demoConfig mirrors the YAML config file. Example:
//
//	input: bunny.obj
//	scale_xyz: [0.5, 0.5, 0.25]
//	workers: 8
//	gpu: false
//	output: bunny.bin
type demoConfig struct {
	Input   string  `yaml:"input"`
	Count   int     `yaml:"count"`
	Scale   float64 `yaml:"scale"`
	Workers int     `yaml:"workers"`
	GPU     *bool   `yaml:"gpu"` // pointer to distinguish unset from false
	Output  string  `yaml:"output"`
	Verbose bool    `yaml:"verbose"`

	// ScaleXYZ sets per-axis scales. Overrides Scale; the -scale flag
	// overrides both.
	ScaleXYZ []float32 `yaml:"scale_xyz"`
}

// settings is the resolved run configuration after merging the config
// file with explicitly set flags.
type settings struct {
	input     string
	count     int
	transform vertex.Transform
	workers   int
	gpu       bool
	output    string
	verbose   bool
}

// resolveSettings merges the optional YAML config with command-line
// flags. A flag given on the command line always wins over the file.
func resolveSettings() (settings, error) {
	var cfg demoConfig
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return settings{}, fmt.Errorf("parse config %s: %w", *configPath, err)
		}
		if n := len(cfg.ScaleXYZ); n != 0 && n != 3 {
			return settings{}, fmt.Errorf("config %s: scale_xyz needs 3 components, got %d", *configPath, n)
		}
	}

	onCommandLine := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { onCommandLine[f.Name] = true })

	s := settings{
		input:   *input,
		count:   *count,
		workers: *workers,
		gpu:     *gpuEnabled,
		output:  *output,
		verbose: *verbose,
	}
	if !onCommandLine["input"] && cfg.Input != "" {
		s.input = cfg.Input
	}
	if !onCommandLine["count"] && cfg.Count > 0 {
		s.count = cfg.Count
	}
	if !onCommandLine["workers"] && cfg.Workers != 0 {
		s.workers = cfg.Workers
	}
	if !onCommandLine["gpu"] && cfg.GPU != nil {
		s.gpu = *cfg.GPU
	}
	if !onCommandLine["o"] && cfg.Output != "" {
		s.output = cfg.Output
	}
	if !onCommandLine["v"] && cfg.Verbose {
		s.verbose = true
	}

	switch {
	case onCommandLine["scale"]:
		s.transform = vertex.UniformScale(float32(*scale))
	case len(cfg.ScaleXYZ) == 3:
		s.transform = vertex.Transform{Scale: mgl32.Vec3{cfg.ScaleXYZ[0], cfg.ScaleXYZ[1], cfg.ScaleXYZ[2]}}
	case cfg.Scale != 0:
		s.transform = vertex.UniformScale(float32(cfg.Scale))
	default:
		s.transform = vertex.UniformScale(float32(*scale))
	}

	if s.count <= 0 {
		return settings{}, fmt.Errorf("vertex count must be positive, got %d", s.count)
	}
	return s, nil
}
