// Package config holds the fixed transcription settings of an fwtext run.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fmueller/fwtext/internal/platform"
)

const (
	DefaultAudioFile   = "b4.mp4"
	DefaultDevice      = "cpu"
	DefaultComputeType = "int8"
	DefaultBeamSize    = 5
)

var (
	devices = map[string]string{
		"cpu":  "cpu",
		"cuda": "cuda",
		"gpu":  "cuda",
		"auto": "auto",
	}

	computeTypes = map[string]struct{}{
		"default":       {},
		"auto":          {},
		"int8":          {},
		"int8_float32":  {},
		"int8_float16":  {},
		"int8_bfloat16": {},
		"int16":         {},
		"float16":       {},
		"bfloat16":      {},
		"float32":       {},
	}
)

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	ModelDir    string
	AudioPath   string
	Device      string
	ComputeType string

	BeamSize          int
	VADFilter         bool
	WithoutTimestamps bool
	WordTimestamps    bool
	// Language is an ISO code such as "ja"; empty lets the model detect it.
	Language string
}

// Default returns the built-in settings with the model directory resolved for the current OS.
func Default() (Config, error) {
	modelDir, err := platform.ResolveModelDir("")
	if err != nil {
		return Config{}, fmt.Errorf("resolve model directory: %w", err)
	}

	return Config{
		ModelDir:          modelDir,
		AudioPath:         DefaultAudioFile,
		Device:            DefaultDevice,
		ComputeType:       DefaultComputeType,
		BeamSize:          DefaultBeamSize,
		VADFilter:         true,
		WithoutTimestamps: false,
		WordTimestamps:    false,
	}, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ModelDir) == "" {
		errs = append(errs, errors.New("model directory must not be empty"))
	}
	if strings.TrimSpace(c.AudioPath) == "" {
		errs = append(errs, errors.New("audio path must not be empty"))
	}
	if _, ok := devices[strings.ToLower(c.Device)]; !ok {
		errs = append(errs, fmt.Errorf("unsupported device %q (use cpu, cuda or auto)", c.Device))
	}
	if _, ok := computeTypes[strings.ToLower(c.ComputeType)]; !ok {
		errs = append(errs, fmt.Errorf("unsupported compute type %q", c.ComputeType))
	}
	if c.BeamSize < 1 {
		errs = append(errs, fmt.Errorf("beam size must be at least 1, got %d", c.BeamSize))
	}

	return errors.Join(errs...)
}

// EngineDevice maps the configured device onto the names the model runtime understands.
func (c Config) EngineDevice() string {
	if device, ok := devices[strings.ToLower(c.Device)]; ok {
		return device
	}
	return c.Device
}
