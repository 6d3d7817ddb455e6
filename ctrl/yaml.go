package ctrl

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the controller options in a YAML configuration
// file. Durations are Go duration strings ("250ms", "5s").
//
// Example:
//
//	workers: 8
//	queue_capacity: 2048
//	result_buffer: 2048
//	rate_limit:
//	  per_second: 100
//	  burst: 10
//	retry:
//	  max_attempts: 3
//	  initial_delay: 100ms
//	finalize_timeout: 30s
//	pin_workers: true
type FileConfig struct {
	Workers       int `yaml:"workers"`
	QueueCapacity int `yaml:"queue_capacity"`
	ResultBuffer  int `yaml:"result_buffer"`

	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Retry struct {
		MaxAttempts  int    `yaml:"max_attempts"`
		InitialDelay string `yaml:"initial_delay"`
	} `yaml:"retry"`

	FinalizeTimeout string `yaml:"finalize_timeout"`
	PinWorkers      bool   `yaml:"pin_workers"`
}

// LoadFileConfig reads and parses a YAML configuration file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig

	// #nosec G304 -- path is provided by the caller (library function).
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return fc, nil
}

// LoadOptions reads a YAML configuration file and converts it into
// controller options. Zero-valued fields are omitted so defaults still
// apply.
//
// Example:
//
//	opts, err := ctrl.LoadOptions("worker.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := ctrl.NewController[int, int](double, opts...)
func LoadOptions(path string) ([]Option, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return fc.Options()
}

// Options converts a FileConfig into controller options.
func (fc FileConfig) Options() ([]Option, error) {
	var opts []Option

	if fc.Workers > 0 {
		opts = append(opts, WithWorkerCount(fc.Workers))
	}
	if fc.QueueCapacity > 0 {
		opts = append(opts, WithQueueCapacity(fc.QueueCapacity))
	}
	if fc.ResultBuffer > 0 {
		opts = append(opts, WithResultBuffer(fc.ResultBuffer))
	}
	if fc.RateLimit.PerSecond > 0 && fc.RateLimit.Burst > 0 {
		opts = append(opts, WithRateLimit(fc.RateLimit.PerSecond, fc.RateLimit.Burst))
	}

	if fc.Retry.MaxAttempts > 0 {
		delay, err := parseOptionalDuration(fc.Retry.InitialDelay)
		if err != nil {
			return nil, fmt.Errorf("retry.initial_delay: %w", err)
		}
		opts = append(opts, WithRetryPolicy(fc.Retry.MaxAttempts, delay))
	}

	if fc.FinalizeTimeout != "" {
		d, err := parseOptionalDuration(fc.FinalizeTimeout)
		if err != nil {
			return nil, fmt.Errorf("finalize_timeout: %w", err)
		}
		opts = append(opts, WithFinalizeTimeout(d))
	}

	if fc.PinWorkers {
		opts = append(opts, WithCPUAffinity())
	}

	return opts, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
