package overseer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file representation of a supervisor and its workers.
//
//	name: station
//	grace_period: 5s
//	health_interval: 10s
//	backoff:
//	  kind: linear
//	  increment: 5s
//	  max: 30s
//	log:
//	  format: text
//	  level: info
//	workers:
//	  - name: weather-display
//	    program: python3
//	    script: weather_display.py
//	    max_restarts: 5
type Config struct {
	Name           string         `yaml:"name"`
	GracePeriod    time.Duration  `yaml:"grace_period"`
	HealthInterval time.Duration  `yaml:"health_interval"`
	Backoff        BackoffConfig  `yaml:"backoff"`
	Log            LogConfig      `yaml:"log"`
	Workers        []WorkerConfig `yaml:"workers"`
}

// BackoffConfig selects and parameterises a BackoffPolicy.
type BackoffConfig struct {
	// Kind is linear, constant or exponential.
	Kind      string        `yaml:"kind"`
	Initial   time.Duration `yaml:"initial"`
	Increment time.Duration `yaml:"increment"`
	Max       time.Duration `yaml:"max"`
	// Jitter in [0, 1] wraps the policy with JitterBackoff when positive.
	Jitter float64 `yaml:"jitter"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// WorkerConfig is the file representation of a WorkerSpec.
type WorkerConfig struct {
	Name        string            `yaml:"name"`
	Program     string            `yaml:"program"`
	Script      string            `yaml:"script"`
	Args        []string          `yaml:"args"`
	Dir         string            `yaml:"dir"`
	Env         map[string]string `yaml:"env"`
	MaxRestarts int               `yaml:"max_restarts"`
	Restart     string            `yaml:"restart"`
	Timeout     time.Duration     `yaml:"timeout"`
}

const defaultMaxRestarts = 5

// DefaultConfig returns the display station setup: the weather display and
// the LED blinker, both Python scripts in the working directory.
func DefaultConfig() Config {
	cfg := baseConfig()
	cfg.Workers = []WorkerConfig{
		{Name: "weather-display", Program: "python3", Script: "weather_display.py", MaxRestarts: defaultMaxRestarts},
		{Name: "led-controller", Program: "python3", Script: "led_controller.py", MaxRestarts: defaultMaxRestarts},
	}
	return cfg
}

func baseConfig() Config {
	return Config{
		Name:           "system-controller",
		GracePeriod:    defaultGracePeriod,
		HealthInterval: defaultHealthInterval,
		Backoff: BackoffConfig{
			Kind:      "linear",
			Increment: 5 * time.Second,
			Max:       30 * time.Second,
		},
		Log: LogConfig{Format: "text", Level: "info"},
	}
}

// LoadConfig reads a YAML config file. Fields left out keep their defaults;
// the worker list must be given.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a YAML config. Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	cfg := baseConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	for i := range cfg.Workers {
		if cfg.Workers[i].MaxRestarts == 0 {
			cfg.Workers[i].MaxRestarts = defaultMaxRestarts
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config without touching the filesystem.
func (c Config) Validate() error {
	var errs []error
	if c.GracePeriod <= 0 {
		errs = append(errs, errors.New("grace_period must be positive"))
	}
	if c.HealthInterval <= 0 {
		errs = append(errs, errors.New("health_interval must be positive"))
	}
	if _, err := c.Backoff.Policy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if len(c.Workers) == 0 {
		errs = append(errs, ErrNoWorkers)
	}

	seen := make(map[string]bool, len(c.Workers))
	for _, wc := range c.Workers {
		spec, err := wc.Spec()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := spec.validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[wc.Name] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateWorker, wc.Name))
		}
		seen[wc.Name] = true
	}
	return errors.Join(errs...)
}

// Policy builds the configured BackoffPolicy.
func (b BackoffConfig) Policy() (BackoffPolicy, error) {
	var policy BackoffPolicy
	switch strings.ToLower(b.Kind) {
	case "", "linear":
		policy = LinearBackoff(b.Initial, b.Increment, b.Max)
	case "constant":
		policy = ConstantBackoff(b.Initial)
	case "exponential":
		if b.Initial <= 0 {
			return nil, errors.New("backoff: exponential needs a positive initial delay")
		}
		policy = ExponentialBackoff(b.Initial, b.Max)
	default:
		return nil, fmt.Errorf("backoff: unknown kind %q", b.Kind)
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		return nil, fmt.Errorf("backoff: jitter %v out of range [0, 1]", b.Jitter)
	}
	if b.Jitter > 0 {
		policy = JitterBackoff(policy, b.Jitter)
	}
	return policy, nil
}

// Spec converts the entry into a WorkerSpec.
func (wc WorkerConfig) Spec() (WorkerSpec, error) {
	restart, ok := ParseRestartType(wc.Restart)
	if !ok {
		return WorkerSpec{}, fmt.Errorf("%w: worker %s: unknown restart type %q", ErrInvalidSpec, wc.Name, wc.Restart)
	}

	keys := make([]string, 0, len(wc.Env))
	for k := range wc.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var env []string
	for _, k := range keys {
		env = append(env, k+"="+wc.Env[k])
	}

	return WorkerSpec{
		Name:        wc.Name,
		Program:     wc.Program,
		Script:      wc.Script,
		Args:        wc.Args,
		Dir:         wc.Dir,
		Env:         env,
		MaxRestarts: wc.MaxRestarts,
		Restart:     restart,
		Timeout:     wc.Timeout,
	}, nil
}

// Specs converts every worker entry.
func (c Config) Specs() ([]WorkerSpec, error) {
	specs := make([]WorkerSpec, 0, len(c.Workers))
	for _, wc := range c.Workers {
		spec, err := wc.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Options turns the config into supervisor options. Logging is left to the
// caller, see NewLogger.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	policy, err := c.Backoff.Policy()
	if err != nil {
		return nil, err
	}
	specs, err := c.Specs()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithName(c.Name),
		WithGracePeriod(c.GracePeriod),
		WithHealthInterval(c.HealthInterval),
		WithBackoff(policy),
		WithWorkers(specs...),
	}, nil
}
