// Package config loads dtorpass.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"dtorpass/internal/destructors"
	"dtorpass/internal/trace"
)

// FileName is the configuration file looked up from the working directory upward.
const FileName = "dtorpass.toml"

// Config mirrors dtorpass.toml.
type Config struct {
	Pass   PassConfig   `toml:"pass"`
	Driver DriverConfig `toml:"driver"`
	Trace  TraceConfig  `toml:"trace"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

type PassConfig struct {
	PerfHints     bool     `toml:"perf_hints"`
	CycleWarnings bool     `toml:"cycle_warnings"`
	Expand        []string `toml:"expand"`
}

type DriverConfig struct {
	Workers        int `toml:"workers"`
	MaxDiagnostics int `toml:"max_diagnostics"`
}

type TraceConfig struct {
	Level    string `toml:"level"`
	Mode     string `toml:"mode"`
	Format   string `toml:"format"`
	Output   string `toml:"output"`
	RingSize int    `toml:"ring_size"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	opts := destructors.DefaultOptions()
	return Config{
		Pass: PassConfig{
			PerfHints:     opts.PerfHints,
			CycleWarnings: opts.CycleWarnings,
		},
		Driver: DriverConfig{
			MaxDiagnostics: 100,
		},
		Trace: TraceConfig{
			Level:    "off",
			Mode:     "ring",
			Format:   "auto",
			Output:   "-",
			RingSize: 4096,
		},
	}
}

// Find walks up from startDir to locate dtorpass.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest dtorpass.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges and enum fields.
func (c Config) Validate() error {
	var errs []error
	if c.Driver.Workers < 0 {
		errs = append(errs, fmt.Errorf("[driver].workers must be >= 0, got %d", c.Driver.Workers))
	}
	if c.Driver.MaxDiagnostics <= 0 {
		errs = append(errs, fmt.Errorf("[driver].max_diagnostics must be > 0, got %d", c.Driver.MaxDiagnostics))
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, fmt.Errorf("[trace].ring_size must be >= 0, got %d", c.Trace.RingSize))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, fmt.Errorf("[trace].format: %w", err))
	}
	for _, name := range c.Pass.Expand {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("[pass].expand contains an empty routine name"))
			break
		}
	}
	return errors.Join(errs...)
}

// PassOptions converts the [pass] section.
func (c Config) PassOptions() destructors.Options {
	return destructors.Options{
		PerfHints:     c.Pass.PerfHints,
		CycleWarnings: c.Pass.CycleWarnings,
	}
}

// TraceOptions converts the [trace] section. Validate must have passed.
func (c Config) TraceOptions() trace.Config {
	level, _ := trace.ParseLevel(c.Trace.Level)
	mode, _ := trace.ParseMode(c.Trace.Mode)
	format, _ := trace.ParseFormat(c.Trace.Format)
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
	}
}
