package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dtorpass/internal/config"
)

// settings is the effective configuration: dtorpass.toml overridden by
// flags the user set explicitly.
type settings struct {
	cfg     config.Config
	color   bool
	timings bool
	ui      uiMode
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return settings{}, err
	}

	overrides := []struct {
		flag string
		set  func() error
	}{
		{"max-diagnostics", func() (err error) { cfg.Driver.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); return }},
		{"workers", func() (err error) { cfg.Driver.Workers, err = flags.GetInt("workers"); return }},
		{"perf-hints", func() (err error) { cfg.Pass.PerfHints, err = flags.GetBool("perf-hints"); return }},
		{"cycle-warnings", func() (err error) { cfg.Pass.CycleWarnings, err = flags.GetBool("cycle-warnings"); return }},
		{"trace", func() (err error) { cfg.Trace.Output, err = flags.GetString("trace"); return }},
		{"trace-level", func() (err error) { cfg.Trace.Level, err = flags.GetString("trace-level"); return }},
		{"trace-mode", func() (err error) { cfg.Trace.Mode, err = flags.GetString("trace-mode"); return }},
		{"trace-format", func() (err error) { cfg.Trace.Format, err = flags.GetString("trace-format"); return }},
		{"trace-ring-size", func() (err error) { cfg.Trace.RingSize, err = flags.GetInt("trace-ring-size"); return }},
	}
	for _, o := range overrides {
		if !flags.Changed(o.flag) {
			continue
		}
		if err := o.set(); err != nil {
			return settings{}, fmt.Errorf("failed to get %s flag: %w", o.flag, err)
		}
	}
	// --trace без уровня включает фазы
	if flags.Changed("trace") && !flags.Changed("trace-level") && cfg.Trace.Level == "off" {
		cfg.Trace.Level = "phase"
		if !flags.Changed("trace-mode") {
			cfg.Trace.Mode = "stream"
		}
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}

	colorMode, err := flags.GetString("color")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get color flag: %w", err)
	}
	color, err := resolveColor(colorMode, os.Stderr)
	if err != nil {
		return settings{}, err
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return settings{}, err
	}
	return settings{cfg: cfg, color: color, timings: timings, ui: mode}, nil
}

func resolveColor(mode string, f *os.File) (bool, error) {
	switch strings.ToLower(mode) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		return os.Getenv("NO_COLOR") == "" && isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}
