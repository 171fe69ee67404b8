package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dtorpass/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "dtorpass",
	Short: "Destructor injection pass for typed units",
	Long: `dtorpass reads a type-checked unit and rewrites every routine so that
owning values are moved, copied or destroyed exactly once on each path.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(cfgCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("config", "", "path to dtorpass.toml (default: searched upward from the working directory)")
	pf.Bool("timings", false, "show timing information")
	pf.String("ui", "auto", "progress display on stderr (auto|on|off)")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics per routine")
	pf.Int("workers", 0, "routines rewritten in parallel (0 = GOMAXPROCS)")
	pf.Bool("perf-hints", true, "report implicit copies into sink parameters")
	pf.Bool("cycle-warnings", true, "report assignments that create reference cycles")

	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity in events")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 = off)")

	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime execution trace to this file")
}

// main executes the root command. A failed command exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// stdoutFile returns the command's output as a file, or nil when it was
// redirected to a buffer.
func stdoutFile(cmd *cobra.Command) *os.File {
	f, _ := cmd.OutOrStdout().(*os.File)
	return f
}
