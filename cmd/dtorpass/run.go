package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"dtorpass/internal/cfg"
	"dtorpass/internal/diag"
	"dtorpass/internal/diagfmt"
	"dtorpass/internal/driver"
	"dtorpass/internal/ir"
	"dtorpass/internal/observ"
	"dtorpass/internal/unit"
)

var (
	runOut        string
	runDiagFormat string
	runQuiet      bool
)

func init() {
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "write the rewritten unit to this file")
	runCmd.Flags().StringVar(&runDiagFormat, "format", "pretty", "diagnostics format (pretty|short|json)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print rewritten routines")
}

var runCmd = &cobra.Command{
	Use:   "run <unit>",
	Short: "Rewrite every routine of a unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch runDiagFormat {
		case "pretty", "short", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty, short or json)", runDiagFormat)
		}
		return runUnit(cmd, args[0], nil, func(out io.Writer, res *driver.Result) error {
			switch {
			case runOut == "":
			case res.Failed() > 0:
				// failed routines only have best-effort bodies; the unit is not handed on
				fmt.Fprintf(cmd.ErrOrStderr(), "not writing %s: %d routines failed\n", runOut, res.Failed())
			default:
				if err := unit.Save(runOut, res.Rewritten()); err != nil {
					return fmt.Errorf("failed to write %s: %w", runOut, err)
				}
			}
			if runQuiet {
				return nil
			}
			return printRoutines(out, res)
		})
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand <unit> [routine...]",
	Short: "Show routines before and after the pass, with their flow graphs",
	Long: `expand dumps the input tree, the control-flow graph and the rewritten tree
of the named routines. Without names, [pass].expand from dtorpass.toml is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnit(cmd, args[0], args[1:], func(out io.Writer, res *driver.Result) error {
			n := 0
			for _, rr := range res.Routines {
				if len(rr.Dump) == 0 {
					continue
				}
				if _, err := out.Write(rr.Dump); err != nil {
					return err
				}
				n++
			}
			if n == 0 {
				return fmt.Errorf("no routine matched %s", strings.Join(res.Expanded, ", "))
			}
			return nil
		})
	},
}

var cfgCmd = &cobra.Command{
	Use:   "cfg <unit> <routine>",
	Short: "Dump the control-flow graph the pass reads for a routine",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := unit.Load(args[0])
		if err != nil {
			return err
		}
		r, ok := u.Routine(args[1])
		if !ok {
			return fmt.Errorf("%s: no routine %q", args[0], args[1])
		}
		return cfg.Build(r, u.Types).Dump(cmd.OutOrStdout(), ir.Printer{Types: u.Types})
	},
}

// runUnit loads the unit, runs the driver with the effective settings and
// hands the result to emit. Diagnostics go to stderr.
func runUnit(cmd *cobra.Command, path string, expand []string, emit func(io.Writer, *driver.Result) error) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd, s)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProf()

	timer := observ.NewTimer()
	loadIdx := timer.Begin("load")
	u, err := unit.Load(path)
	timer.End(loadIdx, "")
	if err != nil {
		return err
	}

	if len(expand) == 0 {
		expand = s.cfg.Pass.Expand
	}
	opts := driver.Options{
		Workers:        s.cfg.Driver.Workers,
		MaxDiagnostics: s.cfg.Driver.MaxDiagnostics,
		Pass:           s.cfg.PassOptions(),
		Expand:         expand,
		Timer:          timer,
	}
	var res *driver.Result
	if shouldUseTUI(s.ui) {
		res, err = runDriverWithUI(cmd.Context(), u, opts)
	} else {
		res, err = driver.Run(cmd.Context(), u, opts)
	}
	if err != nil {
		return err
	}
	if res.Err() != nil {
		dumpCrashRing(cmd, tracer)
	}

	if err := emit(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if err := printDiagnostics(cmd.ErrOrStderr(), res, u, s); err != nil {
		return err
	}
	if s.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("%d of %d routines failed", n, len(res.Routines))
	}
	return nil
}

func printRoutines(out io.Writer, res *driver.Result) error {
	pr := ir.Printer{Types: res.Unit.Types}
	for _, rr := range res.Routines {
		if _, err := fmt.Fprintf(out, "-- %s\n", rr.Routine.Name()); err != nil {
			return err
		}
		body := rr.Result.Body
		if body == nil {
			body = rr.Routine.Body
		}
		if err := pr.Fprint(out, body); err != nil {
			return err
		}
	}
	if len(res.GlobalDestroys) == 0 {
		return nil
	}
	if _, err := io.WriteString(out, "-- global destructors\n"); err != nil {
		return err
	}
	// globals die in reverse order of construction
	for _, d := range slices.Backward(res.GlobalDestroys) {
		if err := pr.Fprint(out, d); err != nil {
			return err
		}
	}
	return nil
}

func printDiagnostics(w io.Writer, res *driver.Result, u *unit.Unit, s settings) error {
	bag := res.Bag
	if bag.Len() == 0 {
		return nil
	}
	if runDiagFormat == "json" {
		return diagfmt.JSON(w, bag, u.Files, diagfmt.JSONOpts{IncludeNotes: true})
	}
	sorted := diag.NewBag(int(bag.Cap()))
	sorted.Merge(bag)
	sorted.Sort()
	opts := diagfmt.PrettyOpts{
		Color:     s.color,
		PathMode:  diagfmt.PathModeAuto,
		ShowNotes: true,
		Short:     runDiagFormat == "short",
	}
	if err := diagfmt.Pretty(w, sorted, u.Files, opts); err != nil {
		return err
	}
	return diagfmt.Summary(w, sorted, s.color)
}
