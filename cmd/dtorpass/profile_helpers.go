package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dtorpass/internal/prof"
)

// setupProfiling starts the profilers requested by the persistent flags.
// The returned cleanup stops them and is safe to call more than once.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	var paths prof.Paths
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"cpu-profile", &paths.CPU},
		{"mem-profile", &paths.Mem},
		{"runtime-trace", &paths.Trace},
	} {
		v, err := flags.GetString(f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.dst = v
	}

	session, err := prof.Start(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profiling: %v\n", err)
		}
	}, nil
}
