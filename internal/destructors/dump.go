package destructors

import (
	"fmt"
	"io"

	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// Dump writes the routine as given, its control-flow graph and the
// rewritten body. It backs the expand debugging hook.
func Dump(w io.Writer, r *ir.Routine, res Result, tt *types.Table) error {
	pr := ir.Printer{Types: tt}
	name := r.Name()
	if _, err := fmt.Fprintf(w, "-- %s: before\n", name); err != nil {
		return err
	}
	if err := pr.Fprint(w, r.Body); err != nil {
		return err
	}
	if res.Graph != nil {
		if _, err := fmt.Fprintf(w, "-- %s: cfg\n", name); err != nil {
			return err
		}
		if err := res.Graph.Dump(w, pr); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "-- %s: after\n", name); err != nil {
		return err
	}
	if res.Body == nil {
		_, err := io.WriteString(w, "<failed>\n")
		return err
	}
	if err := pr.Fprint(w, res.Body); err != nil {
		return err
	}
	if len(res.GlobalDestroys) > 0 {
		if _, err := fmt.Fprintf(w, "-- %s: global destructors\n", name); err != nil {
			return err
		}
		for _, d := range res.GlobalDestroys {
			if err := pr.Fprint(w, d); err != nil {
				return err
			}
		}
	}
	return nil
}
