package diagfmt

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"dtorpass/internal/diag"
	"dtorpass/internal/source"
)

type palette struct {
	sev  map[diag.Severity]*color.Color
	code *color.Color
	loc  *color.Color
	note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevHint:    color.New(color.FgCyan),
		},
		code: color.New(color.Faint),
		loc:  color.New(color.Bold),
		note: color.New(color.FgBlue),
	}
	all := []*color.Color{p.code, p.loc, p.note}
	for _, c := range p.sev {
		all = append(all, c)
	}
	// цвет задаётся опцией, а не глобальным color.NoColor
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем Notes с отступом. Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		loc := formatLocation(fs, d.Primary, opts.PathMode, opts.BaseDir)
		sev := p.sev[d.Severity]
		if sev == nil {
			sev = p.code
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.loc.Sprint(loc), sev.Sprint(d.Severity.String()), p.code.Sprint(d.Code.ID()), d.Message); err != nil {
			return err
		}
		if opts.Short {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s\n", p.code.Sprint("= "+d.Code.Title())); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			line := p.note.Sprint("note") + ": " + n.Msg
			if !n.Span.Unknown() {
				line = p.loc.Sprint(formatLocation(fs, n.Span, opts.PathMode, opts.BaseDir)) + ": " + line
			}
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Summary prints the "N errors, M warnings" trailer; nothing for an empty bag.
func Summary(w io.Writer, bag *diag.Bag, colored bool) error {
	var errs, warns, hints int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		default:
			hints++
		}
	}
	if errs+warns+hints == 0 {
		return nil
	}
	p := newPalette(colored)
	_, err := fmt.Fprintf(w, "%s, %s, %s\n",
		p.sev[diag.SevError].Sprint(plural(errs, "error")),
		p.sev[diag.SevWarning].Sprint(plural(warns, "warning")),
		p.sev[diag.SevHint].Sprint(plural(hints, "hint")))
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
