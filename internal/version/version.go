package version

import (
	"strings"

	"github.com/fatih/color"
)

// Version information for the dtorpass CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Colored returns Version with major, minor and patch in distinct colors.
// Versions that do not have three dot-separated parts are returned as is.
func Colored(enabled bool) string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	if !enabled || len(parts) != 3 {
		return Version
	}
	out := make([]string, 3)
	for i, c := range []*color.Color{versionMajorColor, versionMinorColor, versionPatchColor} {
		cc := *c
		cc.EnableColor()
		out[i] = cc.Sprint(parts[i])
	}
	s := strings.Join(out, ".")
	if suffix != "" {
		s += "-" + suffix
	}
	return s
}

// Line renders the "dtorpass <version> (<commit>, <date>)" banner.
func Line(colored bool) string {
	var sb strings.Builder
	sb.WriteString("dtorpass ")
	sb.WriteString(Colored(colored))
	var meta []string
	if GitCommit != "" {
		meta = append(meta, GitCommit)
	}
	if BuildDate != "" {
		meta = append(meta, BuildDate)
	}
	if len(meta) > 0 {
		sb.WriteString(" (" + strings.Join(meta, ", ") + ")")
	}
	return sb.String()
}
