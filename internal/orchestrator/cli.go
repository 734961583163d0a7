package orchestrator

import "strings"

// Hijacked holds the outer tool's own flags, extracted and removed from
// the CLI arguments before anything else is parsed, per §6's hijacked
// set: --_command/-_c, --_dry-run, --_trust, --_no-cache,
// --_interactive/-_i, --_cwd.
type Hijacked struct {
	Command     string
	Interactive bool
	DryRun      bool
	Trust       bool
	NoCache     bool
	Cwd         string
}

// ExtractHijacked scans args for the outer tool's own flags, returning
// them plus the remaining arguments with those flags (and any value they
// consumed) removed.
func ExtractHijacked(args []string) (Hijacked, []string) {
	var h Hijacked
	var remaining []string

	i := 0
	for i < len(args) {
		a := args[i]
		switch a {
		case "--_command", "-_c":
			if i+1 < len(args) {
				h.Command = args[i+1]
				i += 2
				continue
			}
			i++
		case "--_cwd":
			if i+1 < len(args) {
				h.Cwd = args[i+1]
				i += 2
				continue
			}
			i++
		case "--_interactive", "-_i":
			h.Interactive = true
			i++
		case "--_dry-run":
			h.DryRun = true
			i++
		case "--_trust":
			h.Trust = true
			i++
		case "--_no-cache":
			h.NoCache = true
			i++
		default:
			if strings.HasPrefix(a, "--_command=") {
				h.Command = strings.TrimPrefix(a, "--_command=")
				i++
				continue
			}
			if strings.HasPrefix(a, "--_cwd=") {
				h.Cwd = strings.TrimPrefix(a, "--_cwd=")
				i++
				continue
			}
			remaining = append(remaining, a)
			i++
		}
	}
	return h, remaining
}

// DriverName parses the driver identifier and interactive marker from an
// agent filename: the segment between the final two dots before ".md".
// "fix.i.claude.md" -> ("claude", true); "task.claude.md" -> ("claude", false).
func DriverName(filename string) (name string, interactiveMarker bool) {
	base := filename
	if idx := strings.LastIndex(base, "/"); idx != -1 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".md")
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return "", false
	}
	name = parts[len(parts)-1]
	if len(parts) >= 3 && parts[len(parts)-2] == "i" {
		interactiveMarker = true
	}
	return name, interactiveMarker
}
