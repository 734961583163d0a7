package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mdflow/mdflow/internal/globs"
)

// FormatPlan renders the dry-run plan emitted by §4.12 step 14: the
// compiled driver command, the final rendered prompt, and a token
// estimate for that prompt.
func FormatPlan(driverName string, argv []string, renderedBody string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Command: %s %s\n\n", driverName, strings.Join(argv, " "))
	fmt.Fprintf(&sb, "Prompt (~%d tokens):\n%s\n", globs.CountTokens(renderedBody), renderedBody)
	return sb.String()
}
