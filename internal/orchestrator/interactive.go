package orchestrator

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/mdflow/mdflow/internal/mdflowerr"
)

// PromptForMissing asks the user, once per name, for a value to bind a
// still-free "_"-prefixed template variable to. names are given without
// their leading underscore. Returns a bare-name -> value map.
func PromptForMissing(names []string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	var fields []huh.Field
	for _, name := range names {
		ptr := new(string)
		values[name] = ""
		field := huh.NewInput().
			Title(fmt.Sprintf("_%s", name)).
			Description("template variable used in the prompt body but not bound").
			Value(ptr)
		fields = append(fields, field)
		// capture ptr by keeping the binding in a closure via the map below
		defer func(name string, ptr *string) { values[name] = *ptr }(name, ptr)
	}
	if len(fields) == 0 {
		return values, nil
	}
	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return nil, mdflowerr.Wrap(mdflowerr.KindUserCancelled, err)
	}
	return values, nil
}

// PromptTrust asks the user to approve a remote domain as trusted for
// this invocation (TOFU confirmation for the external remote-fetch
// collaborator; persistence of the decision is out of scope here).
func PromptTrust(domain string) (bool, error) {
	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Trust remote domain %q?", domain)).
				Description("This agent file was fetched from a domain not yet trusted.").
				Value(&confirm).
				Affirmative("Trust").
				Negative("Cancel"),
		),
	)
	if err := form.Run(); err != nil {
		return false, mdflowerr.Wrap(mdflowerr.KindUserCancelled, err)
	}
	return confirm, nil
}
