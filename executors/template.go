package executors

import (
	"fmt"
	"strings"

	"github.com/flowthread/workflow/engine"
)

// renderPrompt substitutes "{{state.data.KEY}}" and "{{result.KEY}}"
// placeholders in tmpl with values from scope, a minimal templating
// layer so node bodies don't need the full Expression Evaluator.
func renderPrompt(tmpl string, scope engine.Scope) string {
	out := tmpl
	for key, val := range scope.Data {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{state.data.%s}}", key), fmt.Sprint(val))
	}
	for key, val := range scope.PrevResult {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{result.%s}}", key), fmt.Sprint(val))
	}
	return out
}
