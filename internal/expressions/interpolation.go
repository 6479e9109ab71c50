package expressions

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

var (
	// {{if COND}}BODY{{else}}ELSE{{/if}}; the else part is optional.
	ifBlockPattern = regexp.MustCompile(`\{\{if\s+(.+?)\}\}([\s\S]*?)(?:\{\{else\}\}([\s\S]*?))?\{\{/if\}\}`)

	// {name}, {$INTERNAL}, {user.name}, {list.0}
	placeholderPattern = regexp.MustCompile(`\{(\$?[a-zA-Z0-9_./-]+)\}`)
)

const ifOpen = "{{if"

// Interpolator renders recipe text: conditional blocks first, then
// {name} placeholders.
type Interpolator struct {
	conditions *ConditionEvaluator
}

// NewInterpolator creates an Interpolator that decides blocks with conditions.
func NewInterpolator(conditions *ConditionEvaluator) *Interpolator {
	if conditions == nil {
		conditions = NewConditionEvaluator()
	}
	return &Interpolator{conditions: conditions}
}

// Interpolate resolves conditional blocks and placeholders in input.
// Unknown placeholders are left verbatim and undefined values render as "".
// It never fails.
func (interp *Interpolator) Interpolate(input string, vars map[string]any) string {
	if input == "" {
		return input
	}

	flat := Flatten(vars)
	result := interp.processIfBlocks(input, vars)
	return processPlaceholders(result, flat)
}

// processIfBlocks resolves blocks innermost-first. From the current scan
// position every block whose bodies contain no "{{if" is replaced. After a
// replacement the scan restarts at 0; otherwise it advances one byte so
// enclosing blocks are skipped until their inner blocks are resolved. A
// block that is never closed stops the loop once the position passes the
// end of the text, leaving the remaining markers verbatim.
func (interp *Interpolator) processIfBlocks(input string, vars map[string]any) string {
	result := input
	position := 0

	for strings.Contains(result, ifOpen) && position <= len(result) {
		replaced := result[:position] + interp.replaceBlocks(result[position:], vars)

		if replaced == result {
			position++
		} else {
			position = 0
		}
		result = replaced
	}

	return result
}

func (interp *Interpolator) replaceBlocks(text string, vars map[string]any) string {
	matches := ifBlockPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		last = m[1]

		condition := text[m[2]:m[3]]
		body := text[m[4]:m[5]]
		elseBody := ""
		if m[6] >= 0 {
			elseBody = text[m[6]:m[7]]
		}

		if strings.Contains(body, ifOpen) || strings.Contains(elseBody, ifOpen) {
			b.WriteString(text[m[0]:m[1]])
			continue
		}

		if interp.conditions.Evaluate(condition, vars) {
			b.WriteString(body)
		} else {
			b.WriteString(elseBody)
		}
	}
	b.WriteString(text[last:])
	return b.String()
}

func processPlaceholders(text string, flat map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := flat[name]
		if !ok {
			return match
		}
		if v == nil {
			return ""
		}
		return cast.ToString(v)
	})
}
