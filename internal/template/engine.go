package template

import (
	"regexp"
	"strings"

	"github.com/giantswarm/stepflow/pkg/logging"
)

// placeholderPattern matches {{ path.to.value }} with optional whitespace.
// A path is made of letters, digits, underscores and dots.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Engine resolves {{ path }} placeholders against an execution context.
//
// Resolution is forgiving: a path that does not exist in the context is
// replaced by an empty string. Use ExtractPaths to lint templates ahead of
// a run instead.
type Engine struct {
	log *logging.Logger
}

// New creates a new template engine. log may be nil.
func New(log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{log: log.With("Template")}
}

// Interpolate replaces every placeholder in template with the string form of
// the value found at its path in ctx.
func (e *Engine) Interpolate(template string, ctx map[string]interface{}) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := Lookup(ctx, path)
		if !ok {
			e.log.Debug("Placeholder %s did not resolve, substituting empty string", path)
			return ""
		}
		return Stringify(value)
	})
}

// InterpolateValue interpolates strings and returns every other value unchanged.
func (e *Engine) InterpolateValue(value interface{}, ctx map[string]interface{}) interface{} {
	if s, ok := value.(string); ok {
		return e.Interpolate(s, ctx)
	}
	return value
}

// InterpolateArgs returns a copy of args with every string value interpolated.
// Non-string values, including nested maps and slices, pass through as-is.
func (e *Engine) InterpolateArgs(args map[string]interface{}, ctx map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(args))
	for key, value := range args {
		resolved[key] = e.InterpolateValue(value, ctx)
	}
	return resolved
}

// ExtractPaths returns the placeholder paths used in template, in order of
// appearance and without duplicates.
func ExtractPaths(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	var paths []string
	for _, match := range matches {
		if seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		paths = append(paths, match[1])
	}
	return paths
}

// IsTruthy implements the condition check of a step: anything but an empty
// string or the literal "false" is true.
func IsTruthy(s string) bool {
	return s != "" && s != "false"
}
