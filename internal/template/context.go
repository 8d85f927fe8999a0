package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lookup walks a dot-separated path through nested maps and slices.
// Slice elements are addressed by decimal index. The second return value is
// false when any segment is absent or the value found is nil.
func Lookup(ctx map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var current interface{} = ctx

	for _, segment := range segments {
		if segment == "" {
			return nil, false
		}
		switch v := current.(type) {
		case map[string]interface{}:
			next, exists := v[segment]
			if !exists {
				return nil, false
			}
			current = next
		case []interface{}:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(v) {
				return nil, false
			}
			current = v[index]
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// Stringify converts a resolved value into its substitution text. Maps and
// slices become indented JSON; scalars use their natural string form.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case map[string]interface{}, []interface{}:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
