package plugin

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// Args gives typed access to tool call arguments. Interpolated and JSON
// decoded values arrive loosely typed, so numbers may be float64 or strings.
type Args map[string]interface{}

// String returns the named string argument, or "" when absent.
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string, got %T", name, v)
	}
	return s, nil
}

// RequireString returns the named string argument and fails when it is
// absent or empty.
func (a Args) RequireString(name string) (string, error) {
	s, err := a.String(name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("argument %s is required", name)
	}
	return s, nil
}

// Int returns the named integer argument, or def when absent.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("argument %s must be an integer, got %v", name, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("argument %s must be an integer: %w", name, err)
		}
		return int(i), nil
	case string:
		if n == "" {
			return def, nil
		}
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("argument %s must be an integer: %w", name, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument %s must be an integer, got %T", name, v)
	}
}

// Bool returns the named boolean argument, or def when absent. The strings
// "true" and "false" are accepted.
func (a Args) Bool(name string, def bool) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if b == "" {
			return def, nil
		}
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("argument %s must be a boolean: %w", name, err)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("argument %s must be a boolean, got %T", name, v)
	}
}

// StringSlice returns the named list of strings, or nil when absent.
func (a Args) StringSlice(name string) ([]string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument %s[%d] must be a string, got %T", name, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %s must be a list of strings, got %T", name, v)
	}
}

// ErrorResult reports a tool level failure to the caller.
func ErrorResult(format string, a ...interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, a...))
}

// JSONResult marshals v into a single text content result.
func JSONResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
