package dispatch

import (
	"fmt"
	"strings"

	"github.com/gloria-ai/gloria-mcp/internal/catalog"
)

// validateArgs checks the supplied arguments against the tool's declared
// parameters. Out-of-range and malformed values are rejected rather than
// clamped so callers learn about bad input instead of getting silently
// altered results. Arguments the tool does not declare are ignored.
func validateArgs(def *catalog.ToolDefinition, args map[string]any) error {
	for _, p := range def.Params {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required argument %q", p.Name)
			}
			continue
		}
		if err := validateValue(p, v); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(p catalog.Param, v any) error {
	switch p.Type {
	case catalog.TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string", p.Name)
		}
		if p.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("argument %q must not be empty", p.Name)
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			return fmt.Errorf("argument %q must be one of %s", p.Name, strings.Join(p.Enum, ", "))
		}
		if p.Pattern != nil && !p.Pattern.MatchString(s) {
			return fmt.Errorf("argument %q has an invalid format", p.Name)
		}
	case catalog.TypeNumber:
		n, ok := toNumber(v)
		if !ok {
			return fmt.Errorf("argument %q must be a number", p.Name)
		}
		if p.HasRange && (n < p.Min || n > p.Max) {
			return fmt.Errorf("argument %q must be between %g and %g", p.Name, p.Min, p.Max)
		}
	case catalog.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", p.Name)
		}
	}
	return nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
