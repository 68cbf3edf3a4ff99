package strategy

import "strings"

// FormatParameterName is a pure presentation helper turning a descriptor's
// machine name into a human label when Label was left blank. It must never
// affect simulation semantics.
func FormatParameterName(d Descriptor) string {
	if d.Label != "" {
		return d.Label
	}
	parts := strings.Split(d.Name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// FormatParameterValue is a pure presentation helper for rendering a
// resolved value for display (e.g. "true"/"false" as "Yes"/"No" for BOOL).
// It must never affect simulation semantics.
func FormatParameterValue(v Value) string {
	switch v.Descriptor.Type {
	case ParamBool:
		if v.Raw == "true" {
			return "Yes"
		}
		return "No"
	default:
		return v.Raw
	}
}
