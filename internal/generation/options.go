package generation

// MergeOptions lays caller overrides over a template's stored parameter bag.
// Overrides win on key collision. Inputs are never mutated; the result is
// always a fresh map, even when both inputs are nil.
func MergeOptions(base, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
