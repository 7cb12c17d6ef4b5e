package testutil

import "maps"

// ProfileRecord returns a minimal valid profile record: only the required
// fields are set. Keys in overrides replace or extend it; a nil override value
// is kept as an explicit null.
func ProfileRecord(overrides map[string]any) map[string]any {
	rec := map[string]any{
		"background": "bg-1",
		"currency":   "USD",
		"language":   "en",
		"name":       "Alice",
		"networkId":  "ark.mainnet",
		"theme":      "dark",
	}
	maps.Copy(rec, overrides)
	return rec
}

// Without returns a copy of rec without the named keys.
func Without(rec map[string]any, keys ...string) map[string]any {
	out := maps.Clone(rec)
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
