// Package fieldpath manipulates nested string-keyed documents addressed by
// dotted key paths. It backs field extraction, schema mapping and merge
// resolution in the record parser.
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Dropped replaces a string value whose raw text cannot be embedded
// structurally. Kept for compatibility with downstream consumers that
// already key off this sentinel.
const Dropped = "DROPPED"

// Get walks each candidate dotted path in order and returns the first
// non-empty value found. candidates is a space-separated list of paths.
// A numeric segment indexes into a slice, any other segment looks up a map
// key. Missing keys, out-of-range indexes and type mismatches are not
// errors; the candidate simply yields nothing.
func Get(doc map[string]any, candidates string) any {
	for _, path := range strings.Fields(candidates) {
		var cur any = doc
		found := true
		for _, seg := range strings.Split(path, ".") {
			switch node := cur.(type) {
			case map[string]any:
				v, ok := node[seg]
				if !ok {
					found = false
				}
				cur = v
			case []any:
				idx, err := strconv.Atoi(seg)
				if err != nil || idx < 0 || idx >= len(node) {
					found = false
				} else {
					cur = node[idx]
				}
			default:
				found = false
			}
			if !found {
				break
			}
		}
		if found && !isEmptyValue(cur) {
			return cur
		}
	}
	return nil
}

// GetString is Get with the result coerced to its string form.
// Returns "" when no candidate yields a value.
func GetString(doc map[string]any, candidates string) string {
	v := Get(doc, candidates)
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Put builds the minimal nested map placing value at the dotted path.
// Maps and numeric values are embedded unchanged. String values containing
// a double quote degrade to the Dropped sentinel instead of failing; the
// original loader built these fragments through a JSON text round trip and
// downstream tooling still expects the sentinel.
func Put(path string, value any) map[string]any {
	if s, ok := value.(string); ok && strings.Contains(s, `"`) {
		value = Dropped
	}
	segs := strings.Split(path, ".")
	out := map[string]any{segs[len(segs)-1]: value}
	for i := len(segs) - 2; i >= 0; i-- {
		out = map[string]any{segs[i]: out}
	}
	return out
}

// Merge merges b into a in place and returns a. Nested maps merge
// recursively. On a leaf conflict b wins; when a's stringified value is a
// substring of b's, the values are treated as the same logical value
// re-represented (a string captured as JSON at one stage and re-serialized
// at another) and b's representation is kept.
func Merge(a, b map[string]any) map[string]any {
	for key, bv := range b {
		av, ok := a[key]
		if !ok {
			a[key] = bv
			continue
		}
		am, aIsMap := av.(map[string]any)
		bm, bIsMap := bv.(map[string]any)
		switch {
		case aIsMap && bIsMap:
			Merge(am, bm)
		case valueEqual(av, bv):
			// same leaf value
		default:
			a[key] = bv
		}
	}
	return a
}

func valueEqual(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// SanitizeKeys rewrites every map key containing '-' to use '_' instead,
// recursing through nested maps and slices.
func SanitizeKeys(v any) {
	switch node := v.(type) {
	case map[string]any:
		for key, val := range node {
			if strings.ContainsRune(key, '-') {
				delete(node, key)
				key = strings.ReplaceAll(key, "-", "_")
				node[key] = val
			}
			SanitizeKeys(val)
		}
	case []any:
		for _, val := range node {
			SanitizeKeys(val)
		}
	}
}

// Prune removes empty nested maps and sentinel-empty scalar leaves
// ("", "-", "null") from doc, bottom-up. The search backend rejects
// documents containing them.
func Prune(doc map[string]any) map[string]any {
	for key, val := range doc {
		switch node := val.(type) {
		case map[string]any:
			Prune(node)
			if len(node) == 0 {
				delete(doc, key)
			}
		case string:
			if node == "" || node == "-" || node == "null" {
				delete(doc, key)
			}
		}
	}
	return doc
}

// isEmptyValue reports whether v counts as "no value" during path lookup.
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}
