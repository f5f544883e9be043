package patch

import "reflect"

// MakePatches recursively compares original and current, recording one
// entry in patches for every leaf that differs.
//
// Rules (spec §4.1):
//  1. If both values are plain JSON objects (map[string]any) — arrays are
//     never recursed into — walk the union of keys. A key missing from
//     current emits a deletion (nil).
//  2. Otherwise, if the two values are not structurally equal, record
//     patches[basePath] = current (or nil if current is nil).
//
// Returns true iff at least one patch was recorded anywhere in the
// subtree, so callers can tell "no changes" apart from "patches is empty
// because everything already matched".
func MakePatches(basePath string, patches map[string]any, original, current any) bool {
	originalObj, originalIsObj := original.(map[string]any)
	currentObj, currentIsObj := current.(map[string]any)

	if originalIsObj && currentIsObj {
		didPatch := false
		keys := unionKeys(originalObj, currentObj)
		for _, key := range keys {
			childPath := Join(basePath, key)
			currentVal, inCurrent := currentObj[key]
			if !inCurrent {
				patches[childPath] = nil
				didPatch = true
				continue
			}
			originalVal := originalObj[key]
			if MakePatches(childPath, patches, originalVal, currentVal) {
				didPatch = true
			}
		}
		return didPatch
	}

	if deepEqual(original, current) {
		return false
	}

	if current == nil {
		patches[basePath] = nil
	} else {
		patches[basePath] = current
	}
	return true
}

// ApplyPatch walks path component by component against object and, on the
// terminal component, sets value (or deletes the key if value is nil). If
// any intermediate component does not resolve to an object, the patch is
// silently dropped — per spec §4.1, a patch whose path no longer exists is
// not an error.
func ApplyPatch(object map[string]any, path string, value any) {
	components := Split(path)
	if len(components) == 0 {
		return
	}

	cursor := object
	for _, comp := range components[:len(components)-1] {
		next, ok := cursor[comp]
		if !ok {
			return
		}
		nextObj, ok := next.(map[string]any)
		if !ok {
			return
		}
		cursor = nextObj
	}

	last := components[len(components)-1]
	if value == nil {
		delete(cursor, last)
		return
	}
	cursor[last] = value
}

// IsValidPatch performs the same walk as ApplyPatch but only validates that
// every intermediate component resolves to an object; the terminal
// component itself is not required to already exist.
func IsValidPatch(object map[string]any, path string) bool {
	components := Split(path)
	if len(components) == 0 {
		return false
	}

	cursor := object
	for _, comp := range components[:len(components)-1] {
		next, ok := cursor[comp]
		if !ok {
			return false
		}
		nextObj, ok := next.(map[string]any)
		if !ok {
			return false
		}
		cursor = nextObj
	}
	return true
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func deepEqual(a, b any) bool {
	// Arrays are treated atomically: compare element-for-element without
	// recursing into nested objects within them, matching reflect.DeepEqual
	// semantics for slices of any.
	return reflect.DeepEqual(a, b)
}
