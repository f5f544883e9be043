package jmap

import (
	"fmt"
	"strconv"
	"strings"
)

// ReferencePrefix marks an argument key as a back-reference whose value is
// computed from an earlier response in the same batch.
const ReferencePrefix = "#"

// ResultReference selects values out of an earlier method response via a
// JSON Pointer. It is the value carried by any argument key beginning with
// "#".
type ResultReference struct {
	ResultOf string `json:"resultOf"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// HasReference reports whether any argument of call carries a "#"-prefixed
// key, i.e. whether call depends on an earlier call's response.
func HasReference(call MethodCall) bool {
	for k := range call.Arguments {
		if strings.HasPrefix(k, ReferencePrefix) {
			return true
		}
	}
	return false
}

// References returns the decoded ResultReference for every "#"-prefixed
// argument key on call, keyed by the argument name with the prefix
// stripped (e.g. "#ids" -> "ids").
func References(call MethodCall) (map[string]ResultReference, error) {
	refs := make(map[string]ResultReference)
	for k, v := range call.Arguments {
		if !strings.HasPrefix(k, ReferencePrefix) {
			continue
		}
		raw, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("result reference %q: value is not an object", k)
		}
		resultOf, _ := raw["resultOf"].(string)
		name, _ := raw["name"].(string)
		path, _ := raw["path"].(string)
		if resultOf == "" || name == "" || path == "" {
			return nil, fmt.Errorf("result reference %q: missing resultOf/name/path", k)
		}
		refs[strings.TrimPrefix(k, ReferencePrefix)] = ResultReference{
			ResultOf: resultOf,
			Name:     name,
			Path:     path,
		}
	}
	return refs, nil
}

// ClientTagIndex parses a MethodCall or MethodResponse's decimal ClientTag
// into an integer index, for correlating responses back to the calls slice
// they were appended at.
func ClientTagIndex(tag string) (int, error) {
	idx, err := strconv.Atoi(tag)
	if err != nil {
		return 0, fmt.Errorf("client tag %q is not a decimal index: %w", tag, err)
	}
	if idx < 0 {
		return 0, fmt.Errorf("client tag %q is negative", tag)
	}
	return idx, nil
}
