package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

func TestMakePatchesDiffBasedCommit(t *testing.T) {
	// Scenario 2 from spec §8: before {subject:"a", keywords:{$seen:true}},
	// after {subject:"b", keywords:{}}.
	before := map[string]any{"subject": "a", "keywords": map[string]any{"$seen": true}}
	after := map[string]any{"subject": "b", "keywords": map[string]any{}}

	patches := map[string]any{}
	didPatch := MakePatches("", patches, before, after)
	require.True(t, didPatch)

	assert.Equal(t, "b", patches["/subject"])
	assert.Nil(t, patches["/keywords/$seen"])
	assert.Len(t, patches, 2)
}

func TestMakePatchesNoChangesReportsFalse(t *testing.T) {
	before := map[string]any{"subject": "a"}
	after := map[string]any{"subject": "a"}
	patches := map[string]any{}
	assert.False(t, MakePatches("", patches, before, after))
	assert.Empty(t, patches)
}

func TestMakePatchesArraysAreAtomic(t *testing.T) {
	before := map[string]any{"tags": []any{"a", "b"}}
	after := map[string]any{"tags": []any{"a", "b", "c"}}
	patches := map[string]any{}
	didPatch := MakePatches("", patches, before, after)
	require.True(t, didPatch)
	assert.Equal(t, []any{"a", "b", "c"}, patches["/tags"])
}

func TestRoundTripObjects(t *testing.T) {
	cases := []struct {
		name     string
		original map[string]any
		current  map[string]any
	}{
		{
			name:     "add and remove keys",
			original: map[string]any{"a": 1.0, "b": map[string]any{"x": true}},
			current:  map[string]any{"b": map[string]any{"x": false, "y": "new"}, "c": "added"},
		},
		{
			name:     "nested deletion",
			original: map[string]any{"keywords": map[string]any{"$seen": true, "$flagged": true}},
			current:  map[string]any{"keywords": map[string]any{"$flagged": true}},
		},
		{
			name:     "slash and tilde keys",
			original: map[string]any{"a/b": "old", "c~d": "old2"},
			current:  map[string]any{"a/b": "new", "c~d": "new2"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patches := map[string]any{}
			MakePatches("", patches, tc.original, tc.current)

			result := cloneMap(tc.original)
			ApplyAll(result, patches)

			assert.Equal(t, tc.current, result)
		})
	}
}

func TestTokenEscapeRoundTrip(t *testing.T) {
	keys := []string{"plain", "a/b", "a~b", "a~1b", "a~0b", "/leading", "trailing/", "~~//"}
	for _, k := range keys {
		encoded := EncodeToken(k)
		assert.Equal(t, k, DecodeToken(encoded), "round trip for %q", k)
	}
}

func TestEncodeOrderTildeBeforeSlash(t *testing.T) {
	// "~" must be escaped before "/" or a literal "~1" in the source key
	// would be produced by first escaping "/" and then re-escaping the "~".
	assert.Equal(t, "a~1b", EncodeToken("a/b"))
	assert.Equal(t, "a~0b", EncodeToken("a~b"))
	assert.Equal(t, "a~01", EncodeToken("a~1"))
}

func TestApplyPatchDeletesOnNil(t *testing.T) {
	obj := map[string]any{"keywords": map[string]any{"$seen": true}}
	ApplyPatch(obj, "/keywords/$seen", nil)
	keywords := obj["keywords"].(map[string]any)
	_, exists := keywords["$seen"]
	assert.False(t, exists)
}

func TestApplyPatchDropsWhenIntermediateMissing(t *testing.T) {
	obj := map[string]any{"subject": "a"}
	ApplyPatch(obj, "/missing/field", "value")
	assert.Equal(t, map[string]any{"subject": "a"}, obj)
}

func TestIsValidPatch(t *testing.T) {
	obj := map[string]any{"keywords": map[string]any{"$seen": true}}

	assert.True(t, IsValidPatch(obj, "/keywords/$seen"))
	assert.True(t, IsValidPatch(obj, "/keywords/$notThere"), "final component need not exist")
	assert.False(t, IsValidPatch(obj, "/missing/field"))
	assert.False(t, IsValidPatch(obj, "/subject/nested"), "subject is not an object")
}
