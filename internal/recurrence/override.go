package recurrence

import (
	"time"

	"github.com/joltmail/joltsync/internal/patch"
)

// PruneInvalidOverrides drops, from every override's Patches map, any
// entry whose path prefix no longer resolves against current — spec
// §4.5's "invalid overrides... are pruned in a before run-loop phase".
// Start/Duration/TimeZone replacements are untouched by pruning; only
// free-form attribute patches (locations, participants, links, alerts...)
// are subject to it. Returns a new map; the input is not mutated.
func PruneInvalidOverrides(overrides map[string]Override, current map[string]any) map[string]Override {
	pruned := make(map[string]Override, len(overrides))
	for id, ov := range overrides {
		if len(ov.Patches) == 0 {
			pruned[id] = ov
			continue
		}
		kept := make(map[string]any, len(ov.Patches))
		for path, value := range ov.Patches {
			if patch.IsValidPatch(current, path) {
				kept[path] = value
			}
		}
		ov.Patches = kept
		pruned[id] = ov
	}
	return pruned
}

// ShiftOverrideIDs re-keys every override by delta, preserving each
// override's payload, per spec §4.5's "when start changes by delta Δ,
// every override id is translated by Δ".
func ShiftOverrideIDs(overrides map[string]Override, delta time.Duration) map[string]Override {
	if delta == 0 {
		return overrides
	}
	shifted := make(map[string]Override, len(overrides))
	for id, ov := range overrides {
		t, err := time.Parse(RecurrenceIDFormat, id)
		if err != nil {
			shifted[id] = ov
			continue
		}
		shifted[t.Add(delta).Format(RecurrenceIDFormat)] = ov
	}
	return shifted
}

// applyTiming overlays an override's Start/Duration/TimeZone replacements
// onto occ, in place.
func applyTiming(occ *Occurrence, ov Override) {
	if ov.Start != nil {
		occ.Start = *ov.Start
	}
	if ov.Duration != nil {
		occ.Duration = *ov.Duration
	}
	if ov.TimeZone != nil {
		occ.TimeZone = *ov.TimeZone
	}
}

// applyAttributes patches a deep copy of base's nested objects with
// ov.Patches so the result is safe to mutate without affecting base or
// any other occurrence's materialised attributes; returns nil when there
// is nothing to apply.
func applyAttributes(base map[string]any, ov Override) map[string]any {
	if len(base) == 0 && len(ov.Patches) == 0 {
		return nil
	}
	attrs := deepCopyObject(base)
	patch.ApplyAll(attrs, ov.Patches)
	return attrs
}

// deepCopyObject recursively copies nested objects (arrays are copied by
// reference, matching the patch codec's atomic treatment of arrays).
func deepCopyObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopyObject(nested)
		} else {
			out[k] = v
		}
	}
	return out
}
