package recurrence

import (
	"fmt"
	"sync"
	"time"
)

// RecurrenceSet is the per-event expansion engine of spec §4.5: it holds
// an event's scheduling fields and its override set, and derives the
// occurrence set for a queried date range. Occurrence handles are
// memoised by recurrenceId and invalidated whenever Start, TimeZone, Rule
// or the override set changes.
type RecurrenceSet struct {
	mu sync.Mutex

	start     time.Time
	timeZone  string
	duration  time.Duration
	rule      *Rule
	overrides map[string]Override
	eventData map[string]any

	cache map[string]*Occurrence
}

// NewRecurrenceSet builds a RecurrenceSet. rule is nil for a non-recurring
// event. eventData is the event's attribute map, used to materialise
// Occurrence.Attributes for overrides that carry attribute patches.
func NewRecurrenceSet(start time.Time, timeZone string, duration time.Duration, rule *Rule, overrides map[string]Override, eventData map[string]any) *RecurrenceSet {
	return &RecurrenceSet{
		start:     start,
		timeZone:  timeZone,
		duration:  duration,
		rule:      rule,
		overrides: overrides,
		eventData: eventData,
	}
}

// SetStart updates the event's start time, shifting every override id by
// the delta between old and new start so existing overrides keep
// referring to the same logical instance, and invalidates the occurrence
// cache.
func (s *RecurrenceSet) SetStart(newStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := newStart.Sub(s.start)
	s.overrides = ShiftOverrideIDs(s.overrides, delta)
	s.start = newStart
	s.cache = nil
}

// SetTimeZone updates the event's time zone and invalidates the cache.
func (s *RecurrenceSet) SetTimeZone(tz string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeZone = tz
	s.cache = nil
}

// SetRule updates the recurrence rule and invalidates the cache.
func (s *RecurrenceSet) SetRule(rule *Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rule = rule
	s.cache = nil
}

// SetOverrides replaces the override set and invalidates the cache.
func (s *RecurrenceSet) SetOverrides(overrides map[string]Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = overrides
	s.cache = nil
}

// SetEventData updates the event's attribute map, pruning any override
// patches whose path prefix no longer resolves against it, and
// invalidates the cache.
func (s *RecurrenceSet) SetEventData(data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventData = data
	s.overrides = PruneInvalidOverrides(s.overrides, data)
	s.cache = nil
}

// GetOccurrencesThatMayBeInDateRange returns every occurrence that may
// overlap [rangeStart, rangeEnd) once converted into the event's own time
// zone, per spec §4.5. The order of the returned slice is unspecified.
func (s *RecurrenceSet) GetOccurrencesThatMayBeInDateRange(rangeStart, rangeEnd time.Time) ([]*Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, err := s.location()
	if err != nil {
		return nil, err
	}
	rangeStart = rangeStart.In(loc)
	rangeEnd = rangeEnd.In(loc)

	freq := Frequency("")
	if s.rule != nil {
		freq = s.rule.Frequency
	}
	margin := frequencyCap(freq)
	if s.duration < margin {
		margin = s.duration
	}
	earliestStart := rangeStart.Add(-margin).Add(time.Second)

	byID := make(map[string]*Occurrence)

	if s.rule == nil {
		if !s.start.Before(earliestStart) && s.start.Before(rangeEnd) {
			id := s.start.Format(RecurrenceIDFormat)
			byID[id] = s.newOccurrence(id, s.start, s.duration, s.timeZone)
		}
	} else {
		for _, start := range s.expandStarts(rangeEnd, loc) {
			if start.Before(earliestStart) {
				continue
			}
			id := start.Format(RecurrenceIDFormat)
			byID[id] = s.newOccurrence(id, start, s.duration, s.timeZone)
		}
	}

	for id, ov := range s.overrides {
		existing, generated := byID[id]
		switch {
		case ov.Excluded:
			delete(byID, id)
		case generated:
			applyTiming(existing, ov)
			existing.Attributes = applyAttributes(s.eventData, ov)
		default:
			s.addRDATE(byID, id, ov, earliestStart, rangeEnd)
		}
	}

	out := make([]*Occurrence, 0, len(byID))
	for _, occ := range byID {
		out = append(out, occ)
	}
	return out, nil
}

// expandStarts generates the rule's raw occurrence dates, bounded by
// rangeEnd and the rule's own Until, honoring Count net of exclusions: a
// candidate date that a same-id override marks
// Excluded does not consume one of the rule's Count slots, so the
// expansion keeps stepping until Count *kept* occurrences have been
// produced (or the range/until bound is hit first). This is what lets a
// COUNT-bounded rule with one EXDATE still yield Count occurrences in a
// query spanning the makeup date; see DESIGN.md.
func (s *RecurrenceSet) expandStarts(rangeEnd time.Time, loc *time.Location) []time.Time {
	r := s.rule
	var out []time.Time
	accepted := 0
	t := s.start.In(loc)
	for {
		if !r.Until.IsZero() && t.After(r.Until) {
			break
		}
		if !rangeEnd.IsZero() && !t.Before(rangeEnd) {
			break
		}
		out = append(out, t)
		if ov, found := s.overrides[t.Format(RecurrenceIDFormat)]; !found || !ov.Excluded {
			accepted++
		}
		if r.Count > 0 && accepted >= r.Count {
			break
		}
		t = r.step(t)
	}
	return out
}

// addRDATE handles an override whose id the rule did not itself generate:
// an instance added outright (spec §4.5's RDATE case), included when its
// resulting timing falls in range or the override alters timing at all.
func (s *RecurrenceSet) addRDATE(byID map[string]*Occurrence, id string, ov Override, earliestStart, rangeEnd time.Time) {
	base, err := time.Parse(RecurrenceIDFormat, id)
	if err != nil {
		return
	}
	start, duration, tz := base, s.duration, s.timeZone
	if ov.Start != nil {
		start = *ov.Start
	}
	if ov.Duration != nil {
		duration = *ov.Duration
	}
	if ov.TimeZone != nil {
		tz = *ov.TimeZone
	}

	altersTiming := ov.Start != nil || ov.Duration != nil || ov.TimeZone != nil
	inRange := !start.Before(earliestStart) && start.Before(rangeEnd)
	if !inRange && !altersTiming {
		return
	}

	occ := s.newOccurrence(id, start, duration, tz)
	occ.Attributes = applyAttributes(s.eventData, ov)
	byID[id] = occ
}

// newOccurrence returns the memoised Occurrence for id, creating and
// caching it if this is the first time id has been seen since the cache
// was last invalidated.
func (s *RecurrenceSet) newOccurrence(id string, start time.Time, duration time.Duration, tz string) *Occurrence {
	if s.cache == nil {
		s.cache = make(map[string]*Occurrence)
	}
	if occ, ok := s.cache[id]; ok {
		occ.Start = start
		occ.Duration = duration
		occ.TimeZone = tz
		return occ
	}
	occ := &Occurrence{RecurrenceID: id, Start: start, Duration: duration, TimeZone: tz}
	s.cache[id] = occ
	return occ
}

func (s *RecurrenceSet) location() (*time.Location, error) {
	if s.timeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.timeZone)
	if err != nil {
		return nil, fmt.Errorf("recurrence: load time zone %q: %w", s.timeZone, err)
	}
	return loc, nil
}
