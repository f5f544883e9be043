package recurrence

import "time"

// Frequency names the cadence a Rule repeats at.
type Frequency string

const (
	Yearly  Frequency = "YEARLY"
	Monthly Frequency = "MONTHLY"
	Weekly  Frequency = "WEEKLY"
	Daily   Frequency = "DAILY"
)

// Rule is the subset of RFC 5545 RRULE fields spec §4.5 requires: a
// frequency, an optional interval (default 1), and a bound by either a
// fixed count or an until timestamp. Exactly one of Count/Until should be
// set for a finite rule; neither set means unbounded (range queries always
// bound expansion by the query range regardless).
type Rule struct {
	Frequency Frequency
	Interval  int
	Count     int
	Until     time.Time
}

func (r Rule) interval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

// Override is a per-instance patch on a recurring event, keyed by the
// instance's original (unpatched) start time — its recurrenceId. Excluded
// marks an EXDATE; Start/Duration/TimeZone carry a replacement for the
// corresponding event field; Patches carries arbitrary JSON-Pointer
// attribute overrides (e.g. "/locations/1/name") applied on top.
type Override struct {
	Excluded bool
	Start    *time.Time
	Duration *time.Duration
	TimeZone *string
	Patches  map[string]any
}

// Occurrence is one concrete instance of a recurring event after rule
// expansion and override application. Attributes is nil unless the
// occurrence's override carries JSON-Pointer attribute patches, in which
// case it holds the parent event's attributes with those patches applied.
type Occurrence struct {
	RecurrenceID string
	Start        time.Time
	Duration     time.Duration
	TimeZone     string
	Attributes   map[string]any
}

// RecurrenceIDFormat is the ISO 8601 layout recurrenceIds are formatted
// and parsed with.
const RecurrenceIDFormat = "2006-01-02T15:04:05Z07:00"
