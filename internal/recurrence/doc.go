// Package recurrence expands a calendar event's recurrence rule and
// override set into concrete occurrences (spec §4.5). It is deliberately
// implemented on the standard library alone: no example repo in this
// module's retrieval pack imports an RRULE/iCalendar recurrence library,
// so there is nothing to wire this concern to. time.Time/time.Duration
// arithmetic and internal/patch's JSON-Pointer walker cover everything
// the expansion needs.
package recurrence
