package recurrence

import "time"

// frequencyCap is the safety-margin cap of spec §4.5's range expansion:
// 366/31/7/1 day(s) for YEARLY/MONTHLY/WEEKLY/other.
func frequencyCap(f Frequency) time.Duration {
	switch f {
	case Yearly:
		return 366 * 24 * time.Hour
	case Monthly:
		return 31 * 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// step advances t by one cadence of the rule's frequency and interval.
// Calendar-unit frequencies (YEARLY/MONTHLY) use AddDate so month-length
// variation is handled correctly; WEEKLY/DAILY advance by a fixed
// duration.
func (r Rule) step(t time.Time) time.Time {
	n := r.interval()
	switch r.Frequency {
	case Yearly:
		return t.AddDate(n, 0, 0)
	case Monthly:
		return t.AddDate(0, n, 0)
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	default:
		return t.AddDate(0, 0, n)
	}
}
