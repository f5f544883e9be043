package monitor

import "fmt"

// FormatRate formats a signed rate of change as "X.X req/min", used for the
// dashboard's send-queue growth indicator (see queueGrowthRate).
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.1f req/min", rate)
}

// FormatPercentage formats a ratio (0-1) as percentage, used for the send
// queue's load bar relative to its observed peak.
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatMemory formats bytes as "X.X MB" or "X.X GB" or "X B", used to
// render joltsyncd's reported heap allocation in the dashboard header.
func FormatMemory(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatUptime formats joltsyncd's reported uptime in seconds to "Xh Ym" or
// "Xm" for the dashboard header.
func FormatUptime(seconds int64) string {
	return FormatDuration(seconds)
}

// FormatDuration formats a duration in seconds to "Xh Ym" or "Xm".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
