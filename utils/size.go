package utils

import (
	"github.com/dustin/go-humanize"
)

// HumanSize formats a byte count for display, e.g. "1.2 MiB".
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Savings returns how much smaller after is than before, as a percentage of before.
// Negative values mean the output grew.
func Savings(before, after int64) float64 {
	if before <= 0 {
		return 0
	}
	return float64(before-after) / float64(before) * 100
}
